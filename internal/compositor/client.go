// Package compositor keeps the external video-mixing backend's
// scene/source/filter graph consistent with the assignment table. The
// backend is reached over a websocket control channel speaking a
// request/response protocol with salted-challenge authentication.
package compositor

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by every operation while the control channel
// is down. Callers fail fast instead of queueing work.
var ErrNotConnected = errors.New("compositor: not connected")

// Protocol opcodes.
const (
	opHello      = 0
	opIdentify   = 1
	opIdentified = 2
	opRequest    = 6
	opResponse   = 7
)

const (
	writeWait      = 10 * time.Second
	handshakeWait  = 15 * time.Second
	defaultTimeout = 10 * time.Second
)

type envelope struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

type helloData struct {
	RPCVersion     int `json:"rpcVersion"`
	Authentication *struct {
		Challenge string `json:"challenge"`
		Salt      string `json:"salt"`
	} `json:"authentication,omitempty"`
}

type identifyData struct {
	RPCVersion     int    `json:"rpcVersion"`
	Authentication string `json:"authentication,omitempty"`
}

type requestData struct {
	RequestType string      `json:"requestType"`
	RequestID   string      `json:"requestId"`
	RequestData interface{} `json:"requestData,omitempty"`
}

type responseData struct {
	RequestType   string `json:"requestType"`
	RequestID     string `json:"requestId"`
	RequestStatus struct {
		Result  bool   `json:"result"`
		Code    int    `json:"code"`
		Comment string `json:"comment,omitempty"`
	} `json:"requestStatus"`
	ResponseData json.RawMessage `json:"responseData,omitempty"`
}

// Client is the control-channel client. One websocket carries all requests;
// responses are correlated by request id.
type Client struct {
	url      string
	password string
	timeout  time.Duration

	mu        sync.Mutex // guards conn, connected and writes
	conn      *websocket.Conn
	connected bool

	pendingMu sync.Mutex
	pending   map[string]chan responseData
}

// NewClient creates a client for the given control endpoint. The password
// may be empty when the backend has authentication disabled.
func NewClient(url, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:      url,
		password: password,
		timeout:  timeout,
		pending:  make(map[string]chan responseData),
	}
}

// Connect dials the backend and performs the Hello/Identify handshake.
func (c *Client) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("compositor: dial %s: %w", c.url, err)
	}

	if err := c.handshake(conn); err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump(conn)
	return nil
}

func (c *Client) handshake(conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(handshakeWait))

	var hello envelope
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("compositor: read hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("compositor: expected hello, got op %d", hello.Op)
	}

	var hd helloData
	if err := json.Unmarshal(hello.D, &hd); err != nil {
		return fmt.Errorf("compositor: decode hello: %w", err)
	}

	identify := identifyData{RPCVersion: 1}
	if hd.Authentication != nil {
		identify.Authentication = authResponse(c.password, hd.Authentication.Salt, hd.Authentication.Challenge)
	}

	d, err := json.Marshal(identify)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(envelope{Op: opIdentify, D: d}); err != nil {
		return fmt.Errorf("compositor: send identify: %w", err)
	}

	var identified envelope
	if err := conn.ReadJSON(&identified); err != nil {
		return fmt.Errorf("compositor: read identified: %w", err)
	}
	if identified.Op != opIdentified {
		return fmt.Errorf("compositor: authentication rejected (op %d)", identified.Op)
	}

	conn.SetReadDeadline(time.Time{})
	return nil
}

// authResponse derives the challenge answer: the password is salted and
// hashed, and the digest is hashed again with the challenge.
func authResponse(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	secretB64 := base64.StdEncoding.EncodeToString(secret[:])
	answer := sha256.Sum256([]byte(secretB64 + challenge))
	return base64.StdEncoding.EncodeToString(answer[:])
}

func (c *Client) readPump(conn *websocket.Conn) {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			c.teardown(conn, err)
			return
		}
		if env.Op != opResponse {
			continue
		}
		var resp responseData
		if err := json.Unmarshal(env.D, &resp); err != nil {
			log.Printf("compositor: malformed response: %v", err)
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[resp.RequestID]
		delete(c.pending, resp.RequestID)
		c.pendingMu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (c *Client) teardown(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn == conn {
		c.connected = false
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()

	// Fail every in-flight request.
	c.pendingMu.Lock()
	for id, ch := range c.pending {
		delete(c.pending, id)
		close(ch)
	}
	c.pendingMu.Unlock()

	if err != nil {
		log.Printf("compositor: connection lost: %v", err)
	}
}

// Close shuts the control channel down.
func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		c.teardown(conn, nil)
	}
}

// IsConnected reports whether the control channel is up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// request sends one request and decodes the response payload into out (which
// may be nil). Fails fast when disconnected.
func (c *Client) request(reqType string, data interface{}, out interface{}) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()
	if !connected || conn == nil {
		return ErrNotConnected
	}

	id := uuid.New().String()
	d, err := json.Marshal(requestData{RequestType: reqType, RequestID: id, RequestData: data})
	if err != nil {
		return err
	}

	ch := make(chan responseData, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	c.mu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	writeErr := conn.WriteJSON(envelope{Op: opRequest, D: d})
	c.mu.Unlock()
	if writeErr != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return fmt.Errorf("compositor: send %s: %w", reqType, writeErr)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return ErrNotConnected
		}
		if !resp.RequestStatus.Result {
			return fmt.Errorf("compositor: %s failed (code %d): %s",
				reqType, resp.RequestStatus.Code, resp.RequestStatus.Comment)
		}
		if out != nil && len(resp.ResponseData) > 0 {
			if err := json.Unmarshal(resp.ResponseData, out); err != nil {
				return fmt.Errorf("compositor: decode %s response: %w", reqType, err)
			}
		}
		return nil
	case <-time.After(c.timeout):
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return fmt.Errorf("compositor: %s timed out after %s", reqType, c.timeout)
	}
}

// ListScenes returns the names of all scenes.
func (c *Client) ListScenes() ([]string, error) {
	var out struct {
		Scenes []struct {
			SceneName string `json:"sceneName"`
		} `json:"scenes"`
	}
	if err := c.request("GetSceneList", nil, &out); err != nil {
		return nil, err
	}
	names := make([]string, len(out.Scenes))
	for i, s := range out.Scenes {
		names[i] = s.SceneName
	}
	return names, nil
}

// SceneExists reports whether a scene with the given name exists.
func (c *Client) SceneExists(name string) (bool, error) {
	scenes, err := c.ListScenes()
	if err != nil {
		return false, err
	}
	for _, s := range scenes {
		if s == name {
			return true, nil
		}
	}
	return false, nil
}

// CreateScene creates an empty scene.
func (c *Client) CreateScene(name string) error {
	return c.request("CreateScene", map[string]interface{}{"sceneName": name}, nil)
}

// ListSourcesInScene returns the source names placed in a scene.
func (c *Client) ListSourcesInScene(scene string) ([]string, error) {
	var out struct {
		SceneItems []struct {
			SourceName string `json:"sourceName"`
		} `json:"sceneItems"`
	}
	if err := c.request("GetSceneItemList", map[string]interface{}{"sceneName": scene}, &out); err != nil {
		return nil, err
	}
	names := make([]string, len(out.SceneItems))
	for i, item := range out.SceneItems {
		names[i] = item.SourceName
	}
	return names, nil
}

// SourceExistsInScene reports whether a scene contains a source.
func (c *Client) SourceExistsInScene(scene, source string) (bool, error) {
	sources, err := c.ListSourcesInScene(scene)
	if err != nil {
		return false, err
	}
	for _, s := range sources {
		if s == source {
			return true, nil
		}
	}
	return false, nil
}

// CreateSource creates a source of the given kind inside a scene.
func (c *Client) CreateSource(scene, source, kind string, settings map[string]interface{}) error {
	return c.request("CreateInput", map[string]interface{}{
		"sceneName":     scene,
		"inputName":     source,
		"inputKind":     kind,
		"inputSettings": settings,
	}, nil)
}

// UpdateSourceSettings overlays new settings on an existing source.
func (c *Client) UpdateSourceSettings(source string, settings map[string]interface{}) error {
	return c.request("SetInputSettings", map[string]interface{}{
		"inputName":     source,
		"inputSettings": settings,
		"overlay":       true,
	}, nil)
}

type filterInfo struct {
	FilterName     string                 `json:"filterName"`
	FilterKind     string                 `json:"filterKind"`
	FilterSettings map[string]interface{} `json:"filterSettings"`
}

// ListFilters returns the filters attached to a source.
func (c *Client) ListFilters(source string) ([]filterInfo, error) {
	var out struct {
		Filters []filterInfo `json:"filters"`
	}
	if err := c.request("GetSourceFilterList", map[string]interface{}{"sourceName": source}, &out); err != nil {
		return nil, err
	}
	return out.Filters, nil
}

// FilterExists reports whether a source carries a filter with the name.
func (c *Client) FilterExists(source, filter string) (bool, error) {
	filters, err := c.ListFilters(source)
	if err != nil {
		return false, err
	}
	for _, f := range filters {
		if f.FilterName == filter {
			return true, nil
		}
	}
	return false, nil
}

// CreateFilter attaches a filter to a source.
func (c *Client) CreateFilter(source, filter, kind string, settings map[string]interface{}) error {
	return c.request("CreateSourceFilter", map[string]interface{}{
		"sourceName":     source,
		"filterName":     filter,
		"filterKind":     kind,
		"filterSettings": settings,
	}, nil)
}

// UpdateFilter replaces a filter's settings.
func (c *Client) UpdateFilter(source, filter string, settings map[string]interface{}) error {
	return c.request("SetSourceFilterSettings", map[string]interface{}{
		"sourceName":     source,
		"filterName":     filter,
		"filterSettings": settings,
	}, nil)
}

// FindSceneByFilterProperty scans every scene's sources for a filter with
// the given name whose settings carry propertyName == propertyValue, and
// returns the owning scene. The backend's scene may not exist yet, so "not
// found" is an expected, non-fatal outcome; callers poll.
func (c *Client) FindSceneByFilterProperty(filterName, propertyName, propertyValue string) (string, bool, error) {
	scenes, err := c.ListScenes()
	if err != nil {
		return "", false, err
	}
	for _, scene := range scenes {
		sources, err := c.ListSourcesInScene(scene)
		if err != nil {
			return "", false, err
		}
		for _, source := range sources {
			filters, err := c.ListFilters(source)
			if err != nil {
				return "", false, err
			}
			for _, f := range filters {
				if f.FilterName != filterName {
					continue
				}
				if v, ok := f.FilterSettings[propertyName]; ok && v == propertyValue {
					return scene, true, nil
				}
			}
		}
	}
	return "", false, nil
}
