// Package mqtt wraps the Paho client for the control room's transports:
// click events in, highlight and audio commands out.
package mqtt

import (
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// waitTimeout bounds every broker operation so a dead broker surfaces as an
// error instead of a hang.
const waitTimeout = 10 * time.Second

// TimeoutError reports a broker operation that did not complete in time.
type TimeoutError struct {
	Op    string
	Topic string
}

func (e *TimeoutError) Error() string {
	if e.Topic == "" {
		return fmt.Sprintf("mqtt %s timeout", e.Op)
	}
	return fmt.Sprintf("mqtt %s timeout: %s", e.Op, e.Topic)
}

// BrokerURL returns the broker URL from the MQTT_URL env var, defaulting to
// a local broker.
func BrokerURL() string {
	if url := os.Getenv("MQTT_URL"); url != "" {
		return url
	}
	return "tcp://localhost:1883"
}

// Client is the host's broker connection. Paho reconnects and re-subscribes
// on its own, so collaborators hold one client for the whole session.
type Client struct {
	mu     sync.Mutex
	client paho.Client
}

// NewClient creates a client for the session broker but does not connect.
func NewClient(clientID string) *Client {
	opts := paho.NewClientOptions().
		AddBroker(BrokerURL()).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	return &Client{client: paho.NewClient(opts)}
}

// Connect dials the broker, failing after the wait timeout.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Connect()
	if !token.WaitTimeout(waitTimeout) {
		return &TimeoutError{Op: "connect"}
	}
	return token.Error()
}

// Subscribe attaches a handler to a topic at QoS 1.
func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Subscribe(topic, 1, handler)
	if !token.WaitTimeout(waitTimeout) {
		return &TimeoutError{Op: "subscribe", Topic: topic}
	}
	return token.Error()
}

// Publish sends a payload to a topic at QoS 1.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(waitTimeout) {
		return &TimeoutError{Op: "publish", Topic: topic}
	}
	return token.Error()
}

// Disconnect cleanly drops the broker connection.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.client.Disconnect(1000)
}

// IsConnected reports the broker connection state.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}
