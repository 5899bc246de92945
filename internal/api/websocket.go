package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/strandcast/controlroom/internal/events"
)

const (
	wsReplayCount   = 50               // recent events replayed on connect
	wsWriteDeadline = 10 * time.Second // per-message write deadline
	wsPongDeadline  = 60 * time.Second
	wsPingEvery     = 54 * time.Second // must stay under the pong deadline
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Panels and the UI page connect from arbitrary origins on the venue LAN
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsEventsHandler streams session events over a WebSocket: a replay of
// recent events on connect, then live events as they are emitted.
func (s *Server) wsEventsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	sub := s.bus.Subscribe()
	defer func() {
		s.bus.Unsubscribe(sub)
		conn.Close()
	}()

	for _, e := range s.bus.RecentEvents(wsReplayCount) {
		if err := writeEvent(conn, e); err != nil {
			log.Printf("ws replay failed: %v", err)
			return
		}
	}

	// The reader only services pongs and notices the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(wsPongDeadline))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(wsPongDeadline))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return

		case e, ok := <-sub:
			if !ok {
				return
			}
			if err := writeEvent(conn, e); err != nil {
				log.Printf("ws write failed: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		// Event fields are plain JSON values; a marshal failure is a bug,
		// not a reason to drop the connection.
		log.Printf("ws marshal failed: %v", err)
		return nil
	}
	conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
	return conn.WriteMessage(websocket.TextMessage, data)
}
