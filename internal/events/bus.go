// Package events carries the host's structured event stream: every routing
// decision, compositor sync and operator action is emitted as a named event,
// buffered for late joiners, fanned out to websocket subscribers and
// optionally appended to the Postgres audit log.
package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/strandcast/controlroom/internal/storage/postgres"
)

type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Subscriber represents a channel that receives events.
type Subscriber chan Event

// auditAppender is the slice of the Postgres client the audit writer uses.
// Tests substitute a fake.
type auditAppender interface {
	Append(ts time.Time, level, event, message string, fields map[string]interface{}, actor string) error
}

type auditEntry struct {
	ts time.Time
	e  Event
}

// Bus is the session-scoped event hub. It is constructed at session start
// and handed to every component that emits or observes events; there is no
// package-level instance.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]struct{}
	buffer      *RingBuffer

	pg            *postgres.Client
	audit         auditAppender
	persistCh     chan auditEntry
	persistDone   chan struct{}
	pgErrorLogged bool
}

// NewBus creates a bus with a 256-entry replay buffer and no persistence.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[Subscriber]struct{}),
		buffer:      NewRingBuffer(256),
	}
}

// SetPostgresClient attaches an audit-log client. May be called with nil to
// detach. Safe to call while the bus is in use.
func (b *Bus) SetPostgresClient(client *postgres.Client) {
	b.mu.Lock()
	b.pg = client
	if client == nil {
		b.audit = nil
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	b.attachAudit(client)
}

// attachAudit points persistence at an appender and starts the writer
// goroutine on first attach. Appends run on the writer so a slow audit
// database never stalls Emit.
func (b *Bus) attachAudit(a auditAppender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audit = a
	if b.persistCh == nil {
		b.persistCh = make(chan auditEntry, 256)
		b.persistDone = make(chan struct{})
		go b.persistLoop()
	}
}

// Close stops the audit writer after draining queued entries. Call once at
// session teardown, after the last Emit.
func (b *Bus) Close() {
	b.mu.Lock()
	ch := b.persistCh
	b.persistCh = nil
	b.mu.Unlock()

	if ch != nil {
		close(ch)
		<-b.persistDone
	}
}

// PostgresClient returns the attached audit-log client, or nil.
func (b *Bus) PostgresClient() *postgres.Client {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pg
}

// Subscribe adds a new subscriber and returns its channel.
// The channel has a buffer to prevent blocking on slow clients.
func (b *Bus) Subscribe() Subscriber {
	ch := make(Subscriber, 64) // Buffer to avoid blocking Emit
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call
// more than once for the same subscriber.
func (b *Bus) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	_, ok := b.subscribers[sub]
	delete(b.subscribers, sub)
	b.mu.Unlock()
	if ok {
		close(sub)
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Emit records and broadcasts an event. The event name must be registered;
// unknown names are rejected so typos never silently vanish downstream.
func (b *Bus) Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	b.buffer.Add(e)
	b.persist(ts, e)
	b.broadcast(e)

	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

// persist queues an event for the audit writer. Non-blocking: appends run on
// the writer goroutine, and when the writer falls behind the entry is
// dropped. The audit log is best effort and must never stall routing.
func (b *Bus) persist(ts time.Time, e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.audit == nil || b.persistCh == nil {
		return
	}
	select {
	case b.persistCh <- auditEntry{ts: ts, e: e}:
	default:
	}
}

func (b *Bus) persistLoop() {
	defer close(b.persistDone)
	for entry := range b.persistCh {
		b.mu.RLock()
		client := b.audit
		b.mu.RUnlock()
		if client == nil {
			continue
		}
		if err := client.Append(entry.ts, entry.e.Level, entry.e.Name, entry.e.Message, entry.e.Fields, ""); err != nil {
			b.noteAuditError(err)
		}
	}
}

// noteAuditError reports a failing audit database once, straight to the ring
// buffer so a persistently failing database cannot recurse through Emit.
func (b *Bus) noteAuditError(err error) {
	b.mu.Lock()
	already := b.pgErrorLogged
	b.pgErrorLogged = true
	b.mu.Unlock()

	if already {
		return
	}
	b.buffer.Add(Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     "error",
		Name:      "system.error",
		Message:   "postgres append failed",
		Fields:    map[string]interface{}{"error": err.Error()},
	})
}

// broadcast sends an event to all subscribers.
// Non-blocking: if a subscriber's buffer is full, the event is dropped for
// that subscriber.
func (b *Bus) broadcast(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- e:
		default:
			// Buffer full, drop event for this slow subscriber
		}
	}
}

// Snapshot returns the buffered events, oldest first.
func (b *Bus) Snapshot() []Event {
	return b.buffer.Snapshot()
}

// RecentEvents returns the last n events from the ring buffer.
// If n is greater than available events, returns all available.
func (b *Bus) RecentEvents(n int) []Event {
	all := b.buffer.Snapshot()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Clear resets the event buffer. Used for testing.
func (b *Bus) Clear() {
	b.buffer.Clear()
}
