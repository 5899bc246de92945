package events

import "sync"

// RingBuffer keeps the most recent events for replay to late subscribers.
type RingBuffer struct {
	mu    sync.RWMutex
	slots []Event
	head  int // next write position
	count int
}

func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{slots: make([]Event, capacity)}
}

// Add appends an event, evicting the oldest once the buffer is full.
func (rb *RingBuffer) Add(e Event) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.slots[rb.head] = e
	rb.head = (rb.head + 1) % len(rb.slots)
	if rb.count < len(rb.slots) {
		rb.count++
	}
}

// Len returns the number of buffered events.
func (rb *RingBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// Snapshot copies the buffered events out, oldest first.
func (rb *RingBuffer) Snapshot() []Event {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	out := make([]Event, 0, rb.count)
	start := rb.head - rb.count
	if start < 0 {
		start += len(rb.slots)
	}
	for i := 0; i < rb.count; i++ {
		out = append(out, rb.slots[(start+i)%len(rb.slots)])
	}
	return out
}

// Clear drops all buffered events.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.head = 0
	rb.count = 0
}
