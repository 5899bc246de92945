package routing

import (
	"sync"
	"time"
)

// Gate blocks preview→live promotion per side while a compositor update is
// in flight. A blocked promotion is dropped, never queued; the director
// re-clicks once the gate clears. A bounded timeout force-clears the gate so
// a stuck compositor call cannot lock a side permanently.
//
// Every block carries a generation token. Clearing through Release requires
// the matching token, so a round trip that outlives a force-clear cannot
// open the block of a newer promotion.
type Gate struct {
	mu      sync.Mutex
	blocked map[Side]uint64 // generation of the active block, absent = open
	gen     uint64
	timers  map[Side]*time.Timer
	ceiling time.Duration

	// onTimeout is invoked (off the gate lock) when a force-clear fires.
	onTimeout func(Side)
}

// NewGate creates a gate with the given force-clear ceiling. onTimeout may
// be nil.
func NewGate(ceiling time.Duration, onTimeout func(Side)) *Gate {
	return &Gate{
		blocked:   make(map[Side]uint64),
		timers:    make(map[Side]*time.Timer),
		ceiling:   ceiling,
		onTimeout: onTimeout,
	}
}

// Block closes the gate for a side, arms the force-clear timer and returns
// the block's generation token. Blocking an already-blocked side supersedes
// the previous block.
func (g *Gate) Block(side Side) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.gen++
	gen := g.gen
	g.blocked[side] = gen
	g.disarmLocked(side)
	if g.ceiling > 0 {
		g.timers[side] = time.AfterFunc(g.ceiling, func() { g.expire(side, gen) })
	}
	return gen
}

// Unblock opens the gate for a side unconditionally and disarms the timer.
// Safe to call on an already-open gate. In-flight round trips should use
// Release instead.
func (g *Gate) Unblock(side Side) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clearLocked(side)
}

// Release opens the gate only while gen still identifies the active block.
// A stale token, from a block that was already force-cleared or superseded,
// is ignored.
func (g *Gate) Release(side Side, gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.blocked[side] != gen {
		return
	}
	g.clearLocked(side)
}

// IsBlocked reports whether promotion for a side is currently gated.
func (g *Gate) IsBlocked(side Side) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.blocked[side]
	return ok
}

func (g *Gate) expire(side Side, gen uint64) {
	g.mu.Lock()
	live := g.blocked[side] == gen
	if live {
		g.clearLocked(side)
	}
	g.mu.Unlock()

	if live && g.onTimeout != nil {
		g.onTimeout(side)
	}
}

func (g *Gate) clearLocked(side Side) {
	delete(g.blocked, side)
	g.disarmLocked(side)
}

func (g *Gate) disarmLocked(side Side) {
	if t, ok := g.timers[side]; ok {
		t.Stop()
		delete(g.timers, side)
	}
}
