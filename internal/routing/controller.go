package routing

import (
	"fmt"
	"sync"
	"time"

	"github.com/strandcast/controlroom/internal/events"
)

// Applier receives change notifications that must be mirrored into the
// external compositor. Apply may be slow (network round trip); the
// controller always invokes it off the serial routing path.
type Applier interface {
	Apply(change Change) error
}

// Change is the "active sources changed" notification raised after every
// table mutation. Seq is assigned inside the controller's critical section;
// consumers that track per-slot state must drop changes older than the last
// applied sequence.
type Change struct {
	Seq          uint64
	Assignments  map[Slot]SourceID
	Active       []SourceID
	Touched      []SourceID
	Sources      map[SourceID]SourceMeta
	Destinations map[Slot]string
	Promotion    *Side
}

// Options configures a Controller.
type Options struct {
	// GateCeiling bounds how long a promotion gate may stay blocked before
	// it is force-cleared. Zero disables the force-clear.
	GateCeiling time.Duration
}

// Controller is the single authoritative coordinator of the assignment
// table. All routing-changing operations are applied serially under one
// mutex; collaborators observe the table through change notifications.
type Controller struct {
	mu           sync.Mutex
	bus          *events.Bus
	table        *Table
	sources      map[SourceID]*Source
	destinations map[Slot]*Destination
	gate         *Gate
	applier      Applier
	seq          uint64

	handlerMu sync.Mutex
	handlers  []func(Change)

	changes chan Change
	quit    chan struct{}
	done    chan struct{}

	// Compositor applies run on a single worker that only ever writes the
	// newest table snapshot, so a slow round trip can never land a stale
	// assignment after a newer one.
	applyMu   sync.Mutex
	pending   *Change
	releases  []gateRelease
	applyWake chan struct{}
	applyDone chan struct{}
}

// gateRelease identifies one promotion's gate block, cleared once the apply
// covering it completes.
type gateRelease struct {
	side Side
	gen  uint64
}

// NewController creates the session's controller and starts its change
// dispatcher. Call Close at session teardown.
func NewController(bus *events.Bus, opts Options) *Controller {
	c := &Controller{
		bus:          bus,
		table:        NewTable(),
		sources:      make(map[SourceID]*Source),
		destinations: make(map[Slot]*Destination),
		changes:      make(chan Change, 64),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		applyWake:    make(chan struct{}, 1),
		applyDone:    make(chan struct{}),
	}
	c.gate = NewGate(opts.GateCeiling, c.onGateTimeout)
	go c.dispatch()
	go c.applyLoop()
	return c
}

// Close stops the change dispatcher and the apply worker. The controller
// must not be used after Close.
func (c *Controller) Close() {
	close(c.quit)
	<-c.done
	<-c.applyDone
}

// SetApplier attaches the compositor bridge. May be nil (compositor-less
// session); routing still works locally.
func (c *Controller) SetApplier(a Applier) {
	c.mu.Lock()
	c.applier = a
	c.mu.Unlock()
}

// OnChange registers a change handler. Handlers run in order on a single
// dispatcher goroutine, so per-slot updates are never observed out of order.
func (c *Controller) OnChange(h func(Change)) {
	c.handlerMu.Lock()
	c.handlers = append(c.handlers, h)
	c.handlerMu.Unlock()
}

// RegisterSource adds a source to the registry. Re-registering the same ID
// replaces the entry without an event.
func (c *Controller) RegisterSource(src *Source) error {
	if src == nil || src.ID == "" {
		return fmt.Errorf("source must have an id")
	}

	c.mu.Lock()
	_, existed := c.sources[src.ID]
	c.sources[src.ID] = src
	c.mu.Unlock()

	if !existed {
		c.emit("info", "source.registered", "", map[string]interface{}{
			"source": string(src.ID),
			"kind":   string(src.Kind),
		})
	}
	return nil
}

// UnregisterSource removes a source, purges every table entry pointing at
// it and removes its highlight. Unknown IDs are a no-op.
func (c *Controller) UnregisterSource(id SourceID) {
	c.mu.Lock()
	src, ok := c.sources[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.sources, id)

	freed := c.table.Purge(id)
	if src.Highlight != nil {
		if err := src.Highlight.RemoveHighlight(); err != nil {
			c.emit("warn", "highlight.failed", "remove on unregister", map[string]interface{}{
				"source": string(id), "error": err.Error(),
			})
		}
	}

	var change *Change
	if len(freed) > 0 {
		ch := c.buildChangeLocked([]SourceID{id}, nil)
		change = &ch
	}
	c.mu.Unlock()

	c.emit("info", "source.unregistered", "", map[string]interface{}{
		"source": string(id), "freed_slots": slotNames(freed),
	})
	if change != nil {
		c.emit("info", "routing.released", "", map[string]interface{}{
			"source": string(id), "slots": slotNames(freed), "seq": change.Seq,
		})
	}
	if change != nil {
		c.publish(*change)
	}
}

// RegisterDestination binds a receiver handle to a slot. Registering a
// second destination for an occupied slot is a configuration error.
func (c *Controller) RegisterDestination(d *Destination) error {
	if d == nil {
		return fmt.Errorf("destination is nil")
	}
	if _, err := ParseSlot(string(d.Slot)); err != nil {
		return err
	}

	c.mu.Lock()
	if existing, ok := c.destinations[d.Slot]; ok && existing.ReceiverHandle != d.ReceiverHandle {
		c.mu.Unlock()
		return fmt.Errorf("slot %s already has a registered destination", d.Slot)
	}
	c.destinations[d.Slot] = d
	c.mu.Unlock()

	c.emit("info", "destination.registered", "", map[string]interface{}{
		"slot": string(d.Slot),
	})
	return nil
}

// UnregisterDestination releases a slot's destination binding.
func (c *Controller) UnregisterDestination(slot Slot) {
	c.mu.Lock()
	_, ok := c.destinations[slot]
	delete(c.destinations, slot)
	c.mu.Unlock()

	if ok {
		c.emit("info", "destination.unregistered", "", map[string]interface{}{
			"slot": string(slot),
		})
	}
}

// RouteSourceToSlot is the core routing primitive: it overwrites the slot's
// occupant, recomputes conflict state and highlights for every touched
// source and raises the change notification. Unknown sources are logged and
// leave the table untouched.
func (c *Controller) RouteSourceToSlot(id SourceID, slot Slot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.routeLocked(id, slot, nil, 0)
}

// PromotePreviewToLive moves the occupant of a side's preview slot into its
// live slot. Dropped (logged, no mutation) while the side's sync gate is
// blocked or when the preview slot is empty.
func (c *Controller) PromotePreviewToLive(side Side) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.promoteLocked(side)
}

func (c *Controller) promoteLocked(side Side) {
	preview := PreviewOf(side)

	if c.gate.IsBlocked(side) {
		c.emit("info", "promotion.blocked", "sync gate closed", map[string]interface{}{
			"side": string(side),
		})
		return
	}

	id, ok := c.table.Get(preview)
	if !ok {
		c.emit("info", "promotion.empty", "preview slot empty", map[string]interface{}{
			"side": string(side),
		})
		return
	}

	// Gate closes before the compositor call goes out so a second promotion
	// click during the round trip is a guaranteed no-op. The generation ties
	// the eventual unblock to this block: a stale round trip finishing after
	// a force-clear must not open a newer block.
	var gen uint64
	if c.applier != nil {
		gen = c.gate.Block(side)
	}

	if err := c.routeLocked(id, LiveOf(side), &side, gen); err != nil {
		c.gate.Release(side, gen)
		return
	}

	c.emit("info", "promotion.applied", "", map[string]interface{}{
		"side": string(side), "source": string(id),
	})
}

// BlockPromotion closes a side's sync gate explicitly.
func (c *Controller) BlockPromotion(side Side) {
	c.gate.Block(side)
}

// UnblockPromotion opens a side's sync gate explicitly.
func (c *Controller) UnblockPromotion(side Side) {
	c.gate.Unblock(side)
}

// Click protocol. Left-click on a source routes it to TV preview,
// right-click to Studio preview. A left-click on the TV preview destination
// or a right-click on the Studio preview destination promotes that side.
// Clicks on live destinations are deliberate no-ops.

func (c *Controller) HandleSourceLeftClick(id SourceID) {
	if err := c.RouteSourceToSlot(id, SlotTVPreview); err != nil {
		return
	}
}

func (c *Controller) HandleSourceRightClick(id SourceID) {
	if err := c.RouteSourceToSlot(id, SlotStudioPreview); err != nil {
		return
	}
}

func (c *Controller) HandleDestinationLeftClick(slot Slot) {
	if slot == SlotTVPreview {
		c.PromotePreviewToLive(SideTV)
		return
	}
	c.emit("debug", "input.ignored", "left click has no action for slot", map[string]interface{}{
		"slot": string(slot),
	})
}

func (c *Controller) HandleDestinationRightClick(slot Slot) {
	if slot == SlotStudioPreview {
		c.PromotePreviewToLive(SideStudio)
		return
	}
	c.emit("debug", "input.ignored", "right click has no action for slot", map[string]interface{}{
		"slot": string(slot),
	})
}

// routeLocked performs the actual mutation. Caller holds c.mu. gateGen is
// the promotion's gate generation, zero for plain routes.
func (c *Controller) routeLocked(id SourceID, slot Slot, promotion *Side, gateGen uint64) error {
	if _, ok := c.sources[id]; !ok {
		c.emit("warn", "routing.rejected", "source not registered", map[string]interface{}{
			"source": string(id), "slot": string(slot),
		})
		return fmt.Errorf("source not registered: %s", id)
	}

	prev, hadPrev := c.table.Assign(slot, id)

	touched := []SourceID{id}
	if hadPrev && prev != id {
		touched = append(touched, prev)
	}
	c.refreshHighlightsLocked(touched)

	change := c.buildChangeLocked(touched, promotion)

	// Routing events carry the mutation's sequence number so followers can
	// order per-slot updates and spot gaps in their stream.
	fields := map[string]interface{}{
		"slot": string(slot), "source": string(id), "seq": change.Seq,
	}
	if hadPrev && prev != id {
		fields["replaced"] = string(prev)
	}
	c.emit("info", "routing.assigned", "", fields)

	if hadPrev && prev != id && len(c.table.SlotsOf(prev)) == 0 {
		c.emit("info", "routing.released", "", map[string]interface{}{
			"source": string(prev), "slots": slotNames([]Slot{slot}), "seq": change.Seq,
		})
	}

	c.publish(change)

	if c.applier != nil {
		var rel *gateRelease
		if promotion != nil {
			rel = &gateRelease{side: *promotion, gen: gateGen}
		}
		c.enqueueApply(change, rel)
	}
	return nil
}

// refreshHighlightsLocked re-applies visual feedback for the touched
// sources: conflict highlight when a source spans both families, per-slot
// highlight otherwise, removal when it occupies nothing.
func (c *Controller) refreshHighlightsLocked(touched []SourceID) {
	for _, id := range touched {
		src, ok := c.sources[id]
		if !ok || src.Highlight == nil {
			continue
		}

		slots := c.table.SlotsOf(id)
		var err error
		switch {
		case len(slots) == 0:
			err = src.Highlight.RemoveHighlight()
		case src.Highlight.HasConflictingAssignments(slots):
			err = src.Highlight.ApplyConflictHighlight()
			c.emit("warn", "routing.conflict", "source feeds both families", map[string]interface{}{
				"source": string(id), "slots": slotNames(slots),
			})
		default:
			for _, slot := range slots {
				if applyErr := src.Highlight.ApplyHighlight(slot); applyErr != nil && err == nil {
					err = applyErr
				}
			}
		}
		if err != nil {
			c.emit("warn", "highlight.failed", "", map[string]interface{}{
				"source": string(id), "error": err.Error(),
			})
		}
	}
}

func (c *Controller) buildChangeLocked(touched []SourceID, promotion *Side) Change {
	c.seq++

	active := c.table.ActiveSources()
	sources := make(map[SourceID]SourceMeta, len(active))
	for _, id := range active {
		if src, ok := c.sources[id]; ok {
			sources[id] = SourceMeta{
				Kind:       src.Kind,
				StreamName: src.StreamName,
				SubSources: append([]SourceID(nil), src.SubSources...),
			}
		}
	}

	dests := make(map[Slot]string, len(c.destinations))
	for slot, d := range c.destinations {
		dests[slot] = d.ReceiverHandle
	}

	return Change{
		Seq:          c.seq,
		Assignments:  c.table.Snapshot(),
		Active:       active,
		Touched:      append([]SourceID(nil), touched...),
		Sources:      sources,
		Destinations: dests,
		Promotion:    promotion,
	}
}

// publish hands a change to the dispatcher. Sends are ordered because every
// publish happens inside the routing critical section.
func (c *Controller) publish(change Change) {
	select {
	case c.changes <- change:
	case <-c.quit:
	}
}

func (c *Controller) dispatch() {
	defer close(c.done)
	for {
		select {
		case change := <-c.changes:
			c.handlerMu.Lock()
			handlers := append([]func(Change){}, c.handlers...)
			c.handlerMu.Unlock()
			for _, h := range handlers {
				h(change)
			}
		case <-c.quit:
			return
		}
	}
}

// enqueueApply hands a change to the apply worker. Only the latest pending
// change is kept: every apply writes the full table snapshot, so the newest
// one covers everything an older one would have written. Never blocks the
// routing path.
func (c *Controller) enqueueApply(change Change, rel *gateRelease) {
	c.applyMu.Lock()
	c.pending = &change
	if rel != nil {
		c.releases = append(c.releases, *rel)
	}
	c.applyMu.Unlock()

	select {
	case c.applyWake <- struct{}{}:
	default:
	}
}

func (c *Controller) applyLoop() {
	defer close(c.applyDone)
	for {
		select {
		case <-c.applyWake:
			c.runPendingApply()
		case <-c.quit:
			return
		}
	}
}

// runPendingApply mirrors the newest pending snapshot into the compositor
// and clears the gates of every promotion that snapshot covers.
func (c *Controller) runPendingApply() {
	c.applyMu.Lock()
	change := c.pending
	releases := c.releases
	c.pending = nil
	c.releases = nil
	c.applyMu.Unlock()

	if change == nil {
		return
	}

	c.mu.Lock()
	applier := c.applier
	c.mu.Unlock()

	var err error
	if applier != nil {
		err = applier.Apply(*change)
	}

	for _, rel := range releases {
		c.gate.Release(rel.side, rel.gen)
	}

	if err != nil {
		// Local routing state is not rolled back: directors keep routing
		// even when the live backend is down, and the compositor catches up
		// on reconnection.
		c.emit("error", "compositor.apply_failed", err.Error(), map[string]interface{}{
			"seq": change.Seq,
		})
	}
}

func (c *Controller) onGateTimeout(side Side) {
	c.emit("warn", "promotion.gate_timeout", "gate force-cleared", map[string]interface{}{
		"side": string(side),
	})
}

// Assignments returns a snapshot of the forward table.
func (c *Controller) Assignments() map[Slot]SourceID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.Snapshot()
}

// ActiveSources returns the sources currently occupying at least one slot.
func (c *Controller) ActiveSources() []SourceID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.ActiveSources()
}

// SlotsOf returns the slots a source occupies.
func (c *Controller) SlotsOf(id SourceID) []Slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.SlotsOf(id)
}

// HasSource reports whether a source is registered.
func (c *Controller) HasSource(id SourceID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sources[id]
	return ok
}

// GateBlocked reports whether a side's promotion gate is closed.
func (c *Controller) GateBlocked(side Side) bool {
	return c.gate.IsBlocked(side)
}

func (c *Controller) emit(level, name, msg string, fields map[string]interface{}) {
	if c.bus == nil {
		return
	}
	if _, err := c.bus.Emit(level, name, msg, fields); err != nil {
		// Unknown event names are a programming error; surface them loudly
		// in development without crashing a live session.
		c.bus.Emit("error", "system.error", err.Error(), nil) //nolint:errcheck
	}
}

func slotNames(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = string(s)
	}
	return out
}
