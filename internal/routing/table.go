package routing

// Table is the assignment table: a forward mapping slot → source plus the
// derived inverse mapping source → slots used by the conflict policy. The
// inverse is maintained in lockstep with the forward map and never mutated
// independently, so the two are exactly each other's preimage at all times.
//
// Table carries no lock of its own: all mutation happens inside the
// controller's single critical section.
type Table struct {
	forward map[Slot]SourceID
	inverse map[SourceID]map[Slot]struct{}
}

func NewTable() *Table {
	return &Table{
		forward: make(map[Slot]SourceID),
		inverse: make(map[SourceID]map[Slot]struct{}),
	}
}

// Assign points a slot at a source and returns the previous occupant, if
// any. Assigning the current occupant again is a no-op that still reports
// the occupant as previous.
func (t *Table) Assign(slot Slot, id SourceID) (prev SourceID, had bool) {
	prev, had = t.forward[slot]
	if had && prev == id {
		return prev, true
	}
	if had {
		t.dropInverse(prev, slot)
	}
	t.forward[slot] = id
	if t.inverse[id] == nil {
		t.inverse[id] = make(map[Slot]struct{})
	}
	t.inverse[id][slot] = struct{}{}
	return prev, had
}

// Purge removes every entry pointing at a source and returns the slots that
// were freed. Used when a source unregisters.
func (t *Table) Purge(id SourceID) []Slot {
	slots := t.SlotsOf(id)
	for _, slot := range slots {
		delete(t.forward, slot)
	}
	delete(t.inverse, id)
	return slots
}

// Get returns the occupant of a slot.
func (t *Table) Get(slot Slot) (SourceID, bool) {
	id, ok := t.forward[slot]
	return id, ok
}

// SlotsOf returns the slots a source currently occupies, in AllSlots order.
func (t *Table) SlotsOf(id SourceID) []Slot {
	occupied := t.inverse[id]
	if len(occupied) == 0 {
		return nil
	}
	slots := make([]Slot, 0, len(occupied))
	for _, s := range AllSlots {
		if _, ok := occupied[s]; ok {
			slots = append(slots, s)
		}
	}
	return slots
}

// Snapshot returns a copy of the forward mapping.
func (t *Table) Snapshot() map[Slot]SourceID {
	out := make(map[Slot]SourceID, len(t.forward))
	for slot, id := range t.forward {
		out[slot] = id
	}
	return out
}

// ActiveSources returns the distinct sources occupying at least one slot, in
// AllSlots order of their first occupied slot.
func (t *Table) ActiveSources() []SourceID {
	seen := make(map[SourceID]struct{}, len(t.inverse))
	var out []SourceID
	for _, slot := range AllSlots {
		if id, ok := t.forward[slot]; ok {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out
}

func (t *Table) dropInverse(id SourceID, slot Slot) {
	if occupied, ok := t.inverse[id]; ok {
		delete(occupied, slot)
		if len(occupied) == 0 {
			delete(t.inverse, id)
		}
	}
}
