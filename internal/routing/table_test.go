package routing

import (
	"reflect"
	"testing"
)

// checkInverse verifies the derived inverse index is exactly the preimage of
// the forward mapping.
func checkInverse(t *testing.T, tb *Table) {
	t.Helper()

	for slot, id := range tb.forward {
		if _, ok := tb.inverse[id][slot]; !ok {
			t.Errorf("slot %s points at %s but inverse is missing the entry", slot, id)
		}
	}
	for id, slots := range tb.inverse {
		if len(slots) == 0 {
			t.Errorf("inverse entry for %s is empty; should have been deleted", id)
		}
		for slot := range slots {
			if got, ok := tb.forward[slot]; !ok || got != id {
				t.Errorf("inverse says %s occupies %s but forward says %v", id, slot, got)
			}
		}
	}
}

func TestTableAssignAndOverwrite(t *testing.T) {
	tb := NewTable()

	prev, had := tb.Assign(SlotStudioPreview, "cam1")
	if had {
		t.Errorf("expected empty slot, got previous %s", prev)
	}
	checkInverse(t, tb)

	prev, had = tb.Assign(SlotStudioPreview, "cam2")
	if !had || prev != "cam1" {
		t.Errorf("expected cam1 as previous occupant, got %s (%v)", prev, had)
	}
	checkInverse(t, tb)

	if slots := tb.SlotsOf("cam1"); len(slots) != 0 {
		t.Errorf("cam1 should occupy nothing, got %v", slots)
	}
	if got, _ := tb.Get(SlotStudioPreview); got != "cam2" {
		t.Errorf("expected cam2 in StudioPreview, got %s", got)
	}
}

func TestTableAssignIdempotent(t *testing.T) {
	tb := NewTable()
	tb.Assign(SlotTVPreview, "cam1")
	prev, had := tb.Assign(SlotTVPreview, "cam1")
	if !had || prev != "cam1" {
		t.Errorf("re-assign should report cam1 as previous, got %s (%v)", prev, had)
	}
	checkInverse(t, tb)
	if !reflect.DeepEqual(tb.SlotsOf("cam1"), []Slot{SlotTVPreview}) {
		t.Errorf("unexpected slots: %v", tb.SlotsOf("cam1"))
	}
}

func TestTableMultiSlotOccupancy(t *testing.T) {
	tb := NewTable()
	tb.Assign(SlotStudioPreview, "cam1")
	tb.Assign(SlotStudioLive, "cam1")
	checkInverse(t, tb)

	want := []Slot{SlotStudioPreview, SlotStudioLive}
	if got := tb.SlotsOf("cam1"); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got := tb.ActiveSources(); !reflect.DeepEqual(got, []SourceID{"cam1"}) {
		t.Errorf("expected single active source, got %v", got)
	}
}

func TestTablePurge(t *testing.T) {
	tb := NewTable()
	tb.Assign(SlotStudioPreview, "cam1")
	tb.Assign(SlotTVLive, "cam1")
	tb.Assign(SlotTVPreview, "cam2")

	freed := tb.Purge("cam1")
	if !reflect.DeepEqual(freed, []Slot{SlotStudioPreview, SlotTVLive}) {
		t.Errorf("unexpected freed slots: %v", freed)
	}
	checkInverse(t, tb)

	if _, ok := tb.Get(SlotStudioPreview); ok {
		t.Error("StudioPreview should be empty after purge")
	}
	if got, _ := tb.Get(SlotTVPreview); got != "cam2" {
		t.Error("purge must not touch other sources")
	}
	if got := tb.ActiveSources(); !reflect.DeepEqual(got, []SourceID{"cam2"}) {
		t.Errorf("expected cam2 active, got %v", got)
	}
}

func TestTableSnapshotIsCopy(t *testing.T) {
	tb := NewTable()
	tb.Assign(SlotStudioLive, "cam1")

	snap := tb.Snapshot()
	snap[SlotStudioLive] = "tampered"

	if got, _ := tb.Get(SlotStudioLive); got != "cam1" {
		t.Error("snapshot mutation leaked into the table")
	}
}
