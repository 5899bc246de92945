// Package routing owns the authoritative assignment of sources to the four
// broadcast output slots and the rules for mutating it: the click protocol,
// the conflict policy and the promotion sync gate.
package routing

import "fmt"

// Slot is one of the four fixed broadcast output slots. Slots are never
// created or destroyed at runtime.
type Slot string

const (
	SlotStudioPreview Slot = "StudioPreview"
	SlotStudioLive    Slot = "StudioLive"
	SlotTVPreview     Slot = "TVPreview"
	SlotTVLive        Slot = "TVLive"
)

// AllSlots lists every slot in a fixed order, used for deterministic
// iteration over snapshots.
var AllSlots = []Slot{SlotStudioPreview, SlotStudioLive, SlotTVPreview, SlotTVLive}

// Side is one of the two output families.
type Side string

const (
	SideStudio Side = "Studio"
	SideTV     Side = "TV"
)

// ParseSlot converts a wire-format slot name.
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotStudioPreview, SlotStudioLive, SlotTVPreview, SlotTVLive:
		return Slot(s), nil
	}
	return "", fmt.Errorf("unknown slot: %s", s)
}

// ParseSide converts a wire-format side name.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideStudio, SideTV:
		return Side(s), nil
	}
	return "", fmt.Errorf("unknown side: %s", s)
}

// Family returns the output family the slot belongs to.
func (s Slot) Family() Side {
	switch s {
	case SlotStudioPreview, SlotStudioLive:
		return SideStudio
	default:
		return SideTV
	}
}

// IsPreview reports whether the slot is a preview slot. Only preview slots
// carry a promotion gate.
func (s Slot) IsPreview() bool {
	return s == SlotStudioPreview || s == SlotTVPreview
}

// IsLive reports whether the slot is on air.
func (s Slot) IsLive() bool {
	return s == SlotStudioLive || s == SlotTVLive
}

// PreviewOf returns the preview slot of a side.
func PreviewOf(side Side) Slot {
	if side == SideStudio {
		return SlotStudioPreview
	}
	return SlotTVPreview
}

// LiveOf returns the live slot of a side.
func LiveOf(side Side) Slot {
	if side == SideStudio {
		return SlotStudioLive
	}
	return SlotTVLive
}
