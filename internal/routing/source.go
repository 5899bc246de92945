package routing

// SourceID is the stable identifier of a routable content source, derived
// from the underlying receiver's stream name or synthesized for texture and
// merged-scene sub-sources. Unique within a session.
type SourceID string

// SourceKind distinguishes how the compositor must be told to pick a source
// up.
type SourceKind string

const (
	KindCamera    SourceKind = "camera"    // live receiver stream
	KindStatic    SourceKind = "static"    // texture-only source
	KindComposite SourceKind = "composite" // merged scene with sub-sources
)

// HighlightStrategy is the visual-feedback capability a source carries.
// Implementations live in internal/highlight and are chosen once when the
// source is constructed; the controller never re-dispatches on source type.
type HighlightStrategy interface {
	ApplyHighlight(slot Slot) error
	RemoveHighlight() error
	ApplyConflictHighlight() error
	// HasConflictingAssignments mirrors the routing conflict policy so the
	// visual decision stays colocated with the visual state.
	HasConflictingAssignments(slots []Slot) bool
}

// Source is a registered content provider.
type Source struct {
	ID         SourceID
	Kind       SourceKind
	StreamName string // opaque receiver stream identifier
	Highlight  HighlightStrategy
	SubSources []SourceID // populated for composite sources only
}

// SourceMeta is the slice of Source that change notifications carry so
// consumers (compositor bridge, audio selector) never reach back into the
// controller.
type SourceMeta struct {
	Kind       SourceKind
	StreamName string
	SubSources []SourceID
}

// Destination wraps a handle to an external video receiver occupying one
// slot. Exactly one destination per slot is expected.
type Destination struct {
	Slot           Slot
	ReceiverHandle string // opaque handle supplied by the streaming layer
}
