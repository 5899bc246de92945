package compositor

import (
	"fmt"

	"github.com/strandcast/controlroom/internal/events"
	"github.com/strandcast/controlroom/internal/routing"
)

// Names used in the backend's graph. Receiver sources are created with the
// stream-receiver kind; relay filters tag sub-sources of merged scenes so
// the owning scene can be found again by reverse lookup.
const (
	ReceiverKind    = "stream_receiver"
	RelayFilterName = "controlroom_relay"
	RelayFilterKind = "stream_relay"
)

// API is the slice of the control protocol the bridge uses. *Client
// implements it; tests substitute a fake.
type API interface {
	IsConnected() bool
	SceneExists(name string) (bool, error)
	CreateScene(name string) error
	SourceExistsInScene(scene, source string) (bool, error)
	CreateSource(scene, source, kind string, settings map[string]interface{}) error
	UpdateSourceSettings(source string, settings map[string]interface{}) error
	FilterExists(source, filter string) (bool, error)
	CreateFilter(source, filter, kind string, settings map[string]interface{}) error
	UpdateFilter(source, filter string, settings map[string]interface{}) error
	ListSourcesInScene(scene string) ([]string, error)
	FindSceneByFilterProperty(filterName, propertyName, propertyValue string) (string, bool, error)
}

// SceneNamer maps a slot to the backend scene that renders it.
type SceneNamer func(slot routing.Slot) string

// Bridge translates change notifications into idempotent calls against the
// backend's scene/source/filter graph. It never rolls routing state back:
// when the backend is down the two are allowed to diverge until
// reconnection.
type Bridge struct {
	api    API
	bus    *events.Bus
	scenes SceneNamer
}

func NewBridge(api API, bus *events.Bus, scenes SceneNamer) *Bridge {
	return &Bridge{api: api, bus: bus, scenes: scenes}
}

// Apply mirrors every occupied slot into the backend. Validated up front:
// when the control channel is down the whole apply fails fast.
func (b *Bridge) Apply(change routing.Change) error {
	if !b.api.IsConnected() {
		return ErrNotConnected
	}

	for _, slot := range routing.AllSlots {
		id, ok := change.Assignments[slot]
		if !ok {
			continue
		}
		meta := change.Sources[id]
		if err := b.syncSlot(slot, id, meta); err != nil {
			return fmt.Errorf("sync %s: %w", slot, err)
		}
	}
	return nil
}

// syncSlot ensures the slot's scene contains a receiver source feeding the
// assigned stream, creating what is missing and updating what exists.
func (b *Bridge) syncSlot(slot routing.Slot, id routing.SourceID, meta routing.SourceMeta) error {
	scene := b.scenes(slot)

	exists, err := b.api.SceneExists(scene)
	if err != nil {
		return err
	}
	if !exists {
		if err := b.api.CreateScene(scene); err != nil {
			return err
		}
	}

	receiver := receiverName(slot)
	settings := map[string]interface{}{"stream": meta.StreamName}

	hasSource, err := b.api.SourceExistsInScene(scene, receiver)
	if err != nil {
		return err
	}
	if !hasSource {
		if err := b.api.CreateSource(scene, receiver, ReceiverKind, settings); err != nil {
			return err
		}
	} else if err := b.api.UpdateSourceSettings(receiver, settings); err != nil {
		return err
	}

	if meta.Kind == routing.KindComposite {
		if err := b.ensureRelayFilters(meta); err != nil {
			return err
		}
	}

	b.emit("debug", "compositor.scene_synced", "", map[string]interface{}{
		"slot": string(slot), "scene": scene, "source": string(id),
	})
	return nil
}

// ensureRelayFilters tags every sub-source of a merged scene with a relay
// filter carrying the sub-source id, so the owning scene can be located by
// reverse lookup later.
func (b *Bridge) ensureRelayFilters(meta routing.SourceMeta) error {
	for _, sub := range meta.SubSources {
		settings := map[string]interface{}{"target": string(sub)}

		exists, err := b.api.FilterExists(string(sub), RelayFilterName)
		if err != nil {
			return err
		}
		if exists {
			if err := b.api.UpdateFilter(string(sub), RelayFilterName, settings); err != nil {
				return err
			}
			continue
		}
		if err := b.api.CreateFilter(string(sub), RelayFilterName, RelayFilterKind, settings); err != nil {
			return err
		}
		b.emit("debug", "compositor.relay_synced", "", map[string]interface{}{
			"sub_source": string(sub),
		})
	}
	return nil
}

// DiscoverSubSources lists the sources of the scene backing a merged
// composite stream. Returns found=false (not an error) while the backend
// scene does not exist yet; callers poll until the scene appears.
func (b *Bridge) DiscoverSubSources(mergedStream string) ([]routing.SourceID, bool, error) {
	if !b.api.IsConnected() {
		return nil, false, ErrNotConnected
	}

	exists, err := b.api.SceneExists(mergedStream)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, nil
	}

	names, err := b.api.ListSourcesInScene(mergedStream)
	if err != nil {
		return nil, false, err
	}
	subs := make([]routing.SourceID, len(names))
	for i, n := range names {
		subs[i] = routing.SourceID(n)
	}
	return subs, true, nil
}

// SceneOfSubSource finds the merged scene currently carrying a sub-source,
// by scanning for its relay filter. Not-found is non-fatal.
func (b *Bridge) SceneOfSubSource(sub routing.SourceID) (string, bool, error) {
	if !b.api.IsConnected() {
		return "", false, ErrNotConnected
	}
	return b.api.FindSceneByFilterProperty(RelayFilterName, "target", string(sub))
}

func receiverName(slot routing.Slot) string {
	return "receiver_" + string(slot)
}

func (b *Bridge) emit(level, name, msg string, fields map[string]interface{}) {
	if b.bus == nil {
		return
	}
	b.bus.Emit(level, name, msg, fields) //nolint:errcheck
}
