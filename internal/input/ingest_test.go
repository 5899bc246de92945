package input

import (
	"testing"

	"github.com/strandcast/controlroom/internal/events"
	"github.com/strandcast/controlroom/internal/routing"
)

type recordingRouter struct {
	sourceLeft  []routing.SourceID
	sourceRight []routing.SourceID
	destLeft    []routing.Slot
	destRight   []routing.Slot
}

func (r *recordingRouter) HandleSourceLeftClick(id routing.SourceID) {
	r.sourceLeft = append(r.sourceLeft, id)
}
func (r *recordingRouter) HandleSourceRightClick(id routing.SourceID) {
	r.sourceRight = append(r.sourceRight, id)
}
func (r *recordingRouter) HandleDestinationLeftClick(s routing.Slot) {
	r.destLeft = append(r.destLeft, s)
}
func (r *recordingRouter) HandleDestinationRightClick(s routing.Slot) {
	r.destRight = append(r.destRight, s)
}

func countEvents(bus *events.Bus, name string) int {
	n := 0
	for _, e := range bus.Snapshot() {
		if e.Name == name {
			n++
		}
	}
	return n
}

func TestSourceClicksDispatch(t *testing.T) {
	router := &recordingRouter{}
	ing := NewIngestor(router, events.NewBus())

	ing.HandleMessage([]byte(`{"kind":"source","button":"left","source_id":"cam1"}`))
	ing.HandleMessage([]byte(`{"kind":"source","button":"right","source_id":"cam2","director":"ana"}`))

	if len(router.sourceLeft) != 1 || router.sourceLeft[0] != "cam1" {
		t.Errorf("expected left click for cam1, got %v", router.sourceLeft)
	}
	if len(router.sourceRight) != 1 || router.sourceRight[0] != "cam2" {
		t.Errorf("expected right click for cam2, got %v", router.sourceRight)
	}
}

func TestDestinationClicksDispatch(t *testing.T) {
	router := &recordingRouter{}
	ing := NewIngestor(router, events.NewBus())

	ing.HandleMessage([]byte(`{"kind":"destination","button":"left","slot":"TVPreview"}`))
	ing.HandleMessage([]byte(`{"kind":"destination","button":"right","slot":"StudioPreview"}`))

	if len(router.destLeft) != 1 || router.destLeft[0] != routing.SlotTVPreview {
		t.Errorf("unexpected left dispatch: %v", router.destLeft)
	}
	if len(router.destRight) != 1 || router.destRight[0] != routing.SlotStudioPreview {
		t.Errorf("unexpected right dispatch: %v", router.destRight)
	}
}

func TestMalformedPayloadsAreLoggedNotDispatched(t *testing.T) {
	router := &recordingRouter{}
	bus := events.NewBus()
	ing := NewIngestor(router, bus)

	ing.HandleMessage([]byte(`{not json`))
	ing.HandleMessage([]byte(`{"kind":"teleport","button":"left"}`))
	ing.HandleMessage([]byte(`{"kind":"source","button":"middle","source_id":"cam1"}`))
	ing.HandleMessage([]byte(`{"kind":"source","button":"left"}`))
	ing.HandleMessage([]byte(`{"kind":"destination","button":"left","slot":"Backstage"}`))

	total := len(router.sourceLeft) + len(router.sourceRight) + len(router.destLeft) + len(router.destRight)
	if total != 0 {
		t.Errorf("malformed clicks must not dispatch, got %d dispatches", total)
	}
	if got := countEvents(bus, "input.malformed"); got != 5 {
		t.Errorf("expected 5 malformed events, got %d", got)
	}
}

func TestClickEventsAreEmitted(t *testing.T) {
	router := &recordingRouter{}
	bus := events.NewBus()
	ing := NewIngestor(router, bus)

	ing.HandleMessage([]byte(`{"kind":"source","button":"left","source_id":"cam1","director":"ana"}`))

	if got := countEvents(bus, "input.click"); got != 1 {
		t.Errorf("expected 1 click event, got %d", got)
	}
}
