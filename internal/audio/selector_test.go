package audio

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/strandcast/controlroom/internal/events"
	"github.com/strandcast/controlroom/internal/routing"
)

type fakeDriver struct {
	mu    sync.Mutex
	calls []struct {
		handle string
		bus    Bus
	}
	fail bool
}

func (f *fakeDriver) SetBus(handle string, bus Bus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("driver down")
	}
	f.calls = append(f.calls, struct {
		handle string
		bus    Bus
	}{handle, bus})
	return nil
}

func (f *fakeDriver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func changeWith(dests map[routing.Slot]string) routing.Change {
	return routing.Change{Seq: 1, Destinations: dests}
}

func TestLiveSlotsGetBroadcastBus(t *testing.T) {
	driver := &fakeDriver{}
	s := NewSelector(driver, events.NewBus(), "program", "monitor")

	s.HandleChange(changeWith(map[routing.Slot]string{
		routing.SlotStudioPreview: "rx-sp",
		routing.SlotStudioLive:    "rx-sl",
		routing.SlotTVPreview:     "rx-tp",
		routing.SlotTVLive:        "rx-tl",
	}))

	got := make(map[string]Bus)
	driver.mu.Lock()
	for _, c := range driver.calls {
		got[c.handle] = c.bus
	}
	driver.mu.Unlock()

	want := map[string]Bus{
		"rx-sp": "monitor",
		"rx-sl": "program",
		"rx-tp": "monitor",
		"rx-tl": "program",
	}
	for handle, bus := range want {
		if got[handle] != bus {
			t.Errorf("receiver %s: expected bus %s, got %s", handle, bus, got[handle])
		}
	}
}

func TestSelectorIsIdempotent(t *testing.T) {
	driver := &fakeDriver{}
	s := NewSelector(driver, events.NewBus(), "program", "monitor")

	change := changeWith(map[routing.Slot]string{routing.SlotTVLive: "rx-tl"})
	s.HandleChange(change)
	s.HandleChange(change)
	s.HandleChange(change)

	if driver.callCount() != 1 {
		t.Errorf("expected a single driver call for a stable mapping, got %d", driver.callCount())
	}
}

func TestSelectorRetriesAfterFailure(t *testing.T) {
	driver := &fakeDriver{fail: true}
	bus := events.NewBus()
	s := NewSelector(driver, bus, "program", "monitor")

	change := changeWith(map[routing.Slot]string{routing.SlotStudioLive: "rx-sl"})
	s.HandleChange(change)

	found := false
	for _, e := range bus.Snapshot() {
		if e.Name == "audio.switch_failed" {
			found = true
		}
	}
	if !found {
		t.Error("expected audio.switch_failed event")
	}

	// Failed switches are not remembered as applied; the next change
	// retries.
	driver.mu.Lock()
	driver.fail = false
	driver.mu.Unlock()
	s.HandleChange(change)
	if driver.callCount() != 1 {
		t.Errorf("expected retry after failure, got %d calls", driver.callCount())
	}
}

func TestMQTTDriverPayload(t *testing.T) {
	var gotTopic string
	var gotPayload []byte
	pub := publisherFunc(func(topic string, payload []byte) error {
		gotTopic = topic
		gotPayload = payload
		return nil
	})

	d := NewMQTTDriver(pub, "controlroom/s1/audio")
	if err := d.SetBus("rx-tl", "program"); err != nil {
		t.Fatal(err)
	}

	if gotTopic != "controlroom/s1/audio" {
		t.Errorf("unexpected topic: %s", gotTopic)
	}
	var cmd busCommand
	if err := json.Unmarshal(gotPayload, &cmd); err != nil {
		t.Fatal(err)
	}
	if cmd.Command != "set_bus" || cmd.Receiver != "rx-tl" || cmd.Bus != "program" {
		t.Errorf("unexpected command: %+v", cmd)
	}
}

type publisherFunc func(topic string, payload []byte) error

func (f publisherFunc) Publish(topic string, payload []byte) error { return f(topic, payload) }
