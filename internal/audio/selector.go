// Package audio switches each destination's audio between the broadcast bus
// and the monitor-only bus, tracking the routing controller's change
// notifications.
package audio

import (
	"encoding/json"
	"sync"

	"github.com/strandcast/controlroom/internal/events"
	"github.com/strandcast/controlroom/internal/routing"
)

// Bus identifies an audio bus by name.
type Bus string

// Driver applies a bus selection to a destination's receiver.
type Driver interface {
	SetBus(receiverHandle string, bus Bus) error
}

// Selector reacts to change notifications: live slots get the broadcast
// bus, everything else monitors. Purely reactive and idempotent; the only
// state is the last-applied mapping.
type Selector struct {
	driver    Driver
	bus       *events.Bus
	broadcast Bus
	monitor   Bus

	mu      sync.Mutex
	applied map[string]Bus // receiver handle -> last applied bus
}

func NewSelector(driver Driver, bus *events.Bus, broadcast, monitor Bus) *Selector {
	return &Selector{
		driver:    driver,
		bus:       bus,
		broadcast: broadcast,
		monitor:   monitor,
		applied:   make(map[string]Bus),
	}
}

// HandleChange is registered as a controller change handler.
func (s *Selector) HandleChange(change routing.Change) {
	for slot, handle := range change.Destinations {
		want := s.monitor
		if slot.IsLive() {
			want = s.broadcast
		}

		s.mu.Lock()
		current, ok := s.applied[handle]
		s.mu.Unlock()
		if ok && current == want {
			continue
		}

		if err := s.driver.SetBus(handle, want); err != nil {
			s.emit("error", "audio.switch_failed", err.Error(), map[string]interface{}{
				"receiver": handle, "bus": string(want),
			})
			continue
		}

		s.mu.Lock()
		s.applied[handle] = want
		s.mu.Unlock()

		s.emit("info", "audio.bus_changed", "", map[string]interface{}{
			"receiver": handle, "slot": string(slot), "bus": string(want),
		})
	}
}

func (s *Selector) emit(level, name, msg string, fields map[string]interface{}) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(level, name, msg, fields) //nolint:errcheck
}

// Publisher is the transport a bus switch is published over.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// MQTTDriver publishes bus-switch commands to the audio control topic.
type MQTTDriver struct {
	pub   Publisher
	topic string
}

func NewMQTTDriver(pub Publisher, topic string) *MQTTDriver {
	return &MQTTDriver{pub: pub, topic: topic}
}

type busCommand struct {
	Command  string `json:"command"`
	Receiver string `json:"receiver"`
	Bus      string `json:"bus"`
}

func (d *MQTTDriver) SetBus(receiverHandle string, bus Bus) error {
	payload, err := json.Marshal(busCommand{Command: "set_bus", Receiver: receiverHandle, Bus: string(bus)})
	if err != nil {
		return err
	}
	return d.pub.Publish(d.topic, payload)
}
