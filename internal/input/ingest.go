// Package input turns click events published by scene clients and input
// devices into routing commands. The host is the single authority: clicks
// are requests, and malformed or unknown ones are logged, never applied.
package input

import (
	"encoding/json"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/strandcast/controlroom/internal/events"
	"github.com/strandcast/controlroom/internal/mqtt"
	"github.com/strandcast/controlroom/internal/routing"
)

// Router is the slice of the controller the ingest layer drives.
type Router interface {
	HandleSourceLeftClick(id routing.SourceID)
	HandleSourceRightClick(id routing.SourceID)
	HandleDestinationLeftClick(slot routing.Slot)
	HandleDestinationRightClick(slot routing.Slot)
}

// clickEvent is the wire format of a click.
type clickEvent struct {
	Kind     string `json:"kind"`   // "source" or "destination"
	Button   string `json:"button"` // "left" or "right"
	SourceID string `json:"source_id,omitempty"`
	Slot     string `json:"slot,omitempty"`
	Director string `json:"director,omitempty"`
}

// Ingestor subscribes to the session click topic and dispatches to the
// controller.
type Ingestor struct {
	router Router
	bus    *events.Bus
}

func NewIngestor(router Router, bus *events.Bus) *Ingestor {
	return &Ingestor{router: router, bus: bus}
}

// Start subscribes on the given topic. Paho re-establishes the subscription
// across reconnects, so Start is called once.
func (i *Ingestor) Start(client *mqtt.Client, topic string) error {
	return client.Subscribe(topic, func(_ paho.Client, msg paho.Message) {
		i.HandleMessage(msg.Payload())
	})
}

// HandleMessage decodes and dispatches one click event.
func (i *Ingestor) HandleMessage(payload []byte) {
	var click clickEvent
	if err := json.Unmarshal(payload, &click); err != nil {
		i.malformed(fmt.Sprintf("invalid JSON: %v", err), payload)
		return
	}

	switch click.Kind {
	case "source":
		i.dispatchSource(click)
	case "destination":
		i.dispatchDestination(click)
	default:
		i.malformed("unknown click kind: "+click.Kind, payload)
	}
}

func (i *Ingestor) dispatchSource(click clickEvent) {
	if click.SourceID == "" {
		i.malformed("source click without source_id", nil)
		return
	}

	i.emitClick(click)
	switch click.Button {
	case "left":
		i.router.HandleSourceLeftClick(routing.SourceID(click.SourceID))
	case "right":
		i.router.HandleSourceRightClick(routing.SourceID(click.SourceID))
	default:
		i.malformed("unknown button: "+click.Button, nil)
	}
}

func (i *Ingestor) dispatchDestination(click clickEvent) {
	slot, err := routing.ParseSlot(click.Slot)
	if err != nil {
		i.malformed(err.Error(), nil)
		return
	}

	i.emitClick(click)
	switch click.Button {
	case "left":
		i.router.HandleDestinationLeftClick(slot)
	case "right":
		i.router.HandleDestinationRightClick(slot)
	default:
		i.malformed("unknown button: "+click.Button, nil)
	}
}

func (i *Ingestor) emitClick(click clickEvent) {
	if i.bus == nil {
		return
	}
	fields := map[string]interface{}{
		"kind": click.Kind, "button": click.Button,
	}
	if click.SourceID != "" {
		fields["source"] = click.SourceID
	}
	if click.Slot != "" {
		fields["slot"] = click.Slot
	}
	if click.Director != "" {
		fields["director"] = click.Director
	}
	i.bus.Emit("debug", "input.click", "", fields) //nolint:errcheck
}

func (i *Ingestor) malformed(reason string, payload []byte) {
	if i.bus == nil {
		return
	}
	fields := map[string]interface{}{"reason": reason}
	if len(payload) > 0 && len(payload) <= 512 {
		fields["payload"] = string(payload)
	}
	i.bus.Emit("warn", "input.malformed", "", fields) //nolint:errcheck
}
