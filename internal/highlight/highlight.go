// Package highlight implements the visual-feedback strategies a source
// carries: a prop-material variant for persistent 3D objects and a panel
// variant for 2D controls. The variant is chosen once when the source is
// constructed. Strategy calls run inside the controller's routing section,
// so both variants hand their commands off without waiting on the wire.
package highlight

import (
	"encoding/json"
	"log"

	"github.com/strandcast/controlroom/internal/events"
	"github.com/strandcast/controlroom/internal/routing"
)

// Slot highlight tints. Studio slots highlight in the green family, TV in
// red; a cross-family conflict overrides both with magenta.
const (
	TintStudioPreview = "#2e8b57"
	TintStudioLive    = "#00e676"
	TintTVPreview     = "#b03030"
	TintTVLive        = "#ff1744"
	TintConflict      = "#ff00ff"
)

// TintForSlot returns the highlight tint of a slot.
func TintForSlot(slot routing.Slot) string {
	switch slot {
	case routing.SlotStudioPreview:
		return TintStudioPreview
	case routing.SlotStudioLive:
		return TintStudioLive
	case routing.SlotTVPreview:
		return TintTVPreview
	default:
		return TintTVLive
	}
}

// Publisher sends a payload to a command topic. Implementations must not
// block the caller.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(topic string, payload []byte) error

func (f PublisherFunc) Publish(topic string, payload []byte) error {
	return f(topic, payload)
}

// MQTTPublisher is a Publisher backed by the broker client. The publish is
// detached from the caller so a slow broker never stalls routing.
type mqttClient interface {
	Publish(topic string, payload []byte) error
}

func NewAsyncPublisher(client mqttClient) Publisher {
	return PublisherFunc(func(topic string, payload []byte) error {
		go func() {
			if err := client.Publish(topic, payload); err != nil {
				log.Printf("highlight: publish to %s failed: %v", topic, err)
			}
		}()
		return nil
	})
}

type tintCommand struct {
	Command string `json:"command"`
	Tint    string `json:"tint"`
}

// MaterialStrategy mutates the render material of a persistent 3D prop by
// publishing tint commands to its command topic. The prop's original tint is
// captured at construction and restored exactly on RemoveHighlight.
type MaterialStrategy struct {
	pub          Publisher
	topic        string
	originalTint string
}

func NewMaterialStrategy(pub Publisher, topic, originalTint string) *MaterialStrategy {
	return &MaterialStrategy{pub: pub, topic: topic, originalTint: originalTint}
}

func (m *MaterialStrategy) ApplyHighlight(slot routing.Slot) error {
	return m.send(TintForSlot(slot))
}

func (m *MaterialStrategy) RemoveHighlight() error {
	return m.send(m.originalTint)
}

func (m *MaterialStrategy) ApplyConflictHighlight() error {
	return m.send(TintConflict)
}

func (m *MaterialStrategy) HasConflictingAssignments(slots []routing.Slot) bool {
	return routing.HasConflictingAssignments(slots)
}

func (m *MaterialStrategy) send(tint string) error {
	payload, err := json.Marshal(tintCommand{Command: "set_tint", Tint: tint})
	if err != nil {
		return err
	}
	return m.pub.Publish(m.topic, payload)
}

// PanelStrategy mutates a 2D control's widget color by emitting highlight
// events on the bus; the UI layer renders them. The widget's original color
// is captured at construction and restored on RemoveHighlight.
type PanelStrategy struct {
	bus           *events.Bus
	widgetID      string
	originalColor string
}

func NewPanelStrategy(bus *events.Bus, widgetID, originalColor string) *PanelStrategy {
	return &PanelStrategy{bus: bus, widgetID: widgetID, originalColor: originalColor}
}

func (p *PanelStrategy) ApplyHighlight(slot routing.Slot) error {
	_, err := p.bus.Emit("info", "highlight.applied", "", map[string]interface{}{
		"widget": p.widgetID, "slot": string(slot), "color": TintForSlot(slot),
	})
	return err
}

func (p *PanelStrategy) RemoveHighlight() error {
	_, err := p.bus.Emit("info", "highlight.removed", "", map[string]interface{}{
		"widget": p.widgetID, "color": p.originalColor,
	})
	return err
}

func (p *PanelStrategy) ApplyConflictHighlight() error {
	_, err := p.bus.Emit("warn", "highlight.conflict", "", map[string]interface{}{
		"widget": p.widgetID, "color": TintConflict,
	})
	return err
}

func (p *PanelStrategy) HasConflictingAssignments(slots []routing.Slot) bool {
	return routing.HasConflictingAssignments(slots)
}
