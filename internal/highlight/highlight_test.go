package highlight

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/strandcast/controlroom/internal/events"
	"github.com/strandcast/controlroom/internal/routing"
)

type capturingPublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads []tintCommand
}

func (c *capturingPublisher) Publish(topic string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var cmd tintCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return err
	}
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, cmd)
	return nil
}

func (c *capturingPublisher) last(t *testing.T) tintCommand {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.payloads) == 0 {
		t.Fatal("no command published")
	}
	return c.payloads[len(c.payloads)-1]
}

func TestMaterialStrategyAppliesSlotTint(t *testing.T) {
	pub := &capturingPublisher{}
	hs := NewMaterialStrategy(pub, "controlroom/s1/props/cam1/commands", "#888888")

	if err := hs.ApplyHighlight(routing.SlotStudioPreview); err != nil {
		t.Fatal(err)
	}
	cmd := pub.last(t)
	if cmd.Command != "set_tint" || cmd.Tint != TintStudioPreview {
		t.Errorf("unexpected command: %+v", cmd)
	}

	if err := hs.ApplyConflictHighlight(); err != nil {
		t.Fatal(err)
	}
	if pub.last(t).Tint != TintConflict {
		t.Errorf("expected conflict tint, got %s", pub.last(t).Tint)
	}
}

func TestMaterialStrategyRestoresOriginalTint(t *testing.T) {
	pub := &capturingPublisher{}
	hs := NewMaterialStrategy(pub, "topic", "#c0ffee")

	if err := hs.ApplyHighlight(routing.SlotTVLive); err != nil {
		t.Fatal(err)
	}
	if err := hs.RemoveHighlight(); err != nil {
		t.Fatal(err)
	}
	if got := pub.last(t).Tint; got != "#c0ffee" {
		t.Errorf("expected original tint restored, got %s", got)
	}
}

func TestPanelStrategyEmitsWidgetEvents(t *testing.T) {
	bus := events.NewBus()
	hs := NewPanelStrategy(bus, "panel-3", "#101010")

	if err := hs.ApplyHighlight(routing.SlotTVPreview); err != nil {
		t.Fatal(err)
	}
	if err := hs.RemoveHighlight(); err != nil {
		t.Fatal(err)
	}
	if err := hs.ApplyConflictHighlight(); err != nil {
		t.Fatal(err)
	}

	snap := bus.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 events, got %d", len(snap))
	}
	if snap[0].Name != "highlight.applied" || snap[0].Fields["color"] != TintTVPreview {
		t.Errorf("unexpected first event: %+v", snap[0])
	}
	if snap[1].Name != "highlight.removed" || snap[1].Fields["color"] != "#101010" {
		t.Errorf("expected original color restored, got %+v", snap[1])
	}
	if snap[2].Name != "highlight.conflict" || snap[2].Fields["color"] != TintConflict {
		t.Errorf("unexpected conflict event: %+v", snap[2])
	}
}

func TestStrategiesShareConflictPolicy(t *testing.T) {
	pub := &capturingPublisher{}
	material := NewMaterialStrategy(pub, "t", "#000")
	panel := NewPanelStrategy(events.NewBus(), "w", "#000")

	conflicted := []routing.Slot{routing.SlotStudioLive, routing.SlotTVPreview}
	clean := []routing.Slot{routing.SlotStudioPreview, routing.SlotStudioLive}

	if !material.HasConflictingAssignments(conflicted) || !panel.HasConflictingAssignments(conflicted) {
		t.Error("both strategies must flag cross-family occupancy")
	}
	if material.HasConflictingAssignments(clean) || panel.HasConflictingAssignments(clean) {
		t.Error("same-family occupancy is not a conflict")
	}
}

func TestTintForSlot(t *testing.T) {
	if TintForSlot(routing.SlotStudioLive) != TintStudioLive {
		t.Error("wrong tint for StudioLive")
	}
	if TintForSlot(routing.SlotTVLive) != TintTVLive {
		t.Error("wrong tint for TVLive")
	}
}
