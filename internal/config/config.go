package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/strandcast/controlroom/internal/routing"
)

type SessionConfig struct {
	Version int `yaml:"version"`
	Session struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"session"`
	Network struct {
		UIPort   int `yaml:"ui_port"`
		MQTTPort int `yaml:"mqtt_port"`
		DBPort   int `yaml:"db_port"`
	} `yaml:"network"`
	Compositor struct {
		URL               string            `yaml:"url"`
		RequestTimeoutSec int               `yaml:"request_timeout_sec"`
		GateTimeoutSec    int               `yaml:"gate_timeout_sec"`
		SlotScenes        map[string]string `yaml:"slot_scenes"`
	} `yaml:"compositor"`
	Audio struct {
		BroadcastBus string `yaml:"broadcast_bus"`
		MonitorBus   string `yaml:"monitor_bus"`
		CommandTopic string `yaml:"command_topic"`
	} `yaml:"audio"`
	Sources []SourceConfig `yaml:"sources"`
	// Destinations maps slot names to receiver handles. Slots not listed
	// get a conventional handle derived from the slot name.
	Destinations map[string]string `yaml:"destinations"`
}

// SourceConfig declares one routable source for the session.
type SourceConfig struct {
	ID     string `yaml:"id"`
	Kind   string `yaml:"kind"`   // camera, static or composite
	Stream string `yaml:"stream"` // receiver stream name

	// Highlight selects the feedback variant: "material" tints the stream
	// preview, "panel" recolors a control-panel widget, "" disables it.
	Highlight string `yaml:"highlight"`
	Tint      string `yaml:"tint"`   // material: tint to restore on release
	Widget    string `yaml:"widget"` // panel: widget identifier
	Color     string `yaml:"color"`  // panel: color to restore on release

	SubSources []string `yaml:"sub_sources"` // composite only
}

// UIPort returns the configured UI port, defaulting to 8080 if not set.
func (c *SessionConfig) UIPort() int {
	if c.Network.UIPort == 0 {
		return 8080
	}
	return c.Network.UIPort
}

// CompositorURL returns the compositor control endpoint, defaulting to the
// conventional local port.
func (c *SessionConfig) CompositorURL() string {
	if c.Compositor.URL == "" {
		return "ws://localhost:4455"
	}
	return c.Compositor.URL
}

// RequestTimeoutSec returns the compositor request timeout, default 10s.
func (c *SessionConfig) RequestTimeoutSec() int {
	if c.Compositor.RequestTimeoutSec == 0 {
		return 10
	}
	return c.Compositor.RequestTimeoutSec
}

// GateTimeoutSec returns the promotion gate ceiling, default 10s.
func (c *SessionConfig) GateTimeoutSec() int {
	if c.Compositor.GateTimeoutSec == 0 {
		return 10
	}
	return c.Compositor.GateTimeoutSec
}

// SceneForSlot returns the compositor scene name configured for a slot,
// falling back to the slot name itself.
func (c *SessionConfig) SceneForSlot(slot string) string {
	if name, ok := c.Compositor.SlotScenes[slot]; ok && name != "" {
		return name
	}
	return slot
}

// BroadcastBus returns the broadcast audio bus name, default "program".
func (c *SessionConfig) BroadcastBus() string {
	if c.Audio.BroadcastBus == "" {
		return "program"
	}
	return c.Audio.BroadcastBus
}

// MonitorBus returns the monitor-only audio bus name, default "monitor".
func (c *SessionConfig) MonitorBus() string {
	if c.Audio.MonitorBus == "" {
		return "monitor"
	}
	return c.Audio.MonitorBus
}

// AudioCommandTopic returns the MQTT topic audio bus switches are published
// to, defaulting to a session-scoped topic.
func (c *SessionConfig) AudioCommandTopic() string {
	if c.Audio.CommandTopic != "" {
		return c.Audio.CommandTopic
	}
	return fmt.Sprintf("controlroom/%s/audio", c.Session.ID)
}

// ClickTopic returns the MQTT topic click events arrive on.
func (c *SessionConfig) ClickTopic() string {
	return fmt.Sprintf("controlroom/%s/clicks", c.Session.ID)
}

// HighlightTopic returns the MQTT command topic for a prop's highlight
// commands.
func (c *SessionConfig) HighlightTopic(sourceID string) string {
	return fmt.Sprintf("controlroom/%s/props/%s/commands", c.Session.ID, sourceID)
}

// ReceiverHandle returns the stream receiver handle for a slot. Unlisted
// slots get "receiver_<slot>".
func (c *SessionConfig) ReceiverHandle(slot string) string {
	if handle, ok := c.Destinations[slot]; ok && handle != "" {
		return handle
	}
	return "receiver_" + slot
}

func LoadSessionConfig(path string) (*SessionConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg SessionConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported control.yaml version: %d", cfg.Version)
	}

	if cfg.Session.ID == "" {
		return nil, fmt.Errorf("control.yaml: session.id is required")
	}

	seen := make(map[string]bool)
	for i, src := range cfg.Sources {
		if src.ID == "" {
			return nil, fmt.Errorf("control.yaml: sources[%d]: id is required", i)
		}
		if seen[src.ID] {
			return nil, fmt.Errorf("control.yaml: duplicate source id: %s", src.ID)
		}
		seen[src.ID] = true

		switch src.Kind {
		case "camera", "static", "composite", "":
		default:
			return nil, fmt.Errorf("control.yaml: source %s: unknown kind: %s", src.ID, src.Kind)
		}
		switch src.Highlight {
		case "material", "panel", "":
		default:
			return nil, fmt.Errorf("control.yaml: source %s: unknown highlight variant: %s", src.ID, src.Highlight)
		}
		if src.Kind == "composite" && len(src.SubSources) == 0 {
			return nil, fmt.Errorf("control.yaml: source %s: composite source needs sub_sources", src.ID)
		}
	}

	// Slot-keyed maps are validated up front so a typoed slot name fails the
	// session load instead of silently falling back to defaults.
	for slot := range cfg.Destinations {
		if _, err := routing.ParseSlot(slot); err != nil {
			return nil, fmt.Errorf("control.yaml: destinations: %w", err)
		}
	}
	for slot := range cfg.Compositor.SlotScenes {
		if _, err := routing.ParseSlot(slot); err != nil {
			return nil, fmt.Errorf("control.yaml: compositor.slot_scenes: %w", err)
		}
	}

	return &cfg, nil
}
