package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `
version: 1
session:
  id: studio-7
  name: Evening Broadcast
network:
  ui_port: 9090
compositor:
  url: ws://mixer.local:4455
  gate_timeout_sec: 5
  slot_scenes:
    StudioLive: "Studio Program"
audio:
  broadcast_bus: air
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "control.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSessionConfig(t *testing.T) {
	cfg, err := LoadSessionConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Session.ID != "studio-7" {
		t.Errorf("expected session id studio-7, got %s", cfg.Session.ID)
	}
	if cfg.UIPort() != 9090 {
		t.Errorf("expected ui port 9090, got %d", cfg.UIPort())
	}
	if cfg.CompositorURL() != "ws://mixer.local:4455" {
		t.Errorf("unexpected compositor url: %s", cfg.CompositorURL())
	}
	if cfg.GateTimeoutSec() != 5 {
		t.Errorf("expected gate timeout 5, got %d", cfg.GateTimeoutSec())
	}
}

func TestLoadSessionConfig_Defaults(t *testing.T) {
	cfg, err := LoadSessionConfig(writeConfig(t, "version: 1\nsession:\n  id: s1\n"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.UIPort() != 8080 {
		t.Errorf("expected default ui port, got %d", cfg.UIPort())
	}
	if cfg.CompositorURL() != "ws://localhost:4455" {
		t.Errorf("expected default compositor url, got %s", cfg.CompositorURL())
	}
	if cfg.RequestTimeoutSec() != 10 || cfg.GateTimeoutSec() != 10 {
		t.Error("expected default timeouts of 10s")
	}
	if cfg.BroadcastBus() != "program" || cfg.MonitorBus() != "monitor" {
		t.Error("expected default audio bus names")
	}
	if cfg.ClickTopic() != "controlroom/s1/clicks" {
		t.Errorf("unexpected click topic: %s", cfg.ClickTopic())
	}
}

func TestSceneForSlot(t *testing.T) {
	cfg, err := LoadSessionConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatal(err)
	}

	if got := cfg.SceneForSlot("StudioLive"); got != "Studio Program" {
		t.Errorf("expected mapped scene name, got %s", got)
	}
	// Unmapped slots fall back to the slot name.
	if got := cfg.SceneForSlot("TVLive"); got != "TVLive" {
		t.Errorf("expected fallback scene name, got %s", got)
	}
}

func TestLoadSessionConfig_Invalid(t *testing.T) {
	if _, err := LoadSessionConfig(writeConfig(t, "version: 2\nsession:\n  id: s1\n")); err == nil {
		t.Error("expected error for unsupported version")
	}
	if _, err := LoadSessionConfig(writeConfig(t, "version: 1\n")); err == nil {
		t.Error("expected error for missing session id")
	}
}

func TestSourceRoster(t *testing.T) {
	cfg, err := LoadSessionConfig(writeConfig(t, `
version: 1
session:
  id: s1
sources:
  - id: cam1
    kind: camera
    stream: rtmp_cam1
    highlight: material
    tint: "#ffffff"
  - id: split4
    kind: composite
    stream: quad_view
    sub_sources: [cam1, cam2]
destinations:
  StudioLive: main_program_receiver
`))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if len(cfg.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(cfg.Sources))
	}
	if cfg.Sources[0].Highlight != "material" || cfg.Sources[0].Tint != "#ffffff" {
		t.Errorf("unexpected highlight config: %+v", cfg.Sources[0])
	}
	if len(cfg.Sources[1].SubSources) != 2 {
		t.Errorf("expected 2 sub-sources, got %v", cfg.Sources[1].SubSources)
	}
	if got := cfg.ReceiverHandle("StudioLive"); got != "main_program_receiver" {
		t.Errorf("expected mapped receiver handle, got %s", got)
	}
	if got := cfg.ReceiverHandle("TVLive"); got != "receiver_TVLive" {
		t.Errorf("expected default receiver handle, got %s", got)
	}
}

func TestSourceRosterValidation(t *testing.T) {
	cases := []struct {
		name    string
		sources string
	}{
		{"missing id", "sources:\n  - kind: camera\n"},
		{"duplicate id", "sources:\n  - id: cam1\n  - id: cam1\n"},
		{"bad kind", "sources:\n  - id: cam1\n    kind: hologram\n"},
		{"bad highlight", "sources:\n  - id: cam1\n    highlight: strobe\n"},
		{"composite without subs", "sources:\n  - id: q1\n    kind: composite\n"},
	}
	for _, tc := range cases {
		_, err := LoadSessionConfig(writeConfig(t, "version: 1\nsession:\n  id: s1\n"+tc.sources))
		if err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestSlotKeyedMapsAreValidated(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"typoed destination slot", "destinations:\n  TVPrevew: rx-tv\n"},
		{"typoed slot scene", "compositor:\n  slot_scenes:\n    studio_live: program\n"},
	}
	for _, tc := range cases {
		_, err := LoadSessionConfig(writeConfig(t, "version: 1\nsession:\n  id: s1\n"+tc.body))
		if err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}

	// Correct wire names load fine.
	cfg, err := LoadSessionConfig(writeConfig(t, "version: 1\nsession:\n  id: s1\ndestinations:\n  TVPreview: rx-tv\ncompositor:\n  slot_scenes:\n    StudioLive: program\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ReceiverHandle("TVPreview") != "rx-tv" {
		t.Errorf("expected configured handle, got %s", cfg.ReceiverHandle("TVPreview"))
	}
}

func TestResolveSecret(t *testing.T) {
	t.Setenv("CR_TEST_SECRET", "plain-value")
	v, err := ResolveSecret("CR_TEST_SECRET")
	if err != nil {
		t.Fatal(err)
	}
	if v != "plain-value" {
		t.Errorf("expected plain-value, got %q", v)
	}

	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CR_TEST_SECRET_FILE", path)

	v, err = ResolveSecret("CR_TEST_SECRET")
	if err != nil {
		t.Fatal(err)
	}
	if v != "from-file" {
		t.Errorf("expected file value to win, got %q", v)
	}

	t.Setenv("CR_TEST_SECRET_FILE", filepath.Join(t.TempDir(), "missing"))
	if _, err := ResolveSecret("CR_TEST_SECRET"); err == nil {
		t.Error("expected error for unreadable secret file")
	}
}
