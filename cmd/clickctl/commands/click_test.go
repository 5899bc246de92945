package commands

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestClickCmd_RejectsBadArgs(t *testing.T) {
	cases := []struct {
		name string
		args []string
		flag string
	}{
		{"bad kind", []string{"widget", "cam1"}, ""},
		{"bad button", []string{"source", "cam1"}, "middle"},
	}

	for _, tc := range cases {
		cmd := NewClickCmd()
		if tc.flag != "" {
			if err := cmd.Flags().Set("button", tc.flag); err != nil {
				t.Fatal(err)
			}
		}
		err := runClick(cmd, tc.args)
		if err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
		// Validation must fail before any broker connection is attempted
		if err != nil && strings.Contains(err.Error(), "broker") {
			t.Errorf("%s: validation reached the broker: %v", tc.name, err)
		}
		clickButton = "left"
	}
}

func TestClickPayloadShape(t *testing.T) {
	data, err := json.Marshal(clickPayload{
		Kind:     "destination",
		Button:   "right",
		Slot:     "StudioPreview",
		Director: "alex",
	})
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["kind"] != "destination" || decoded["button"] != "right" {
		t.Errorf("unexpected payload: %s", data)
	}
	if decoded["slot"] != "StudioPreview" {
		t.Errorf("expected slot field, got %s", data)
	}
	if _, ok := decoded["source_id"]; ok {
		t.Error("destination click must not carry source_id")
	}
}
