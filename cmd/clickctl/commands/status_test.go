package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func withHost(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(handler)
	orig := hostURL
	hostURL = ts.URL
	t.Cleanup(func() {
		hostURL = orig
		ts.Close()
	})
}

func TestStatusCmd(t *testing.T) {
	withHost(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assignments" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"assignments":{"TVLive":"cam2"},"active_sources":["cam2"],"gates":{"Studio":false,"TV":true}}`))
	})

	cmd := NewStatusCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := runStatus(cmd, nil); err != nil {
		t.Fatalf("status failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{"TVLive", "cam2", "gate TV        blocked", "gate Studio    open"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestStatusCmd_HostError(t *testing.T) {
	withHost(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	if err := runStatus(NewStatusCmd(), nil); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestPromoteCmd(t *testing.T) {
	var gotSide string
	withHost(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/operator/promote" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body struct {
			Side string `json:"side"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		gotSide = body.Side
		w.Write([]byte(`{"ok":true}`))
	})

	cmd := NewPromoteCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := runPromote(cmd, []string{"TV"}); err != nil {
		t.Fatalf("promote failed: %v", err)
	}
	if gotSide != "TV" {
		t.Errorf("expected side TV, got %q", gotSide)
	}
}

func TestPromoteCmd_HostRejects(t *testing.T) {
	withHost(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error":"unknown side: Radio"}`))
	})

	err := runPromote(NewPromoteCmd(), []string{"Radio"})
	if err == nil || !strings.Contains(err.Error(), "unknown side") {
		t.Errorf("expected host rejection to surface, got %v", err)
	}
}
