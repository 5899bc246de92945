package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	orig := cliVersion
	defer SetVersion(orig)
	SetVersion("1.2.3")

	cmd := NewVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "clickctl 1.2.3") {
		t.Errorf("unexpected version output: %s", out.String())
	}
}
