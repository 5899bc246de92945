package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the host's slot assignments and gate state",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	req, err := http.NewRequest(http.MethodGet, hostURL+"/assignments", nil)
	if err != nil {
		return err
	}
	applyAuth(req)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("contacting host: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("host returned %s", resp.Status)
	}

	var body struct {
		Assignments map[string]string `json:"assignments"`
		Active      []string          `json:"active_sources"`
		Gates       map[string]bool   `json:"gates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, slot := range []string{"StudioPreview", "StudioLive", "TVPreview", "TVLive"} {
		occupant := body.Assignments[slot]
		if occupant == "" {
			occupant = "-"
		}
		fmt.Fprintf(out, "%-14s %s\n", slot, occupant)
	}
	for _, side := range []string{"Studio", "TV"} {
		state := "open"
		if body.Gates[side] {
			state = "blocked"
		}
		fmt.Fprintf(out, "gate %-9s %s\n", side, state)
	}
	if len(body.Active) > 0 {
		fmt.Fprintf(out, "active: %v\n", body.Active)
	}
	return nil
}
