package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewPromoteCmd creates the promote command.
func NewPromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <Studio|TV>",
		Short: "Request a preview-to-live promotion",
		Long: `Ask the host to promote a side's preview occupant to its live slot.
Promotions blocked by the sync gate or an empty preview are logged no-ops
on the host; watch the event stream for the outcome.`,
		Args: cobra.ExactArgs(1),
		RunE: runPromote,
	}
}

func runPromote(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	body, err := json.Marshal(map[string]string{"side": args[0]})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, hostURL+"/operator/promote", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	applyAuth(req)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("contacting host: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("host returned %s", resp.Status)
	}
	if !result.OK {
		return fmt.Errorf("promote failed: %s", result.Error)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "promotion of %s requested\n", args[0])
	return nil
}

// applyAuth attaches admin credentials from the environment when present.
func applyAuth(req *http.Request) {
	user := os.Getenv("CONTROLROOM_ADMIN_USER")
	pass := os.Getenv("CONTROLROOM_ADMIN_PASS")
	if user != "" {
		req.SetBasicAuth(user, pass)
	}
}
