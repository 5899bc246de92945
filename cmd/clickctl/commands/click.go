package commands

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/strandcast/controlroom/internal/mqtt"
)

var (
	clickButton   string
	clickDirector string
)

// clickPayload mirrors the click wire format the host ingests.
type clickPayload struct {
	Kind     string `json:"kind"`
	Button   string `json:"button"`
	SourceID string `json:"source_id,omitempty"`
	Slot     string `json:"slot,omitempty"`
	Director string `json:"director,omitempty"`
}

// NewClickCmd creates the click command.
func NewClickCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "click <source|destination> <id|slot>",
		Short: "Publish a click event to the session click topic",
		Long: `Publish a click as a scene client would.

Examples:
  clickctl click source cam1 --button left      # cam1 -> TV preview
  clickctl click source cam1 --button right     # cam1 -> Studio preview
  clickctl click destination TVPreview --button left   # promote TV`,
		Args: cobra.ExactArgs(2),
		RunE: runClick,
	}

	cmd.Flags().StringVar(&clickButton, "button", "left", "mouse button (left or right)")
	cmd.Flags().StringVar(&clickDirector, "director", "", "director name recorded with the click")

	return cmd
}

func runClick(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	kind := args[0]
	if kind != "source" && kind != "destination" {
		return fmt.Errorf("first argument must be source or destination, got %q", kind)
	}
	if clickButton != "left" && clickButton != "right" {
		return fmt.Errorf("button must be left or right, got %q", clickButton)
	}

	click := clickPayload{
		Kind:     kind,
		Button:   clickButton,
		Director: clickDirector,
	}
	if kind == "source" {
		click.SourceID = args[1]
	} else {
		click.Slot = args[1]
	}

	payload, err := json.Marshal(click)
	if err != nil {
		return err
	}

	client := mqtt.NewClient("clickctl-" + uuid.NewString()[:8])
	if err := client.Connect(); err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer client.Disconnect()

	topic := fmt.Sprintf("controlroom/%s/clicks", sessionID)
	if err := client.Publish(topic, payload); err != nil {
		return fmt.Errorf("publishing click: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "published %s click to %s\n", clickButton, topic)
	return nil
}
