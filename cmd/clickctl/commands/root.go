// Package commands implements the clickctl CLI: a director-side tool that
// publishes click events and promotion requests to a control-room host.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	sessionID string
	hostURL   string
)

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clickctl",
		Short: "Drive a control-room routing host from the command line",
		Long: `clickctl sends the same click events a scene client would publish and
queries the host's routing state. Useful for rehearsals, panel-less
setups and scripting.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&sessionID, "session", defaultSession(), "session id (topic namespace)")
	cmd.PersistentFlags().StringVar(&hostURL, "host", defaultHost(), "host API base URL")

	cmd.AddCommand(NewClickCmd())
	cmd.AddCommand(NewPromoteCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

func defaultSession() string {
	if v := os.Getenv("CONTROLROOM_SESSION"); v != "" {
		return v
	}
	return "default"
}

func defaultHost() string {
	if v := os.Getenv("CONTROLROOM_HOST"); v != "" {
		return v
	}
	return "http://localhost:8080"
}
