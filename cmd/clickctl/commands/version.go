package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cliVersion = "dev"

// SetVersion sets the version string shown by the version command (called
// from main).
func SetVersion(v string) {
	cliVersion = v
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "clickctl %s\n", cliVersion)
		},
	}
}
