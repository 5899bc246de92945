package main

import (
	"fmt"
	"os"

	"github.com/strandcast/controlroom/cmd/clickctl/commands"
	"github.com/strandcast/controlroom/internal/version"
)

func main() {
	commands.SetVersion(version.Version)

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
