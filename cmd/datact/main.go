// Package main is the entry point for the datact CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/koustreak/DatAct/cmd/datact/commands"
)

var (
	// Version information (set by build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := commands.NewRootCommand(fmt.Sprintf("%s (commit: %s)", Version, Commit))
	return root.ExecuteContext(context.Background())
}
