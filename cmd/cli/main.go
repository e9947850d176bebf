package main

import (
	"os"

	"github.com/supportops/triage-gateway/cmd/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
