package main

import (
	"os"

	"github.com/CrazyWorldPL/IVshop/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
