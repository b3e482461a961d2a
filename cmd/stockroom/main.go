package main

import (
	"os"

	"github.com/vsinha/stockroom/pkg/interfaces/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
