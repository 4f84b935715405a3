package main

import (
	"os"

	"github.com/warp/contribution-engine/cmd/contrib/commands"
)

// main is the entry point for the contrib CLI: contrib [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
