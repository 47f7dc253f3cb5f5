// Package main is the entry point for the kvstore server and tools.
package main

import (
	"os"

	"github.com/ASHISH26940/kvstore/cmd/kvstore/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
