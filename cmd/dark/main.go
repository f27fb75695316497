// Package main is the entry point for the dark CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/dark/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
