// Package main provides the entry point for the plank CLI.
package main

import (
	"os"

	"github.com/randalmurphal/plank/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
