// Package main is the entry point for the jewelquote CLI.
package main

import (
	"os"

	"jewelquote/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
