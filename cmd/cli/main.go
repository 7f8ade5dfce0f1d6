// Package main is the entry point for syncctl.
// syncctl is the terminal tool for pushing sync batches and inspecting sync history.
package main

import (
	"os"

	"syncbridge/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
