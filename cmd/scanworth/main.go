// Package main is the entry point for scanworth.
package main

import (
	"os"

	"github.com/scanworth/scanworth/cmd/scanworth/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
