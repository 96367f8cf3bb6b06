// Package main is the entry point for the shroud server.
package main

import (
	"fmt"
	"os"

	"github.com/shroudlabs/shroud/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
