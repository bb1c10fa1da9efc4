// Package main is the entry point for ticket-sentinel.
package main

import (
	"os"

	"github.com/fieldops/ticket-sentinel/cmd/ticket-sentinel/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
