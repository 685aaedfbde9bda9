// Package main provides the entry point for the LifeOS chat client.
package main

import (
	"fmt"
	"os"

	"lifeos/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
