// Package main provides the entry point for the indexscope CLI.
package main

import (
	"os"

	"github.com/seekerlabs/indexscope/cmd/indexscope/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
