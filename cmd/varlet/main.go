// Package main provides the entry point for the varlet CLI.
package main

import (
	"fmt"
	"os"

	"github.com/varlet-dev/varlet/cmd/varlet/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
