// Package main is the entry point for the careflow CLI.
package main

import (
	"os"

	"github.com/ChristChad-mv/careflow-sub000/cmd/careflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
