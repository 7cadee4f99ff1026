// Package main is the entry point for the monlite wallet CLI.
package main

import (
	"fmt"
	"os"

	"github.com/jasony/monlite/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
