package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/treefs/treefs"
)

// Exit codes: 0 clean unmount, 1 document validation failure, 2 mount
// failure, 64 command-line misuse.
const (
	exitDocument = 1
	exitMount    = 2
	exitUsage    = 64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "treefs: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, treefs.ErrInvalidDocument):
		return exitDocument
	case errors.Is(err, treefs.ErrMount):
		return exitMount
	default:
		// Rejected flag values and cobra parse errors are both
		// command-line misuse.
		return exitUsage
	}
}
