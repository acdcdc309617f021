// Package main is the entry point for the nudge review digest relay.
package main

import (
	"fmt"
	"os"

	"github.com/danielolaszy/nudge/cmd"
	"github.com/danielolaszy/nudge/internal/logging"
)

const version = "1.0.0"

// main executes the root command and exits non-zero on failure.
func main() {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	logging.Debug("starting nudge", "version", version, "log_level", logLevel)

	if err := cmd.Execute(); err != nil {
		logging.Error("command execution failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
