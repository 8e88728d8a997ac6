package testevents

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) error {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "replay_log_" + timestamp + ".log"
	}
	if err := logger.InitWithOptions(logger.Options{File: logFile}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the replay tool.
func ShowHelp() {
	os.Stdout.WriteString(`Snappier Notify Replay Tool
===========================

Generates lifecycle events across the action table and posts them
concurrently to /notify, then reports how each one was handled.

Usage:
  go run ./cmd/test-events [options]

Options:
  -url string
        Base URL of the notify service (default "http://localhost:9080")
  -events int
        Number of events to generate and submit (default 200)
  -workers int
        Number of concurrent senders (default 8)
  -dup float
        Share of events that repeat an earlier one (default 0.2)
  -seed uint
        Generator seed, 0 for a random one
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated events (default: generated_events_TIMESTAMP.json)
  -log string
        Log file for replay output (default: replay_log_TIMESTAMP.log)
  -verbose
        Log every response
  -help
        Show this help message

Examples:
  # Replay against a local instance
  go run ./cmd/test-events

  # Heavier run with more duplicates
  go run ./cmd/test-events -events 5000 -workers 32 -dup 0.5
`)
}
