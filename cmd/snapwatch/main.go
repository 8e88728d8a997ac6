// Package main implements snapwatch, the sidecar that keeps the recording
// server's JSON files tidy and watches its health.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/RyDizz214/snappier-server-docker/internal/config"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
)

// cfg is loaded before any subcommand runs and supplies flag fallbacks.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "snapwatch",
	Short:         "Snappier file watchers and notify client",
	Long:          "snapwatch upgrades http:// links in guide files, sanitizes the schedules file, watches server health and talks to the notify webhook.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Init(); err != nil {
			return err
		}
		loaded, err := config.Load(cmd.Context())
		if err != nil {
			return err
		}
		if err := logger.SetLevelString(loaded.LogLevel); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
