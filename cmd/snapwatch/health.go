package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyDizz214/snappier-server-docker/internal/adapters/watch"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/types"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Poll the recording server and push a warning after repeated failures",
	RunE:  runHealth,
}

var healthCheckCmd = &cobra.Command{
	Use:   "health-check",
	Short: "Print the notify service /health response",
	RunE:  runHealthCheck,
}

var (
	healthBase      string
	healthEndpoint  string
	healthNotifyURL string
	healthInterval  time.Duration
	healthTimeout   time.Duration
	healthExpectMin int
	healthExpectMax int
	healthCooldown  time.Duration
	healthThreshold int
	healthOnce      bool

	healthCheckURL string
)

func init() {
	healthCmd.Flags().StringVar(&healthBase, "base", "", "Recording server base URL (defaults to api_base)")
	healthCmd.Flags().StringVar(&healthEndpoint, "endpoint", "/serverStats", "Path polled on the base URL")
	healthCmd.Flags().StringVar(&healthNotifyURL, "notify-url", "http://127.0.0.1:9080/notify", "Webhook receiving health warnings")
	healthCmd.Flags().DurationVar(&healthInterval, "interval", 30*time.Second, "Time between polls")
	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", 5*time.Second, "Per-poll timeout")
	healthCmd.Flags().IntVar(&healthExpectMin, "expect-min", 200, "Lowest healthy status code")
	healthCmd.Flags().IntVar(&healthExpectMax, "expect-max", 399, "Highest healthy status code")
	healthCmd.Flags().DurationVar(&healthCooldown, "cooldown", 300*time.Second, "Minimum time between warnings")
	healthCmd.Flags().IntVar(&healthThreshold, "threshold", 3, "Consecutive failures before warning")
	healthCmd.Flags().BoolVar(&healthOnce, "once", false, "Poll once and exit")

	healthCheckCmd.Flags().StringVar(&healthCheckURL, "url", "http://127.0.0.1:9080/health", "Notify service health URL")

	rootCmd.AddCommand(healthCmd, healthCheckCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	base := healthBase
	if base == "" {
		base = cfg.APIBase
	}
	watcher := watch.NewHealthWatcher(
		watch.WithHealthTarget(base, healthEndpoint),
		watch.WithNotifyURL(healthNotifyURL),
		watch.WithHealthInterval(healthInterval),
		watch.WithHealthTimeout(healthTimeout),
		watch.WithExpectedStatus(healthExpectMin, healthExpectMax),
		watch.WithWarnCooldown(healthCooldown),
		watch.WithFailThreshold(healthThreshold),
		watch.WithHealthLogger(logger.Get().Named("health")),
	)

	if healthOnce {
		healthy, warned := watcher.Check(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "healthy=%t warned=%t\n", healthy, warned)
		return nil
	}
	watcher.Run(cmd.Context())
	return nil
}

func runHealthCheck(cmd *cobra.Command, _ []string) error {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, healthCheckURL, http.NoBody)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	var h types.Health
	if err := json.Unmarshal(body, &h); err != nil {
		return fmt.Errorf("health check: decode: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(body))
	if resp.StatusCode != http.StatusOK || !h.OK {
		return fmt.Errorf("health check: unhealthy (status %d)", resp.StatusCode)
	}
	return nil
}
