package testevents

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run executes the complete replay.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{
		StartTime: time.Now(),
	}
	if config.Workers <= 0 {
		config.Workers = defaultWorkers
	}

	logger.Get().Info(ctx, "starting notify replay",
		logger.String("baseURL", config.BaseURL),
		logger.Int("events", config.NumEvents),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Float64("duplicateRatio", config.DuplicateRatio),
		logger.Bool("verbose", config.Verbose))

	client := newHTTPClient(config.Timeout)

	// Step 1: Check service health
	before, err := fetchHealth(ctx, client, config.BaseURL)
	if err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	stats.HealthBefore = before

	// Step 2: Generate events
	events := generateEvents(ctx, config, stats)

	// Step 3: Submit events concurrently
	submitEvents(ctx, config, events, stats)

	// Step 4: Read counters again
	after, err := fetchHealth(ctx, client, config.BaseURL)
	if err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	stats.HealthAfter = after

	// Step 5: Verify results
	if err := verifyResults(ctx, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	// Step 6: Save events to file
	if err := saveEventsToFile(ctx, config, events); err != nil {
		logger.Get().Warn(ctx, "failed to save events to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(ctx, stats)
	return stats, nil
}

// saveEventsToFile saves the generated events to a JSON file.
func saveEventsToFile(ctx context.Context, config *Config, events []Event) error {
	if len(events) == 0 {
		return fmt.Errorf("no events to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_events_" + timestamp + ".json"
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "events saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final replay statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var deliveredRate, eventsPerSecond float64

	if stats.EventsSubmitted > 0 {
		deliveredRate = float64(stats.Delivered) / float64(stats.EventsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("duplicatesPlanted", stats.DuplicatesPlanted),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("delivered", stats.Delivered),
		logger.Int("deduplicated", stats.Deduplicated),
		logger.Int("suppressed", stats.Suppressed),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration),
		logger.Float64("deliveredRate", deliveredRate),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
