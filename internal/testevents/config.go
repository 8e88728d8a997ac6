package testevents

import (
	"time"

	"github.com/RyDizz214/snappier-server-docker/internal/domain/types"
)

// Config holds configuration for the replay run
type Config struct {
	BaseURL        string        // Base URL of the notify service
	NumEvents      int           // Number of events to generate
	Workers        int           // Number of concurrent senders
	Timeout        time.Duration // HTTP request timeout
	DuplicateRatio float64       // Share of events that repeat an earlier one
	Seed           uint64        // Generator seed; 0 picks one from the clock
	OutputFile     string        // Output file for events
	LogFile        string        // Log file for test output
	Verbose        bool          // Log every response
}

// Event is one webhook payload.
type Event map[string]any

// Stats holds replay statistics
type Stats struct {
	EventsGenerated   int
	DuplicatesPlanted int
	EventsSubmitted   int
	Delivered         int
	Deduplicated      int
	Suppressed        int
	Rejected          int
	Failed            int
	HealthBefore      types.Health
	HealthAfter       types.Health
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
