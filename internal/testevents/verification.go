package testevents

import (
	"context"
	"errors"
	"fmt"

	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
)

// ErrNothingDelivered is returned when every submission failed.
var ErrNothingDelivered = errors.New("no event reached the pipeline")

// verifyResults checks the response counts for consistency.
func verifyResults(ctx context.Context, stats *Stats) error {
	log := logger.Get().Named("replay")

	if stats.EventsSubmitted == 0 || stats.Failed == stats.EventsSubmitted {
		return ErrNothingDelivered
	}
	if stats.EventsSubmitted != stats.EventsGenerated {
		return fmt.Errorf("submitted %d of %d events", stats.EventsSubmitted, stats.EventsGenerated)
	}

	// Planted duplicates can fall outside the dedup window or be evicted.
	if stats.Deduplicated < stats.DuplicatesPlanted {
		log.Warn(ctx, "fewer duplicates detected than planted",
			logger.Int("planted", stats.DuplicatesPlanted),
			logger.Int("detected", stats.Deduplicated))
	}

	lookupsBefore := stats.HealthBefore.CacheStats.EPGHits + stats.HealthBefore.CacheStats.EPGMisses
	lookupsAfter := stats.HealthAfter.CacheStats.EPGHits + stats.HealthAfter.CacheStats.EPGMisses
	log.Info(ctx, "result verification completed",
		logger.Int64("guideLookups", lookupsAfter-lookupsBefore),
		logger.Int64("httpsProbes", stats.HealthAfter.CacheStats.HTTPSProbesTotal))
	return nil
}
