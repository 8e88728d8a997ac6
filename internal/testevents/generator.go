package testevents

import (
	"context"
	"maps"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RyDizz214/snappier-server-docker/internal/domain/message"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
)

// guideTimeLayout matches the timestamps the recording server emits.
const guideTimeLayout = "20060102150405 -0700"

type show struct {
	title   string
	channel string
	desc    string
}

var shows = []show{
	{"Gutfeld!", "FOX News", "Late night comedy."},
	{"Jeopardy!", "ABC", "Answer and question."},
	{"Freddys Nightmares", "US: SYFY", "Anthology horror."},
	{"Heat", "VOD", "A group of professional bank robbers."},
	{"The Bear", "US: FX HD", "S02E03 - Sundae\nCarmy rebuilds the kitchen."},
	{"Nova", "PBS", "Science documentary."},
}

// newRand builds the generator source; a zero seed is taken from the clock.
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

// generateEvents creates config.NumEvents payloads spread over the action
// table. Roughly DuplicateRatio of them repeat an earlier payload verbatim.
func generateEvents(ctx context.Context, config *Config, stats *Stats) []Event {
	logger.Get().Info(ctx, "generating events",
		logger.Int("numEvents", config.NumEvents),
		logger.Float64("duplicateRatio", config.DuplicateRatio))

	rng := newRand(config.Seed)
	actions := message.Actions()
	now := time.Now().UTC()

	events := make([]Event, 0, config.NumEvents)
	planted := 0
	for i := 0; i < config.NumEvents; i++ {
		if i > 0 && rng.Float64() < config.DuplicateRatio {
			events = append(events, maps.Clone(events[rng.IntN(i)]))
			planted++
			continue
		}
		action := actions[rng.IntN(len(actions))]
		events = append(events, generateSingleEvent(rng, action, now.Add(-time.Duration(i)*time.Minute)))
	}

	stats.EventsGenerated = len(events)
	stats.DuplicatesPlanted = planted
	logger.Get().Info(ctx, "generated events successfully",
		logger.Int("count", len(events)),
		logger.Int("duplicates", planted))
	return events
}

// generateSingleEvent creates one payload for action.
func generateSingleEvent(rng *rand.Rand, action string, start time.Time) Event {
	s := shows[rng.IntN(len(shows))]
	jobID := uuid.NewString()

	ev := Event{
		"action":      action,
		"title":       s.title,
		"channel":     s.channel,
		"desc":        s.desc,
		"job_id":      jobID[:8],
		"job_id_full": jobID,
		"file":        "/recordings/" + jobID + ".ts",
		"start":       start.Format(guideTimeLayout),
		"end":         start.Add(time.Hour).Format(guideTimeLayout),
	}
	switch {
	case strings.HasSuffix(action, "_exit"):
		ev["exit_code"] = rng.IntN(2)
		ev["exit_reason"] = "process ended"
	case strings.HasSuffix(action, "_failed"):
		ev["error"] = "ffmpeg exited unexpectedly"
		ev["exit_code"] = 1
	case action == "recording_scheduled":
		ev["scheduled_at"] = start.Add(24 * time.Hour).Format("2006-01-02 03:04 PM")
	}
	return ev
}
