// Package scoring ranks guide records against a lookup query.
//
// Score is a pure function; Selector applies the keep-best rule over a
// stream of scored candidates.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/RyDizz214/snappier-server-docker/internal/domain/model"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/normalize"
)

// DefaultGoodEnough stops candidate evaluation once a selected score reaches it.
const DefaultGoodEnough = 12

const (
	secondsPerHour = 3600
	secondsPerDay  = 86400
	maxPriority    = 3
)

// Query is a normalized lookup request.
type Query struct {
	TitleKey     string
	TitleNorm    string
	ChannelClean string
	Start        int64
	HasStart     bool
	PreferPast   bool
}

// NewQuery normalizes the raw lookup fields once so every candidate is
// compared against the same keys.
func NewQuery(title, channel, start string, preferPast bool) Query {
	q := Query{
		TitleKey:     normalize.TitleKey(title),
		ChannelClean: normalize.CleanChannel(channel),
		PreferPast:   preferPast,
	}
	q.TitleNorm = normalize.StripPunct(q.TitleKey)
	q.Start, q.HasStart = normalize.NormalizeStart(start)
	return q
}

// Candidate is a guide record with its comparison keys precomputed.
type Candidate struct {
	Title        string
	TitleKey     string
	TitleNorm    string
	Channel      string
	ChannelClean string
	Start        int64
	HasStart     bool
	Priority     *int
}

// NewCandidate derives comparison keys from a guide record.
func NewCandidate(ev model.GuideEvent) Candidate {
	c := Candidate{
		Title:        ev.Title,
		TitleKey:     normalize.TitleKey(ev.Title),
		Channel:      ev.Channel,
		ChannelClean: normalize.CleanChannel(ev.Channel),
		Priority:     ev.Priority,
	}
	c.TitleNorm = normalize.StripPunct(c.TitleKey)
	c.Start, c.HasStart = normalize.NormalizeStart(ev.Start)
	return c
}

// Breakdown itemizes the contributions to a score.
type Breakdown struct {
	Title         string  `json:"title,omitempty"`
	TitlePoints   int     `json:"title_points,omitempty"`
	Time          string  `json:"time,omitempty"`
	TimePoints    int     `json:"time_points,omitempty"`
	DistanceBonus float64 `json:"distance_bonus,omitempty"`
	PastBonus     int     `json:"past_bonus,omitempty"`
	FuturePenalty int     `json:"future_penalty,omitempty"`
	Channel       string  `json:"channel,omitempty"`
	ChannelPoints int     `json:"channel_points,omitempty"`
	Network       string  `json:"network,omitempty"`
	NetworkPoints int     `json:"network_points,omitempty"`
	Priority      int     `json:"priority,omitempty"`
	EarlierAiring bool    `json:"earlier_airing,omitempty"`
}

func (b Breakdown) String() string {
	parts := make([]string, 0, 8)
	if b.Title != "" {
		parts = append(parts, fmt.Sprintf("%s=%d", b.Title, b.TitlePoints))
	}
	if b.Time != "" {
		parts = append(parts, fmt.Sprintf("%s=%d", b.Time, b.TimePoints))
	}
	if b.DistanceBonus != 0 {
		parts = append(parts, fmt.Sprintf("distance_bonus=%.1f", b.DistanceBonus))
	}
	if b.PastBonus != 0 {
		parts = append(parts, fmt.Sprintf("past_bonus=%d", b.PastBonus))
	}
	if b.FuturePenalty != 0 {
		parts = append(parts, fmt.Sprintf("future_penalty=%d", b.FuturePenalty))
	}
	if b.Channel != "" {
		parts = append(parts, fmt.Sprintf("%s=%d", b.Channel, b.ChannelPoints))
	}
	if b.Network != "" {
		parts = append(parts, fmt.Sprintf("%s=%d", b.Network, b.NetworkPoints))
	}
	if b.Priority != 0 {
		parts = append(parts, fmt.Sprintf("priority=%d", b.Priority))
	}
	if b.EarlierAiring {
		parts = append(parts, "earlier_tiebreaker=preferred")
	}
	return strings.Join(parts, ", ")
}

// Result is a candidate's score and how it was reached.
type Result struct {
	Score     float64
	Breakdown Breakdown
}

// Score rates how well c matches q. Higher is better; the value may be negative.
func Score(q Query, c Candidate) Result {
	var r Result
	b := &r.Breakdown

	if q.TitleKey != "" && c.TitleKey != "" {
		switch {
		case c.TitleNorm == q.TitleNorm:
			b.Title, b.TitlePoints = "title_exact", 6
		case strings.Contains(c.TitleNorm, q.TitleNorm) || strings.Contains(q.TitleNorm, c.TitleNorm):
			b.Title, b.TitlePoints = "title_normalized_match", 4
		case strings.Contains(c.TitleKey, q.TitleKey):
			b.Title, b.TitlePoints = "title_partial", 3
		}
	}

	if q.HasStart && c.HasStart {
		offset := c.Start - q.Start // positive means the candidate airs later
		diff := offset
		if diff < 0 {
			diff = -diff
		}
		switch {
		case diff == 0:
			b.Time, b.TimePoints = "time_exact", 20
		case diff <= 60:
			b.Time, b.TimePoints = "time_1min", 10
		case diff <= 180:
			b.Time, b.TimePoints = "time_3min", 5
		case diff <= 600:
			b.Time, b.TimePoints = "time_10min", 2
		}

		if q.PreferPast {
			if diff <= secondsPerDay {
				hours := float64(diff) / secondsPerHour
				b.DistanceBonus = math.Max(0, 3-hours/8)
			}
			switch {
			case offset < -secondsPerHour:
				b.PastBonus = 5
			case offset > secondsPerHour:
				b.FuturePenalty = -15
			}
		}
	}

	if q.ChannelClean != "" && c.ChannelClean != "" {
		want, have := strings.ToLower(q.ChannelClean), strings.ToLower(c.ChannelClean)
		switch {
		case have == want:
			b.Channel, b.ChannelPoints = "channel_exact", 4
		case strings.Contains(have, want):
			b.Channel, b.ChannelPoints = "channel_partial", 2
		}
	}

	b.Network, b.NetworkPoints = networkTier(c.Channel)

	if c.Priority != nil {
		b.Priority = min(max(*c.Priority, 0), maxPriority)
	}

	r.Score = float64(b.TitlePoints+b.TimePoints+b.PastBonus+b.FuturePenalty+
		b.ChannelPoints+b.NetworkPoints+b.Priority) + b.DistanceBonus
	return r
}

// networkTier applies the first matching network preference only.
func networkTier(channel string) (string, int) {
	ch := strings.ToUpper(channel)
	switch {
	case containsAny(ch, "FOXNEWS", "FOX NEWS"):
		return "network_foxnews", 5
	case containsAny(ch, "NBC", "CBS", "ABC", "FOX"):
		return "network_major", 3
	case containsAny(ch, "AMC", "TNT", "USA", "TBS", "BRAVO", "FX", "HULU"):
		return "network_cable", 4
	case containsAny(ch, "AFN", "MILITARY"):
		return "network_afn_penalty", -10
	}
	return "", 0
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
