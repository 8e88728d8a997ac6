package guide

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/RyDizz214/snappier-server-docker/internal/domain/model"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/normalize"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/scoring"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
	"github.com/RyDizz214/snappier-server-docker/pkg/metrics"
)

const (
	pastTitleScanCap = 100
	fallbackScanCap  = 10
	debugTopN        = 3
)

// startDeltas are the neighbouring start buckets probed, in order.
var startDeltas = [...]int64{0, -60, 60, -120, 120}

// Query is a local guide lookup.
type Query struct {
	Channel    string
	Title      string
	Start      string
	PreferPast bool
}

// Matcher finds the guide programme that best fits a query.
type Matcher struct {
	store      *Store
	goodEnough float64
	logger     logger.Logger
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithGoodEnough sets the score at which candidate evaluation stops early.
func WithGoodEnough(score float64) MatcherOption {
	return func(m *Matcher) {
		if score > 0 {
			m.goodEnough = score
		}
	}
}

// WithMatcherLogger sets the logger.
func WithMatcherLogger(l logger.Logger) MatcherOption {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMatcher creates a matcher over store.
func NewMatcher(store *Store, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		store:      store,
		goodEnough: scoring.DefaultGoodEnough,
		logger:     logger.Get().Named("matcher"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type scored struct {
	pos    int
	result scoring.Result
}

// Find returns the best programme for q, or false when the guide holds no
// candidate at all.
func (m *Matcher) Find(ctx context.Context, q Query) (model.Programme, bool) {
	idx := m.store.Current(ctx).Index
	if idx.Len() == 0 {
		return model.Programme{}, false
	}

	sq := scoring.NewQuery(q.Title, q.Channel, q.Start, q.PreferPast)
	candidates := m.candidates(idx, sq)
	if len(candidates) == 0 {
		return model.Programme{}, false
	}

	sel := scoring.NewSelector(sq.PreferPast, m.goodEnough)
	debug := make([]scored, 0, len(candidates))
	for _, pos := range candidates {
		c := idx.candidates[pos]
		r := scoring.Score(sq, c)
		stop := sel.Offer(pos, c, &r)
		debug = append(debug, scored{pos: pos, result: r})
		if stop {
			break
		}
	}

	pos, score, _ := sel.Best()
	metrics.RecordMatchScore(score)
	m.logTop(ctx, idx, sq, debug)

	return m.augment(idx, idx.Event(pos)), true
}

// candidates gathers positions in stage order without repeats.
func (m *Matcher) candidates(idx *Index, q scoring.Query) []int {
	var out []int
	seen := make(map[int]struct{})
	add := func(pos int) {
		if _, ok := seen[pos]; ok {
			return
		}
		seen[pos] = struct{}{}
		out = append(out, pos)
	}

	switch {
	case q.PreferPast && q.TitleNorm != "":
		// Catch-ups may arrive hours after airing, so title beats start time.
		for pos, c := range idx.candidates {
			if c.TitleNorm == q.TitleNorm || strings.Contains(c.TitleNorm, q.TitleNorm) {
				add(pos)
				if len(out) >= pastTitleScanCap {
					break
				}
			}
		}
	case q.HasStart:
		for _, d := range startDeltas {
			for _, pos := range idx.StartBucket(q.Start + d) {
				add(pos)
			}
		}
	}

	if q.TitleKey != "" && !q.PreferPast {
		for _, pos := range idx.TitleBucket(q.TitleKey) {
			add(pos)
		}
		if q.TitleNorm != "" && q.TitleNorm != q.TitleKey {
			for _, pos := range idx.TitleBucket(q.TitleNorm) {
				add(pos)
			}
		}
	}

	if len(out) == 0 && q.TitleKey != "" {
		for pos, c := range idx.candidates {
			if c.TitleKey == q.TitleKey || c.TitleNorm == q.TitleNorm {
				add(pos)
				if len(out) >= fallbackScanCap {
					break
				}
			}
		}
	}

	if len(out) == 0 && q.ChannelClean != "" {
		for pos, c := range idx.candidates {
			if c.ChannelClean != "" && strings.EqualFold(c.ChannelClean, q.ChannelClean) {
				add(pos)
				break
			}
		}
	}

	return out
}

// augment attaches the channel display name and cleaned channel id.
func (m *Matcher) augment(idx *Index, ev model.GuideEvent) model.Programme {
	p := model.Programme{GuideEvent: ev}
	if ev.Channel == "" {
		return p
	}
	p.ChannelClean = normalize.CleanChannel(ev.Channel)
	if name, ok := idx.DisplayName(ev.Channel); ok {
		p.ChannelName = name
	} else if name, ok := idx.DisplayName(p.ChannelClean); ok {
		p.ChannelName = name
	}
	return p
}

func (m *Matcher) logTop(ctx context.Context, idx *Index, q scoring.Query, all []scored) {
	if len(all) == 0 {
		return
	}
	slices.SortStableFunc(all, func(a, b scored) int {
		return cmp.Compare(b.result.Score, a.result.Score)
	})
	for i, s := range all[:min(debugTopN, len(all))] {
		ev := idx.Event(s.pos)
		m.logger.Debug(ctx, "guide match candidate",
			logger.String("query_title", q.TitleKey),
			logger.Int("rank", i+1),
			logger.String("channel", ev.Channel),
			logger.String("title", ev.Title),
			logger.Float64("score", s.result.Score),
			logger.String("breakdown", s.result.Breakdown.String()),
		)
	}
}
