// Package guide holds the in-memory programme guide: the snapshot loaded from
// disk, the derived lookup index and the programme matcher built on top.
package guide

import (
	"cmp"
	"slices"

	"github.com/RyDizz214/snappier-server-docker/internal/domain/model"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/normalize"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/scoring"
)

const (
	// DefaultMaxEntries bounds the number of indexed entries.
	DefaultMaxEntries = 50000
	// DefaultShrinkDivisor splits the ceiling between start and title buckets.
	DefaultShrinkDivisor = 2

	titleBucketCap = 50
)

// Index is an immutable lookup structure over one snapshot. Buckets hold
// positions into the snapshot's programme list.
type Index struct {
	snapshot   model.GuideSnapshot
	candidates []scoring.Candidate
	byStart    map[int64][]int
	byTitle    map[string][]int
	display    map[string]string
	entries    int
	shrunk     bool
}

type buildConfig struct {
	maxEntries    int
	shrinkDivisor int
}

// IndexOption configures Build.
type IndexOption func(*buildConfig)

// WithMaxEntries sets the index ceiling.
func WithMaxEntries(n int) IndexOption {
	return func(c *buildConfig) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithShrinkDivisor sets the share of the ceiling given to start buckets
// when the index has to shrink.
func WithShrinkDivisor(d int) IndexOption {
	return func(c *buildConfig) {
		if d > 0 {
			c.shrinkDivisor = d
		}
	}
}

// Build indexes snap by normalized start and lowercased title and derives the
// channel display table. When the entry count exceeds the ceiling the most
// recent start buckets and the most populated title buckets are kept.
func Build(snap model.GuideSnapshot, opts ...IndexOption) *Index {
	cfg := buildConfig{maxEntries: DefaultMaxEntries, shrinkDivisor: DefaultShrinkDivisor}
	for _, opt := range opts {
		opt(&cfg)
	}

	idx := &Index{
		snapshot:   snap,
		candidates: make([]scoring.Candidate, len(snap.Programmes)),
		byStart:    make(map[int64][]int),
		byTitle:    make(map[string][]int),
		display:    make(map[string]string),
	}

	for pos, ev := range snap.Programmes {
		c := scoring.NewCandidate(ev)
		idx.candidates[pos] = c
		if c.HasStart {
			idx.byStart[c.Start] = append(idx.byStart[c.Start], pos)
			idx.entries++
		}
		if c.TitleKey != "" && len(idx.byTitle[c.TitleKey]) < titleBucketCap {
			idx.byTitle[c.TitleKey] = append(idx.byTitle[c.TitleKey], pos)
			idx.entries++
		}
	}

	if idx.entries > cfg.maxEntries {
		idx.shrink(cfg.maxEntries, cfg.shrinkDivisor)
	}

	// First write wins, in document order.
	for _, key := range snap.ChannelKeys() {
		meta := snap.Channels[key]
		disp := meta.Display()
		if disp == "" {
			continue
		}
		id := cmp.Or(meta.ID, key)
		for _, variant := range []string{key, id, normalize.CleanChannel(id), normalize.CleanChannel(disp)} {
			if _, ok := idx.display[variant]; variant != "" && !ok {
				idx.display[variant] = disp
			}
		}
	}

	return idx
}

// shrink keeps the newest start buckets within max/divisor entries and fills
// the remaining budget with the most populated title buckets.
func (idx *Index) shrink(maxEntries, divisor int) {
	idx.shrunk = true
	startBudget := maxEntries / divisor

	starts := make([]int64, 0, len(idx.byStart))
	for k := range idx.byStart {
		starts = append(starts, k)
	}
	slices.SortFunc(starts, func(a, b int64) int { return cmp.Compare(b, a) })

	keptStarts := make(map[int64][]int)
	used := 0
	for _, k := range starts {
		bucket := idx.byStart[k]
		if used+len(bucket) > startBudget {
			break
		}
		keptStarts[k] = bucket
		used += len(bucket)
	}

	titles := make([]string, 0, len(idx.byTitle))
	for k := range idx.byTitle {
		titles = append(titles, k)
	}
	slices.SortFunc(titles, func(a, b string) int {
		ba, bb := idx.byTitle[a], idx.byTitle[b]
		if c := cmp.Compare(len(bb), len(ba)); c != 0 {
			return c
		}
		return cmp.Compare(ba[0], bb[0])
	})

	titleBudget := maxEntries - used
	keptTitles := make(map[string][]int)
	for _, k := range titles {
		bucket := idx.byTitle[k]
		if len(bucket) > titleBudget {
			continue
		}
		keptTitles[k] = bucket
		titleBudget -= len(bucket)
		used += len(bucket)
	}

	idx.byStart, idx.byTitle, idx.entries = keptStarts, keptTitles, used
}

// Entries is the number of indexed entries across start and title buckets.
func (idx *Index) Entries() int { return idx.entries }

// Shrunk reports whether the ceiling forced buckets to be dropped.
func (idx *Index) Shrunk() bool { return idx.shrunk }

// Len is the number of programmes in the underlying snapshot.
func (idx *Index) Len() int { return len(idx.candidates) }

// Event returns the programme at pos.
func (idx *Index) Event(pos int) model.GuideEvent { return idx.snapshot.Programmes[pos] }

// StartBucket returns positions airing exactly at start.
func (idx *Index) StartBucket(start int64) []int { return idx.byStart[start] }

// TitleBucket returns positions whose lowercased title equals key.
func (idx *Index) TitleBucket(key string) []int { return idx.byTitle[key] }

// DisplayName resolves a raw or cleaned channel id to its display name.
func (idx *Index) DisplayName(channel string) (string, bool) {
	name, ok := idx.display[channel]
	return name, ok
}
