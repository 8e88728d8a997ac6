package guide

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"

	"github.com/RyDizz214/snappier-server-docker/internal/domain/model"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
	"github.com/RyDizz214/snappier-server-docker/pkg/metrics"
)

// View is one consistent (version, snapshot, index) triple. It is never
// mutated after publication.
type View struct {
	Version time.Time
	Index   *Index
}

// Stats are the store's cumulative counters.
type Stats struct {
	Hits           int64 `json:"epg_hits"`
	Misses         int64 `json:"epg_misses"`
	MemoryWarnings int64 `json:"memory_warnings"`
	MaxEntries     int   `json:"epg_index_max"`
}

// Store lazily loads the guide snapshot and rebuilds the index whenever the
// backing file's modification time changes.
type Store struct {
	fs     afero.Fs
	path   string
	logger logger.Logger

	maxEntries    int
	shrinkDivisor int

	current atomic.Pointer[View]
	rebuild sync.Mutex

	hits           atomic.Int64
	misses         atomic.Int64
	memoryWarnings atomic.Int64
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithFs sets the filesystem the snapshot is read from.
func WithFs(fs afero.Fs) StoreOption {
	return func(s *Store) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithIndexCeiling sets the maximum indexed entries and the shrink divisor.
func WithIndexCeiling(maxEntries, divisor int) StoreOption {
	return func(s *Store) {
		if maxEntries > 0 {
			s.maxEntries = maxEntries
		}
		if divisor > 0 {
			s.shrinkDivisor = divisor
		}
	}
}

// WithStoreLogger sets the logger.
func WithStoreLogger(l logger.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a store for the snapshot at path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		fs:            afero.NewOsFs(),
		path:          path,
		logger:        logger.Get().Named("guide"),
		maxEntries:    DefaultMaxEntries,
		shrinkDivisor: DefaultShrinkDivisor,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the view matching the snapshot on disk, rebuilding it
// first when the file changed. Readers of a previous view are unaffected.
func (s *Store) Current(ctx context.Context) *View {
	version := s.version()
	if v := s.current.Load(); v != nil && v.Version.Equal(version) {
		s.hits.Add(1)
		metrics.RecordGuideHit()
		return v
	}

	s.rebuild.Lock()
	defer s.rebuild.Unlock()

	// Another request may have rebuilt while we waited.
	if v := s.current.Load(); v != nil && v.Version.Equal(version) {
		s.hits.Add(1)
		metrics.RecordGuideHit()
		return v
	}

	s.misses.Add(1)
	started := time.Now()

	snap, err := s.load()
	if err != nil {
		s.logger.Warn(ctx, "guide snapshot treated as empty",
			logger.String("path", s.path),
			logger.Error(err),
		)
	}

	idx := Build(snap, WithMaxEntries(s.maxEntries), WithShrinkDivisor(s.shrinkDivisor))
	if idx.Shrunk() {
		s.memoryWarnings.Add(1)
		s.logger.Warn(ctx, "guide index exceeded ceiling, dropped older buckets",
			logger.Int("max_entries", s.maxEntries),
			logger.Int("kept_entries", idx.Entries()),
		)
	}

	elapsed := time.Since(started)
	metrics.RecordGuideRebuild(float64(elapsed.Milliseconds()), idx.Entries(), idx.Shrunk())
	s.logger.Debug(ctx, "guide index rebuilt",
		logger.Int("programmes", idx.Len()),
		logger.Int("entries", idx.Entries()),
		logger.Duration("took", elapsed),
	)

	v := &View{Version: version, Index: idx}
	s.current.Store(v)
	return v
}

// version is the file's modification time, or zero when it cannot be read.
func (s *Store) version() time.Time {
	info, err := s.fs.Stat(s.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func (s *Store) load() (model.GuideSnapshot, error) {
	var snap model.GuideSnapshot
	b, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return snap, fmt.Errorf("%w: %w", ErrSnapshot, err)
	}
	if err := json.Unmarshal(b, &snap); err != nil {
		return model.GuideSnapshot{}, fmt.Errorf("%w: decode %s: %w", ErrSnapshot, s.path, err)
	}
	return snap, nil
}

// Stats returns cumulative hit, miss and memory warning counters.
func (s *Store) Stats() Stats {
	return Stats{
		Hits:           s.hits.Load(),
		Misses:         s.misses.Load(),
		MemoryWarnings: s.memoryWarnings.Load(),
		MaxEntries:     s.maxEntries,
	}
}
