// Package dedupe suppresses repeated notifications for the same job event.
package dedupe

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const (
	defaultWindow  = 60 * time.Second
	defaultMaxSize = 1000
)

// Deduper remembers recently delivered (action, job, file) triples.
type Deduper interface {
	// CheckAndRecord reports whether the triple was seen within the window and,
	// if so, how long ago. A duplicate does not refresh the stored time; a new or
	// expired triple is recorded as the newest entry.
	CheckAndRecord(ctx context.Context, action, jobID, file string) (bool, time.Duration)

	Size() int64
}

// inMemoryDeduper keeps keys in insertion order. Reads use Peek so lookups
// never reorder entries; the oldest insertion is evicted once the cap is hit.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    *simplelru.LRU[string, time.Time]
	window  time.Duration
	maxSize int
	now     func() time.Time
	size    atomic.Int64
}

// NewInMemoryDeduper creates a deduper with a 60s window and 1000 entry cap.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		window:  defaultWindow,
		maxSize: defaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxSize <= 0 {
		d.maxSize = defaultMaxSize
	}
	// NewLRU only fails for a non-positive size.
	d.seen, _ = simplelru.NewLRU[string, time.Time](d.maxSize, nil)
	return d
}

// Key hashes the triple the same way for every caller.
func Key(action, jobID, file string) string {
	sum := md5.Sum([]byte(action + ":" + jobID + ":" + file))
	return hex.EncodeToString(sum[:])
}

func (d *inMemoryDeduper) CheckAndRecord(_ context.Context, action, jobID, file string) (bool, time.Duration) {
	key := Key(action, jobID, file)
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.seen.Peek(key); ok {
		if elapsed := now.Sub(last); elapsed < d.window {
			return true, elapsed
		}
		d.seen.Remove(key)
	}

	d.seen.Add(key, now)
	d.size.Store(int64(d.seen.Len()))
	return false, 0
}

// Size returns the number of remembered triples.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
