package probe

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/afero"

	"github.com/RyDizz214/snappier-server-docker/internal/adapters/mq/queue"
	"github.com/RyDizz214/snappier-server-docker/internal/adapters/mq/worker"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
)

const defaultPreflightLimit = 2000

// Preflight warms the probe cache from the http:// strings found in JSON files.
type Preflight struct {
	fs      afero.Fs
	paths   []string
	limit   int
	workers int
	prober  worker.Prober
	logger  logger.Logger
}

// NewPreflight scans paths (in order) for at most limit URLs per file and
// probes them with the given number of workers.
func NewPreflight(fs afero.Fs, prober worker.Prober, paths []string, limit, workers int) *Preflight {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if limit <= 0 {
		limit = defaultPreflightLimit
	}
	return &Preflight{
		fs:      fs,
		paths:   paths,
		limit:   limit,
		workers: workers,
		prober:  prober,
		logger:  logger.Get().Named("preflight"),
	}
}

// Run probes every collected URL and returns how many were probed.
// Unreadable or malformed files are skipped.
func (p *Preflight) Run(ctx context.Context) int {
	var urls []string
	for _, path := range p.paths {
		b, err := afero.ReadFile(p.fs, path)
		if err != nil {
			p.logger.Debug(ctx, "preflight skipped file", logger.String("path", path), logger.Error(err))
			continue
		}
		var doc any
		if err := json.Unmarshal(b, &doc); err != nil {
			p.logger.Debug(ctx, "preflight skipped file", logger.String("path", path), logger.Error(err))
			continue
		}
		urls = CollectHTTP(doc, p.limit, urls)
	}
	if len(urls) == 0 {
		return 0
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(len(urls)))
	pool := worker.NewPool(p.workers, q, p.prober)
	pool.Start(ctx)
	for _, u := range urls {
		if !q.Enqueue(ctx, queue.Task{URL: u}) {
			p.logger.Warn(ctx, "preflight task dropped", logger.String("url", u), logger.Error(queue.ErrFull))
		}
	}
	_ = q.Close()
	n := pool.Wait()

	p.logger.Info(ctx, "https preflight finished", logger.Int("urls", n))
	return n
}

// CollectHTTP walks a decoded JSON document depth-first and appends up to
// limit strings starting with "http://" to dst.
func CollectHTTP(doc any, limit int, dst []string) []string {
	seen := 0
	var walk func(v any)
	walk = func(v any) {
		if seen >= limit {
			return
		}
		switch t := v.(type) {
		case map[string]any:
			for _, child := range t {
				walk(child)
				if seen >= limit {
					return
				}
			}
		case []any:
			for _, child := range t {
				walk(child)
				if seen >= limit {
					return
				}
			}
		case string:
			if strings.HasPrefix(t, "http://") {
				dst = append(dst, t)
				seen++
			}
		}
	}
	walk(doc)
	return dst
}
