package watch

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/RyDizz214/snappier-server-docker/internal/adapters/mq/worker"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
)

const defaultHTTPSInterval = 20 * time.Second

// HTTPSUpgrader rewrites http:// URLs to https:// in JSON files once the
// prober has confirmed the host serves HTTPS.
type HTTPSUpgrader struct {
	fs       afero.Fs
	prober   worker.Prober
	targets  []string
	interval time.Duration
	logger   logger.Logger
}

// HTTPSOption configures an HTTPSUpgrader.
type HTTPSOption func(*HTTPSUpgrader)

// WithHTTPSFs sets the filesystem.
func WithHTTPSFs(fs afero.Fs) HTTPSOption {
	return func(u *HTTPSUpgrader) {
		if fs != nil {
			u.fs = fs
		}
	}
}

// WithHTTPSInterval sets the pause between passes.
func WithHTTPSInterval(d time.Duration) HTTPSOption {
	return func(u *HTTPSUpgrader) {
		if d > 0 {
			u.interval = d
		}
	}
}

// WithHTTPSLogger sets the logger.
func WithHTTPSLogger(l logger.Logger) HTTPSOption {
	return func(u *HTTPSUpgrader) {
		if l != nil {
			u.logger = l
		}
	}
}

// NewHTTPSUpgrader watches targets, typically the schedules and guide files.
func NewHTTPSUpgrader(prober worker.Prober, targets []string, opts ...HTTPSOption) *HTTPSUpgrader {
	u := &HTTPSUpgrader{
		fs:       afero.NewOsFs(),
		prober:   prober,
		targets:  targets,
		interval: defaultHTTPSInterval,
		logger:   logger.Get().Named("https_watcher"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Once processes every target and returns the number of files rewritten.
// Missing and malformed files are skipped.
func (u *HTTPSUpgrader) Once(ctx context.Context) int {
	rewritten := 0
	for _, path := range u.targets {
		changed, err := u.process(ctx, path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				u.logger.Warn(ctx, "https upgrade skipped", logger.String("path", path), logger.Error(err))
			}
			continue
		}
		if changed {
			rewritten++
			u.logger.Info(ctx, "upgraded urls to https", logger.String("path", path))
		}
	}
	return rewritten
}

// Run calls Once every interval until ctx is done.
func (u *HTTPSUpgrader) Run(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()
	for {
		u.Once(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (u *HTTPSUpgrader) process(ctx context.Context, path string) (bool, error) {
	doc, _, err := readJSON(u.fs, path)
	if err != nil {
		return false, err
	}
	changed := rewriteStrings(doc, func(s string) string {
		rest, ok := strings.CutPrefix(s, "http://")
		if !ok || !u.prober.Probe(ctx, s) {
			return s
		}
		return "https://" + rest
	})
	if !changed {
		return false, nil
	}
	data, err := encodeJSON(doc)
	if err != nil {
		return false, err
	}
	return true, writeAtomic(u.fs, path, data)
}
