package watch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"

	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
)

const defaultScheduleInterval = 30 * time.Second

// Spaces that survive NFKC (or come out of it) and trip up time parsing.
var oddSpaces = strings.NewReplacer(
	"\u202f", " ",
	"\u00a0", " ",
	"\u2007", " ",
	"\u2060", " ",
)

// SanitizeString NFKC-normalizes s and maps narrow and non-breaking spaces
// to ASCII spaces.
func SanitizeString(s string) string {
	if s == "" {
		return s
	}
	return oddSpaces.Replace(norm.NFKC.String(s))
}

// ScheduleSanitizer keeps the schedules file in plain, indented JSON.
type ScheduleSanitizer struct {
	fs       afero.Fs
	path     string
	interval time.Duration
	logger   logger.Logger
}

// ScheduleOption configures a ScheduleSanitizer.
type ScheduleOption func(*ScheduleSanitizer)

// WithScheduleFs sets the filesystem.
func WithScheduleFs(fs afero.Fs) ScheduleOption {
	return func(s *ScheduleSanitizer) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithScheduleInterval sets the pause between passes.
func WithScheduleInterval(d time.Duration) ScheduleOption {
	return func(s *ScheduleSanitizer) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithScheduleLogger sets the logger.
func WithScheduleLogger(l logger.Logger) ScheduleOption {
	return func(s *ScheduleSanitizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduleSanitizer creates a sanitizer for the file at path.
func NewScheduleSanitizer(path string, opts ...ScheduleOption) *ScheduleSanitizer {
	s := &ScheduleSanitizer{
		fs:       afero.NewOsFs(),
		path:     path,
		interval: defaultScheduleInterval,
		logger:   logger.Get().Named("schedule_watcher"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Once rewrites the file when a string changed or its formatting differs from
// the canonical indentation. It reports whether the file was written.
func (s *ScheduleSanitizer) Once(ctx context.Context) bool {
	doc, raw, err := readJSON(s.fs, s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn(ctx, "schedule sanitize skipped", logger.String("path", s.path), logger.Error(err))
		}
		return false
	}
	changed := rewriteStrings(doc, SanitizeString)
	formatted, err := encodeJSON(doc)
	if err != nil {
		s.logger.Warn(ctx, "schedule encode failed", logger.Error(err))
		return false
	}
	if !changed && bytes.Equal(formatted, raw) {
		return false
	}
	if err := writeAtomic(s.fs, s.path, formatted); err != nil {
		s.logger.Error(ctx, "schedule rewrite failed", logger.String("path", s.path), logger.Error(err))
		return false
	}
	s.logger.Debug(ctx, "schedules rewritten", logger.Bool("strings_changed", changed))
	return true
}

// Run calls Once every interval until ctx is done.
func (s *ScheduleSanitizer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.Once(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
