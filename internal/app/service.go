// Package service provides the notification pipeline behind the HTTP API:
// validation, duplicate suppression, guide resolution, catalog enrichment,
// message composition and push delivery.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sourcegraph/conc/panics"

	"github.com/RyDizz214/snappier-server-docker/internal/adapters/catalog"
	"github.com/RyDizz214/snappier-server-docker/internal/adapters/probe"
	"github.com/RyDizz214/snappier-server-docker/internal/adapters/pushover"
	"github.com/RyDizz214/snappier-server-docker/internal/adapters/search"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/dedupe"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/guide"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/message"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/model"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/normalize"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/types"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
	"github.com/RyDizz214/snappier-server-docker/pkg/metrics"
)

const defaultGuidePath = "/root/SnappierServer/epg/epg_cache.json"

// Matcher finds a programme in the local guide.
type Matcher interface {
	Find(ctx context.Context, q guide.Query) (model.Programme, bool)
}

// Resolver finds a programme through the remote search service.
type Resolver interface {
	Enabled() bool
	FindRemote(ctx context.Context, channel, title, start string) (model.Programme, search.Meta, search.Outcome)
}

// Catalog looks up movie and series metadata.
type Catalog interface {
	Movie(ctx context.Context, programName, filePath string) (*catalog.Entry, error)
	Series(ctx context.Context, programName string) (*catalog.Entry, error)
}

// Prober answers and reports HTTPS capability checks.
type Prober interface {
	Probe(ctx context.Context, httpURL string) bool
	Capabilities() map[string]bool
	ProbesTotal() int64
	CacheLen() int
	CacheCap() int
}

// Preflight warms the prober at startup.
type Preflight interface {
	Run(ctx context.Context) int
}

// Service runs the notification pipeline for webhook events.
type Service struct {
	mu sync.RWMutex

	deduper   dedupe.Deduper
	guide     *guide.Store
	matcher   Matcher
	resolver  Resolver
	catalog   Catalog
	sender    pushover.Sender
	prober    Prober
	preflight Preflight
	validate  *validator.Validate

	location    *time.Location
	titlePrefix string
	descLimit   int

	started bool
	cancel  context.CancelFunc
	bg      sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service. Collaborators that are not supplied get
// defaults: remote search and catalog lookups disabled, an unconfigured push
// client and the guide snapshot at its standard path.
func New(opts ...Option) *Service {
	s := &Service{
		deduper:   dedupe.NewInMemoryDeduper(),
		resolver:  search.NewResolver(search.WithEnabled(false)),
		catalog:   catalog.NewClient(catalog.WithEnabled(false)),
		sender:    pushover.NewClient(),
		prober:    probe.NewProber(),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		location:  time.Local,
		descLimit: message.DefaultDescLimit,
		logger:    logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.guide == nil {
		s.guide = guide.NewStore(defaultGuidePath)
	}
	if s.matcher == nil {
		s.matcher = guide.NewMatcher(s.guide)
	}
	return s
}

// Start validates delivery credentials, logs the search configuration and
// runs the HTTPS preflight in the background.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if !s.sender.Configured() {
		s.logger.Error(ctx, "pushover credentials not set, notifications will fail")
	}
	switch r, ok := s.resolver.(*search.Resolver); {
	case !s.resolver.Enabled():
		s.logger.Info(ctx, "remote search disabled")
	case ok:
		s.logger.Info(ctx, "remote search enabled",
			logger.String("base", r.BaseURL()),
			logger.Duration("timeout", r.Timeout()))
	default:
		s.logger.Info(ctx, "remote search enabled")
	}

	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	if s.preflight != nil {
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			n := s.preflight.Run(bgCtx)
			s.logger.Debug(bgCtx, "preflight https scan completed", logger.Int("urls", n))
		}()
	}

	s.started = true
	s.logger.Info(ctx, "notification service started")
	return nil
}

// Stop cancels background work and waits for it to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.cancel()
	s.bg.Wait()
	s.started = false
	s.logger.Info(context.Background(), "notification service stopped")
}

// Notify runs one event through the pipeline and returns the response body
// with its HTTP status. It never panics; a recovered panic becomes a 500
// response with ok=false.
func (s *Service) Notify(ctx context.Context, ev model.IncomingEvent) (types.NotifyResult, int) {
	started := time.Now()
	var (
		res    types.NotifyResult
		status int
		pc     panics.Catcher
	)
	pc.Try(func() { res, status = s.notify(ctx, ev) })
	if r := pc.Recovered(); r != nil {
		s.logger.Error(ctx, "notify failed",
			logger.String("action", ev.Action),
			logger.Error(fmt.Errorf("%w: %w", ErrPanic, r.AsError())))
		metrics.RecordNotification(ev.Action, "panic")
		res = types.NotifyResult{OK: false, Action: ev.Action, Error: "internal error while processing notification"}
		status = http.StatusInternalServerError
	}
	metrics.RecordPipelineLatency(float64(time.Since(started).Milliseconds()))
	return res, status
}

func (s *Service) notify(ctx context.Context, ev model.IncomingEvent) (types.NotifyResult, int) {
	if err := s.check(ev); err != nil {
		payload, _ := json.Marshal(ev)
		s.logger.Error(ctx, ValidationMessage,
			logger.String("payload", truncate(string(payload), 300)),
			logger.Error(err))
		metrics.RecordNotification("", "rejected")
		return types.Rejected(ValidationMessage), http.StatusBadRequest
	}
	action := ev.Action

	jobID := ev.DedupJobID()
	if dup, elapsed := s.deduper.CheckAndRecord(ctx, action, jobID, ev.File); dup {
		s.logger.Warn(ctx, "duplicate notification suppressed",
			logger.String("action", action),
			logger.String("job", shortID(jobID)),
			logger.Duration("elapsed", elapsed))
		metrics.RecordDedupHit()
		metrics.RecordNotification(action, "deduplicated")
		return types.Duplicate(action, elapsed), http.StatusOK
	}
	metrics.UpdateDedupEntries(int(s.deduper.Size()))

	if message.Suppressed(action, ev.ExitCode) {
		metrics.RecordNotification(action, "suppressed")
		return types.SuppressedExit(action), http.StatusOK
	}

	r := s.resolve(ctx, ev)
	fields := s.fields(ctx, ev, r)
	body := message.Compose(fields, s.descLimit)

	fallback := ev.Title
	if fallback == "" {
		fallback = fields.Program
	}
	title, priority := message.TitleFor(action, fallback, s.titlePrefix)

	delivery := s.sender.Send(ctx, pushover.Message{Title: title, Body: body, Priority: priority})
	if delivery.OK() {
		metrics.RecordNotification(action, "delivered")
	} else {
		metrics.RecordNotification(action, "failed")
	}

	return types.NotifyResult{
		OK:       true,
		Action:   action,
		Pushover: delivery,
		Enriched: r.found,
		UsedAPI:  r.usedAPI,
	}, http.StatusOK
}

func (s *Service) check(ev model.IncomingEvent) error {
	ev.Action = strings.TrimSpace(ev.Action)
	if err := s.validate.Struct(ev); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// resolution is the outcome of the Resolve stage.
type resolution struct {
	prog       model.Programme
	found      bool
	usedAPI    bool
	title      string
	start      string
	startLocal string
	hint       string
	clean      string
}

// resolve prefers the local guide for channel-less events with a start time
// and otherwise tries remote search before falling back to the guide.
func (s *Service) resolve(ctx context.Context, ev model.IncomingEvent) resolution {
	catchup := message.IsCatchup(ev.Action)
	r := resolution{
		title:      ev.Title,
		start:      ev.Start,
		startLocal: ev.StartLocal,
		hint:       ev.ChannelHint,
		clean:      normalize.CleanChannel(ev.ChannelHint),
	}
	if catchup && r.title != "" {
		r.title = normalize.RestorePossessive(r.title)
	}
	if catchup && r.hint == "" {
		s.logger.Debug(ctx, "catch-up without channel",
			logger.String("title", r.title),
			logger.String("start", r.start))
	}

	source := "none"
	localDone := false
	switch {
	case r.start != "" && r.hint == "" && r.clean == "":
		r.prog, r.found = s.matcher.Find(ctx, guide.Query{Title: r.title, Start: r.start, PreferPast: catchup})
		localDone = true
		if r.found {
			source = "guide"
		}
	case s.resolver.Enabled() && (r.title != "" || r.hint != "" || r.clean != ""):
		prog, _, outcome := s.resolver.FindRemote(ctx, r.hint, r.title, r.start)
		if outcome != search.OutcomeHit && r.clean != "" && r.clean != r.hint {
			prog, _, outcome = s.resolver.FindRemote(ctx, r.clean, r.title, r.start)
		}
		if outcome == search.OutcomeHit {
			r.prog, r.found, r.usedAPI = prog, true, true
			source = "remote"
		}
	}
	if !r.found && !localDone {
		channel := r.hint
		if channel == "" {
			channel = r.clean
		}
		r.prog, r.found = s.matcher.Find(ctx, guide.Query{Channel: channel, Title: r.title, Start: r.start, PreferPast: catchup})
		if r.found {
			source = "guide"
		}
	}
	metrics.RecordResolution(source)

	// The payload start of a catch-up is the download time, not the airing.
	if catchup && r.found && r.prog.Start != "" && r.prog.Start != r.start {
		s.logger.Info(ctx, "overriding catch-up start time",
			logger.String("from", r.start),
			logger.String("to", r.prog.Start))
		r.start = r.prog.Start
		if t, ok := normalize.ParseTimestamp(r.prog.Start); ok {
			r.startLocal = normalize.LocalLabel(t, s.location)
		}
	}
	return r
}

// fields merges the payload, the resolved programme and catalog metadata.
func (s *Service) fields(ctx context.Context, ev model.IncomingEvent, r resolution) message.Fields {
	f := message.Fields{
		Action:      ev.Action,
		Program:     firstNonEmpty(r.title, r.prog.Title, "Unknown"),
		JobID:       ev.DisplayJobID(),
		Episode:     ev.Episode,
		Desc:        firstNonEmpty(ev.Desc, r.prog.Desc),
		Kind:        firstNonEmpty(ev.Type, r.prog.Type),
		Year:        firstNonEmpty(ev.Year, r.prog.Year),
		Start:       r.start,
		End:         ev.End,
		StartLocal:  r.startLocal,
		EndLocal:    ev.EndLocal,
		ScheduledAt: ev.ScheduledAt,
		DurationMin: ev.DurationMin,
		File:        ev.File,
		Error:       ev.Error,
		ExitCode:    ev.ExitCode,
		ExitReason:  ev.ExitReason,
	}
	f.Channel = normalize.PickChannel(
		ev.Channel, ev.Ch, ev.ChannelName, ev.ChannelClean,
		r.prog.ChannelName, r.prog.Channel, r.hint, r.clean,
	)
	if f.Channel == "" {
		f.Channel = "Unknown"
	}

	if entry := s.enrich(ctx, ev, f.Program); entry != nil {
		if entry.Overview != "" {
			f.Desc = entry.Overview
		}
		if f.Year == "" {
			f.Year = entry.Year()
		}
		if f.Kind == "" && len(entry.Genres) > 0 {
			f.Kind = strings.Join(entry.Genres[:min(3, len(entry.Genres))], ", ")
		}
		f.Rating, f.Votes = entry.Rating, entry.Votes
	}

	if f.DurationMin == nil || *f.DurationMin == 0 {
		if m, ok := normalize.DurationMinutes(f.Start, f.End); ok {
			f.DurationMin = &m
		}
	}
	return f
}

// enrich consults the catalog for movie and series actions. Failures are
// logged and ignored.
func (s *Service) enrich(ctx context.Context, ev model.IncomingEvent, program string) *catalog.Entry {
	var (
		entry *catalog.Entry
		err   error
	)
	switch {
	case strings.HasPrefix(ev.Action, "movie_"):
		entry, err = s.catalog.Movie(ctx, program, ev.File)
	case strings.HasPrefix(ev.Action, "series_"):
		entry, err = s.catalog.Series(ctx, program)
	default:
		return nil
	}
	if err != nil {
		s.logger.Debug(ctx, "catalog enrichment skipped",
			logger.String("action", ev.Action),
			logger.Error(err))
		return nil
	}
	return entry
}

// Health reports liveness and cache counters.
func (s *Service) Health() types.Health {
	gs := s.guide.Stats()
	return types.Health{
		OK:         true,
		TS:         float64(time.Now().UnixNano()) / 1e9,
		APIEnabled: s.resolver.Enabled(),
		CacheStats: types.CacheStats{
			EPGHits:          gs.Hits,
			EPGMisses:        gs.Misses,
			HTTPSCacheSize:   s.prober.CacheLen(),
			HTTPSCacheMax:    s.prober.CacheCap(),
			HTTPSProbesTotal: s.prober.ProbesTotal(),
			MemoryWarnings:   gs.MemoryWarnings,
			EPGIndexMax:      gs.MaxEntries,
		},
	}
}

// Capabilities returns the known HTTPS support per host.
func (s *Service) Capabilities() map[string]bool {
	return s.prober.Capabilities()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	stats := map[string]any{
		"started":      started,
		"dedupEntries": s.deduper.Size(),
		"guide":        s.guide.Stats(),
		"httpsHosts":   s.prober.CacheLen(),
		"apiEnabled":   s.resolver.Enabled(),
	}
	metrics.UpdateDedupEntries(int(s.deduper.Size()))
	return stats
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func shortID(id string) string {
	if id == "" {
		return "unknown"
	}
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
