package service

import (
	"time"

	"github.com/RyDizz214/snappier-server-docker/internal/adapters/pushover"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/dedupe"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/guide"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDeduper replaces the duplicate detector.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithGuide sets the guide store and the matcher reading from it.
func WithGuide(store *guide.Store, matcher Matcher) Option {
	return func(s *Service) {
		if store != nil {
			s.guide = store
		}
		if matcher != nil {
			s.matcher = matcher
		}
	}
}

// WithResolver sets the remote search resolver.
func WithResolver(r Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithCatalog sets the movie and series metadata source.
func WithCatalog(c Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithSender sets the push transport.
func WithSender(p pushover.Sender) Option {
	return func(s *Service) {
		if p != nil {
			s.sender = p
		}
	}
}

// WithProber sets the HTTPS capability prober.
func WithProber(p Prober) Option {
	return func(s *Service) {
		if p != nil {
			s.prober = p
		}
	}
}

// WithPreflight sets the job run in the background by Start.
func WithPreflight(p Preflight) Option {
	return func(s *Service) { s.preflight = p }
}

// WithLocation sets the zone used to recompute catch-up start labels.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithTitlePrefix prepends prefix to every push title.
func WithTitlePrefix(prefix string) Option {
	return func(s *Service) { s.titlePrefix = prefix }
}

// WithDescLimit sets the description length limit.
func WithDescLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.descLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
