package service

import (
	"github.com/benbjohnson/clock"

	"github.com/okian/proctor/internal/adapters/mq/worker"
	"github.com/okian/proctor/internal/adapters/repository"
	"github.com/okian/proctor/internal/config"
	"github.com/okian/proctor/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig copies every tunable from cfg. Nil is ignored.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			c := *cfg
			c.KafkaBrokers = append([]string(nil), cfg.KafkaBrokers...)
			s.cfg = c
		}
	}
}

// WithClock sets the clock used for timestamps and tick scheduling.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
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

// WithStore replaces the session archive.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.archive = st
		}
	}
}

// WithSink registers an additional event sink next to the built-in ones.
func WithSink(sink worker.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.extraSinks = append(s.extraSinks, sink)
		}
	}
}
