package vdiff

import "log/slog"

// Option configures Diff, Patch and the HTML helpers.
type Option func(*config)

type config struct {
	key     KeySource
	logger  *slog.Logger
	metrics *Metrics
}

// WithKey sets how list items are keyed. Default: DefaultKey.
func WithKey(key KeySource) Option {
	return func(c *config) {
		c.key = key
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics records diff and patch activity in m.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

func newConfig(opts []Option) *config {
	c := &config{
		key:    DefaultKey,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}
