package fresh

import "log/slog"

// DefaultName is used when no WithName option is given.
const DefaultName = "value"

type config struct {
	name     string
	observer Observer
	logger   *slog.Logger
}

// Option configures a Value created by New.
type Option func(*config)

// WithName sets the name reported in events, signals and log records.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithObserver attaches an Observer that receives hit, miss, shared, fetched
// and error events for the lifetime of the Value.
func WithObserver(o Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

// WithLogger sets the logger for refresh outcomes. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}
