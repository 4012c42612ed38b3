package kvstore

import (
	"time"

	"github.com/gozephyr/kvstore/log"
	"github.com/gozephyr/kvstore/metrics"
	"github.com/gozephyr/kvstore/policy"
	"github.com/gozephyr/kvstore/ttl"
)

// Options represents store configuration options
type Options struct {
	// MaxSize is the maximum number of entries (0 means unbounded)
	MaxSize int

	// Policy picks the entry to evict when a bounded store is full
	Policy policy.Kind

	// Clock is the time source for expiry
	Clock ttl.Clock

	// CleanupInterval is how often the janitor reaps expired entries.
	// Zero disables background cleanup; expired entries are then only
	// removed by Get or an explicit Cleanup.
	CleanupInterval time.Duration

	// Metrics receives hit, miss and removal counts
	Metrics metrics.Exporter

	// Logger is used by the janitor
	Logger log.Logger
}

// Option is a function that configures store options
type Option func(*Options)

// WithMaxSize bounds the number of entries
func WithMaxSize(size int) Option {
	return func(o *Options) {
		o.MaxSize = size
	}
}

// WithPolicy sets the eviction policy used when the store is full
func WithPolicy(kind policy.Kind) Option {
	return func(o *Options) {
		o.Policy = kind
	}
}

// WithClock sets the time source
func WithClock(clock ttl.Clock) Option {
	return func(o *Options) {
		o.Clock = clock
	}
}

// WithCleanupInterval enables the background janitor
func WithCleanupInterval(interval time.Duration) Option {
	return func(o *Options) {
		o.CleanupInterval = interval
	}
}

// WithMetrics sets the metrics exporter
func WithMetrics(exporter metrics.Exporter) Option {
	return func(o *Options) {
		o.Metrics = exporter
	}
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// DefaultOptions returns the default store options
func DefaultOptions() *Options {
	return &Options{
		Policy: policy.KindLRU,
		Clock:  ttl.Default,
		Logger: log.Default(),
	}
}
