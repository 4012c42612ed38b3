package store

import (
	"github.com/gozephyr/kvstore/errors"
	"github.com/gozephyr/kvstore/policy"
	"github.com/gozephyr/kvstore/ttl"
)

// Options represents store configuration options
type Options struct {
	// Clock is the time source used for expiry
	Clock ttl.Clock

	// MaxSize is the maximum number of entries (0 means unbounded)
	MaxSize int

	// Policy picks the victim when a bounded store is full
	Policy policy.Kind
}

// NewOptions creates a new Options instance with default values
func NewOptions() *Options {
	return &Options{
		Clock:  ttl.Default,
		Policy: policy.KindLRU,
	}
}

// Option is a function that configures store options
type Option func(*Options) error

// WithClock sets the time source
func WithClock(clock ttl.Clock) Option {
	return func(o *Options) error {
		if clock != nil {
			o.Clock = clock
		}
		return nil
	}
}

// WithMaxSize bounds the number of entries
func WithMaxSize(size int) Option {
	return func(o *Options) error {
		if size < 0 {
			return errors.WrapError("WithMaxSize", size, errors.ErrInvalidSize)
		}
		o.MaxSize = size
		return nil
	}
}

// WithPolicy sets the eviction policy for a bounded store
func WithPolicy(kind policy.Kind) Option {
	return func(o *Options) error {
		parsed, err := policy.ParseKind(string(kind))
		if err != nil {
			return err
		}
		o.Policy = parsed
		return nil
	}
}

// Apply applies the given options to the Options struct
func (o *Options) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return err
		}
	}
	return nil
}
