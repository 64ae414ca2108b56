package source

import "github.com/zoobzio/clockz"

type config struct {
	clock    clockz.Clock
	codec    Codec
	validate bool
}

func newConfig(opts []Option) *config {
	cfg := &config{
		clock: clockz.RealClock,
		codec: JSONCodec{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Option configures a TTL or File source.
type Option func(*config)

// WithClock sets the clock used to timestamp fetches.
// Use this with clockz.FakeClock for deterministic expiry tests.
func WithClock(clock clockz.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithCodec sets how a File decodes its contents. JSONCodec is the default.
func WithCodec(codec Codec) Option {
	return func(c *config) {
		c.codec = codec
	}
}

// WithValidation makes a File validate each decoded value with
// go-playground/validator struct tags. The value type must be a struct.
func WithValidation() Option {
	return func(c *config) {
		c.validate = true
	}
}
