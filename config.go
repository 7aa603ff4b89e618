package retryflow

import (
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Defaults applied for every field the caller does not override.
const (
	DefaultMinInterval = time.Second
	DefaultMaxInterval = time.Duration(math.MaxInt64)
	DefaultFactor      = 1.0
	DefaultRetries     = 60
)

// Config holds the resolved parameters for a single execution. It is fixed
// once New returns; the copy carried by each Event keeps observers from
// influencing later decisions.
type Config struct {
	// MinInterval is the wait before the first retry and the base of the
	// backoff formula.
	MinInterval time.Duration

	// MaxInterval caps the computed backoff.
	MaxInterval time.Duration

	// Factor multiplies the wait for each successive retry.
	Factor float64

	// Retries is the number of repeat attempts allowed after the first,
	// so an execution makes at most Retries+1 invocations.
	Retries int

	// RetryIf classifies failures. Returning false stops the execution
	// immediately, regardless of remaining budget.
	RetryIf func(error) bool
}

// InvalidConfigError reports a malformed retry parameter. It is returned by
// New and Do before any attempt runs.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("retryflow: invalid %s: %s", e.Field, e.Reason)
}

// Option overrides one resolved field. A nil Option is skipped, so passing
// one behaves exactly like omitting it.
type Option func(*settings)

type settings struct {
	cfg    Config
	logger *slog.Logger
}

// WithMinInterval sets the wait before the first retry.
func WithMinInterval(d time.Duration) Option {
	return func(s *settings) { s.cfg.MinInterval = d }
}

// WithMaxInterval caps the backoff wait.
func WithMaxInterval(d time.Duration) Option {
	return func(s *settings) { s.cfg.MaxInterval = d }
}

// WithFactor sets the backoff multiplier.
func WithFactor(f float64) Option {
	return func(s *settings) { s.cfg.Factor = f }
}

// WithRetries sets the retry budget.
func WithRetries(n int) Option {
	return func(s *settings) { s.cfg.Retries = n }
}

// WithRetryIf sets the failure classifier. A nil predicate keeps the
// default of retrying every error.
func WithRetryIf(pred func(error) bool) Option {
	return func(s *settings) {
		if pred != nil {
			s.cfg.RetryIf = pred
		}
	}
}

// WithLogger sets the logger used for observer panics and backoff debug
// lines. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// resolve coalesces options against the defaults field by field and
// validates the result.
func resolve(opts []Option) (settings, error) {
	s := settings{
		cfg: Config{
			MinInterval: DefaultMinInterval,
			MaxInterval: DefaultMaxInterval,
			Factor:      DefaultFactor,
			Retries:     DefaultRetries,
			RetryIf:     func(error) bool { return true },
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&s)
	}

	if err := validate(s.cfg); err != nil {
		return settings{}, err
	}
	return s, nil
}

func validate(cfg Config) error {
	if cfg.MinInterval <= 0 {
		return &InvalidConfigError{Field: "MinInterval", Reason: "must be positive"}
	}
	if cfg.MaxInterval < cfg.MinInterval {
		return &InvalidConfigError{Field: "MaxInterval", Reason: "must be >= MinInterval"}
	}
	if cfg.Retries < 0 {
		return &InvalidConfigError{Field: "Retries", Reason: "must not be negative"}
	}
	if cfg.Factor < 0 || math.IsNaN(cfg.Factor) || math.IsInf(cfg.Factor, 0) {
		return &InvalidConfigError{Field: "Factor", Reason: "must be finite and non-negative"}
	}
	return nil
}
