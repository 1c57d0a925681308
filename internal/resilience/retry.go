// Package resilience implements the retry policy and circuit breaker that
// wrap every collaborator call.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gem-finder/internal/common/config"
	apperrors "gem-finder/internal/common/errors"
	"gem-finder/internal/common/logger"
	"gem-finder/internal/common/metrics"
)

// ErrRetriesExhausted wraps the last failure once a policy gives up.
var ErrRetriesExhausted = errors.New("RETRIES_EXHAUSTED")

// Policy describes how a failing call is retried.
type Policy struct {
	Name                 string
	MaxAttempts          int
	ExponentialBase      float64
	InitialDelay         time.Duration
	RetryableStatusCodes map[int]struct{}
}

// Tight is used for individual stage calls and per-item fetches.
func Tight() Policy {
	return NewPolicy("tight", 3, 2, time.Second, 429, 500, 503)
}

// Loose is used for the orchestrator's top-level generation calls.
func Loose() Policy {
	return NewPolicy("loose", 5, 7, time.Second, 429, 500, 503, 504)
}

func NewPolicy(name string, maxAttempts int, base float64, initialDelay time.Duration, codes ...int) Policy {
	set := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return Policy{
		Name:                 name,
		MaxAttempts:          maxAttempts,
		ExponentialBase:      base,
		InitialDelay:         initialDelay,
		RetryableStatusCodes: set,
	}
}

// FromConfig builds a policy from its config form, keeping the preset's
// values for anything left unset.
func FromConfig(preset Policy, pc config.PolicyConfig) Policy {
	p := preset
	if pc.MaxAttempts > 0 {
		p.MaxAttempts = pc.MaxAttempts
	}
	if pc.ExponentialBase >= 1 {
		p.ExponentialBase = pc.ExponentialBase
	}
	if pc.InitialDelay > 0 {
		p.InitialDelay = config.GetDuration(pc.InitialDelay)
	}
	if len(pc.RetryableStatusCodes) > 0 {
		p = NewPolicy(p.Name, p.MaxAttempts, p.ExponentialBase, p.InitialDelay, pc.RetryableStatusCodes...)
	}
	return p
}

// Delay returns the wait before the retry that follows failed attempt
// index i (zero based): InitialDelay * base^i.
func (p Policy) Delay(i int) time.Duration {
	return time.Duration(float64(p.InitialDelay) * math.Pow(p.ExponentialBase, float64(i)))
}

// Retryable reports whether err carries a status in the policy's set.
func (p Policy) Retryable(err error) bool {
	status := apperrors.StatusOf(err)
	if status == 0 {
		return false
	}
	_, ok := p.RetryableStatusCodes[status]
	return ok
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type options struct {
	sleep   Sleeper
	logger  logger.Logger
	onRetry func(attempt int, delay time.Duration, err error)
}

type Option func(*options)

// WithSleeper replaces the real timer, mostly for tests.
func WithSleeper(s Sleeper) Option {
	return func(o *options) { o.sleep = s }
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithOnRetry is invoked before every wait.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(o *options) { o.onRetry = fn }
}

// Do invokes op until it succeeds, fails with a non-retryable error, or the
// policy's attempts run out. Cancelling ctx stops any pending wait.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	o := options{sleep: contextSleep}
	for _, opt := range opts {
		opt(&o)
	}

	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, fmt.Errorf("%w: %v", err, lastErr)
			}
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			outcome := "success"
			if attempt > 0 {
				outcome = "recovered"
			}
			metrics.RetryAttempts.WithLabelValues(p.Name, outcome).Inc()
			return result, nil
		}
		lastErr = err

		if !p.Retryable(err) {
			metrics.RetryAttempts.WithLabelValues(p.Name, "fatal").Inc()
			return zero, err
		}
		if attempt == attempts-1 {
			break
		}

		delay := p.Delay(attempt)
		metrics.RetryAttempts.WithLabelValues(p.Name, "retry").Inc()
		if o.logger != nil {
			o.logger.Warn("retrying after transient failure", map[string]interface{}{
				"policy":  p.Name,
				"attempt": attempt + 1,
				"delayMs": delay.Milliseconds(),
				"status":  apperrors.StatusOf(err),
				"error":   err.Error(),
			})
		}
		if o.onRetry != nil {
			o.onRetry(attempt+1, delay, err)
		}
		if err := o.sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("%w: %v", err, lastErr)
		}
	}

	metrics.RetryAttempts.WithLabelValues(p.Name, "exhausted").Inc()
	return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, lastErr)
}
