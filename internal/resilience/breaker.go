package resilience

import (
	"context"
	"errors"
	"time"

	"gem-finder/internal/common/config"
	apperrors "gem-finder/internal/common/errors"
	"gem-finder/internal/common/logger"
	"gem-finder/internal/common/metrics"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig configures a collaborator circuit breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// Breaker fails fast once a collaborator keeps failing, turning repeated
// transient errors into a single COLLABORATOR_UNAVAILABLE hard failure.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]
}

func NewBreaker(cfg BreakerConfig, log logger.Logger) *Breaker {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
			if log != nil {
				log.Warn("circuit breaker state changed", map[string]interface{}{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				})
			}
		},
		// Only infrastructure failures count against the collaborator;
		// rejected requests and cancellations do not.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			status := apperrors.StatusOf(err)
			return status != 0 && !apperrors.IsRetryableStatus(status)
		},
	}

	metrics.BreakerState.WithLabelValues(cfg.Name).Set(0)
	return &Breaker{name: cfg.Name, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// BreakerFromConfig returns nil when breakers are disabled; Guard treats a
// nil breaker as a pass-through.
func BreakerFromConfig(name string, bc config.BreakerConfig, log logger.Logger) *Breaker {
	if !bc.Enabled {
		return nil
	}
	return NewBreaker(BreakerConfig{
		Name:             name,
		MaxRequests:      bc.MaxRequests,
		Interval:         config.GetDuration(bc.Interval),
		Timeout:          config.GetDuration(bc.Timeout),
		FailureThreshold: bc.FailureThreshold,
	}, log)
}

// State returns the breaker state as a string for health reporting.
func (b *Breaker) State() string {
	if b == nil {
		return "disabled"
	}
	return b.cb.State().String()
}

// Guard runs fn through the breaker. A nil breaker runs fn directly.
func Guard[T any](b *Breaker, fn func() (T, error)) (T, error) {
	if b == nil {
		return fn()
	}

	var zero T
	out, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, apperrors.NewCollaboratorUnavailableError(b.name, err)
		}
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
