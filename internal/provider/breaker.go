package provider

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"vdflow/pkg/model"
)

// BreakerSettings configures the per-provider circuit breaker
type BreakerSettings struct {
	MaxFailures uint32        // consecutive retryable failures before opening
	OpenTimeout time.Duration // how long the breaker stays open before probing
}

// BreakerProvider guards a Provider with a circuit breaker. Only retryable
// failures count; a ticker with no data does not trip the breaker.
type BreakerProvider struct {
	inner Provider
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerProvider wraps inner with a breaker named after it
func NewBreakerProvider(inner Provider, s BreakerSettings, logger zerolog.Logger) *BreakerProvider {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.OpenTimeout == 0 {
		s.OpenTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	}

	return &BreakerProvider{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(settings),
	}
}

func (p *BreakerProvider) Name() string      { return p.inner.Name() }
func (p *BreakerProvider) IsAvailable() bool { return p.inner.IsAvailable() }
func (p *BreakerProvider) RateLimit() int    { return p.inner.RateLimit() }

// State returns the breaker state ("closed", "half-open", "open")
func (p *BreakerProvider) State() string {
	return p.cb.State().String()
}

func (p *BreakerProvider) GetBars(ctx context.Context, symbol string, from, to time.Time, interval int) ([]model.Candle, error) {
	res, err := p.cb.Execute(func() (interface{}, error) {
		return p.inner.GetBars(ctx, symbol, from, to, interval)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &ProviderError{Provider: p.Name(), Err: err, Retryable: true}
		}
		return nil, err
	}
	return res.([]model.Candle), nil
}
