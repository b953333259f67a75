package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vdflow/internal/market"
	"vdflow/pkg/model"
)

// ErrNoBars is returned when a provider answers but has no bars for the range
var ErrNoBars = errors.New("no data available")

// Provider defines the interface for bar data providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// GetBars fetches fine-grained bars for symbol in [from, to), ascending.
	// interval is in minutes (e.g., 5, 15, 60). Missing price fields are NaN.
	GetBars(ctx context.Context, symbol string, from, to time.Time, interval int) ([]model.Candle, error)

	// IsAvailable checks if the provider is available (has valid API key)
	IsAvailable() bool

	// RateLimit returns the rate limit per minute
	RateLimit() int
}

// ProviderError represents a provider-specific error
type ProviderError struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a provider failure worth retrying elsewhere
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// FallbackProvider tries multiple providers in order
type FallbackProvider struct {
	providers []Provider
}

// NewFallbackProvider creates a new fallback provider
func NewFallbackProvider(providers ...Provider) *FallbackProvider {
	// Filter to only available providers
	available := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p.IsAvailable() {
			available = append(available, p)
		}
	}
	return &FallbackProvider{providers: available}
}

// Name returns the combined provider name
func (f *FallbackProvider) Name() string {
	return "fallback"
}

// GetBars tries each provider in order until one succeeds
func (f *FallbackProvider) GetBars(ctx context.Context, symbol string, from, to time.Time, interval int) ([]model.Candle, error) {
	lastErr := fmt.Errorf("no providers available")
	for _, p := range f.providers {
		bars, err := p.GetBars(ctx, symbol, from, to, interval)
		if err == nil {
			return bars, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// IsAvailable returns true if any provider is available
func (f *FallbackProvider) IsAvailable() bool {
	return len(f.providers) > 0
}

// RateLimit returns the highest rate limit among providers
func (f *FallbackProvider) RateLimit() int {
	maxRate := 0
	for _, p := range f.providers {
		if p.RateLimit() > maxRate {
			maxRate = p.RateLimit()
		}
	}
	return maxRate
}

// Providers returns the list of underlying providers
func (f *FallbackProvider) Providers() []Provider {
	return f.providers
}

// Window holds the bars for one analysis: the scan range and the pre-context before it
type Window struct {
	Bars    []model.Candle
	PreBars []model.Candle
}

// FetchWindow retrieves both ranges with a single request and splits the result
// at scan.From. Bars outside [pre.From, scan.To) are discarded.
func FetchWindow(ctx context.Context, p Provider, symbol string, scan, pre market.Range, interval int) (*Window, error) {
	bars, err := p.GetBars(ctx, symbol, pre.From, scan.To, interval)
	if err != nil {
		return nil, err
	}

	w := &Window{}
	for _, b := range bars {
		switch {
		case b.Time.Before(pre.From) || !b.Time.Before(scan.To):
			continue
		case b.Time.Before(scan.From):
			w.PreBars = append(w.PreBars, b)
		default:
			w.Bars = append(w.Bars, b)
		}
	}

	if len(w.Bars) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoBars, Retryable: false}
	}
	return w, nil
}
