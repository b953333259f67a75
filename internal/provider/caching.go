package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vdflow/pkg/model"
)

// CachingProvider wraps a Provider with an in-memory cache keyed by the exact
// request. A scan and a follow-up rescore of the same ticker share one fetch.
type CachingProvider struct {
	inner Provider
	ttl   time.Duration
	cache map[string]cachedBars
	mu    sync.Mutex
	now   func() time.Time
}

type cachedBars struct {
	bars    []model.Candle
	expires time.Time
}

// NewCachingProvider creates a caching wrapper. Entries live for ttl.
func NewCachingProvider(inner Provider, ttl time.Duration) *CachingProvider {
	return &CachingProvider{
		inner: inner,
		ttl:   ttl,
		cache: make(map[string]cachedBars),
		now:   time.Now,
	}
}

func (p *CachingProvider) Name() string      { return p.inner.Name() }
func (p *CachingProvider) IsAvailable() bool { return p.inner.IsAvailable() }
func (p *CachingProvider) RateLimit() int    { return p.inner.RateLimit() }

func (p *CachingProvider) GetBars(ctx context.Context, symbol string, from, to time.Time, interval int) ([]model.Candle, error) {
	key := fmt.Sprintf("%s|%d|%d|%d", symbol, from.Unix(), to.Unix(), interval)

	p.mu.Lock()
	if cached, ok := p.cache[key]; ok {
		if p.now().Before(cached.expires) {
			p.mu.Unlock()
			return cached.bars, nil
		}
		delete(p.cache, key)
	}
	p.mu.Unlock()

	bars, err := p.inner.GetBars(ctx, symbol, from, to, interval)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[key] = cachedBars{bars: bars, expires: p.now().Add(p.ttl)}
	p.mu.Unlock()

	return bars, nil
}
