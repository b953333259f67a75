package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMiss is returned when a key is absent or expired
var ErrMiss = errors.New("cache miss")

// BytesCache is a minimal cache API storing raw bytes with TTL
type BytesCache interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SnapshotKey returns the cache key holding the latest snapshot of ticker
func SnapshotKey(prefix, ticker string) string {
	return fmt.Sprintf("%s:snapshot:%s", prefix, strings.ToUpper(ticker))
}

// GetJSON loads and decodes a JSON value. A missing key yields ErrMiss.
func GetJSON[T any](ctx context.Context, c BytesCache, key string) (T, error) {
	var v T
	b, err := c.GetBytes(ctx, key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("decoding %s: %w", key, err)
	}
	return v, nil
}

// SetJSON encodes v as JSON and stores it for ttl
func SetJSON(ctx context.Context, c BytesCache, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return c.SetBytes(ctx, key, b, ttl)
}
