package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vdflow/internal/analyzer"
)

func snap(ticker string, at time.Time) Snapshot {
	return NewSnapshot(analyzer.AnalysisResult{Ticker: ticker, Days: 60}, at.Truncate(24*time.Hour), at)
}

func TestNewSnapshot(t *testing.T) {
	now := time.Date(2025, 6, 2, 21, 0, 0, 0, time.UTC)
	s := snap("nvda", now)

	assert.Equal(t, "NVDA", s.Ticker)
	assert.NotEqual(t, uuid.Nil, s.RunID)
	assert.Equal(t, now, s.GeneratedAt)
}

func TestMemoryStore_LatestAndHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	base := time.Date(2025, 6, 2, 21, 0, 0, 0, time.UTC)

	_, err := store.Latest(ctx, "AAPL")
	assert.ErrorIs(t, err, ErrNotFound)

	// saved out of order on purpose
	require.NoError(t, store.Save(ctx, snap("AAPL", base.Add(time.Hour))))
	require.NoError(t, store.Save(ctx, snap("AAPL", base)))
	require.NoError(t, store.Save(ctx, snap("AAPL", base.Add(2*time.Hour))))
	require.NoError(t, store.Save(ctx, snap("MSFT", base)))

	latest, err := store.Latest(ctx, "aapl")
	require.NoError(t, err)
	assert.Equal(t, base.Add(2*time.Hour), latest.GeneratedAt)

	hist, err := store.History(ctx, "AAPL", 2)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.True(t, hist[0].GeneratedAt.After(hist[1].GeneratedAt))

	all, _ := store.History(ctx, "AAPL", 0)
	assert.Len(t, all, 3)

	none, err := store.History(ctx, "TSLA", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore_Cap(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	base := time.Date(2025, 6, 2, 21, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(ctx, snap("AMD", base.Add(time.Duration(i)*time.Hour))))
	}

	hist, _ := store.History(ctx, "AMD", 10)
	require.Len(t, hist, 2)
	assert.Equal(t, base.Add(4*time.Hour), hist[0].GeneratedAt)
}
