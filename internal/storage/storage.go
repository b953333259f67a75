// Package storage keeps a history of analysis snapshots per ticker.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"vdflow/internal/analyzer"
)

// ErrNotFound is returned when no snapshot exists for a ticker
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one persisted analysis run
type Snapshot struct {
	RunID       uuid.UUID               `json:"run_id"`
	Ticker      string                  `json:"ticker"`
	GeneratedAt time.Time               `json:"generated_at"`
	AsOf        time.Time               `json:"as_of"` // last session covered by the scan window
	Result      analyzer.AnalysisResult `json:"result"`
}

// NewSnapshot stamps a result with a fresh run id
func NewSnapshot(result analyzer.AnalysisResult, asOf, now time.Time) Snapshot {
	return Snapshot{
		RunID:       uuid.New(),
		Ticker:      strings.ToUpper(result.Ticker),
		GeneratedAt: now,
		AsOf:        asOf,
		Result:      result,
	}
}

// Store persists snapshots. History is newest first.
type Store interface {
	Save(ctx context.Context, s Snapshot) error
	Latest(ctx context.Context, ticker string) (Snapshot, error)
	History(ctx context.Context, ticker string, limit int) ([]Snapshot, error)
	Close() error
}
