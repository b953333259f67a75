package storage

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vdflow/internal/analyzer"
)

var (
	insertSQL = regexp.QuoteMeta(`INSERT INTO vdf_snapshots (run_id, ticker, generated_at, as_of, result) VALUES ($1, $2, $3, $4, $5)`)
	selectSQL = regexp.QuoteMeta(`SELECT run_id, ticker, generated_at, as_of, result FROM vdf_snapshots`)
	columns   = []string{"run_id", "ticker", "generated_at", "as_of", "result"}
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return newPostgresStore(mock), mock
}

func zoneSnapshot() Snapshot {
	at := time.Date(2025, 6, 4, 21, 0, 0, 0, time.UTC)
	result := analyzer.AnalysisResult{
		Ticker: "AAPL",
		Days:   84,
		Zones: []analyzer.AccumulationZone{{
			StartDate:  time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC),
			EndDate:    time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
			WindowDays: 20,
		}},
	}
	return NewSnapshot(result, time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC), at)
}

func TestPostgresStore_Migrate(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS vdf_snapshots")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAndHistory(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockStore(t)
	s := zoneSnapshot()
	payload, err := json.Marshal(s.Result)
	require.NoError(t, err)

	mock.ExpectExec(insertSQL).
		WithArgs(s.RunID, "AAPL", s.GeneratedAt, s.AsOf, payload).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(selectSQL).
		WithArgs("AAPL", 5).
		WillReturnRows(pgxmock.NewRows(columns).AddRow(s.RunID.String(), "AAPL", s.GeneratedAt, s.AsOf, payload))

	require.NoError(t, store.Save(ctx, s))

	list, err := store.History(ctx, "aapl", 5)
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, s.RunID, got.RunID)
	assert.Equal(t, "AAPL", got.Ticker)
	assert.Equal(t, 84, got.Result.Days)
	require.Len(t, got.Result.Zones, 1)
	assert.True(t, got.Result.Zones[0].StartDate.Equal(s.Result.Zones[0].StartDate))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_HistoryDefaultLimit(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(selectSQL).
		WithArgs("MSFT", 100).
		WillReturnRows(pgxmock.NewRows(columns))

	list, err := store.History(context.Background(), "msft", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(selectSQL).
		WithArgs("NVDA", 1).
		WillReturnRows(pgxmock.NewRows(columns))

	_, err := store.Latest(context.Background(), "NVDA")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Errors(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockStore(t)
	s := zoneSnapshot()

	mock.ExpectExec(insertSQL).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))
	err := store.Save(ctx, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert snapshot AAPL")

	mock.ExpectQuery(selectSQL).
		WithArgs("AAPL", 1).
		WillReturnRows(pgxmock.NewRows(columns).AddRow("not-a-uuid", "AAPL", s.GeneratedAt, s.AsOf, []byte(`{}`)))
	_, err = store.Latest(ctx, "AAPL")
	assert.Error(t, err)

	mock.ExpectQuery(selectSQL).
		WithArgs("AAPL", 1).
		WillReturnRows(pgxmock.NewRows(columns).AddRow(s.RunID.String(), "AAPL", s.GeneratedAt, s.AsOf, []byte(`{`)))
	_, err = store.Latest(ctx, "AAPL")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
