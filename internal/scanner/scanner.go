package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"vdflow/internal/analyzer"
	"vdflow/internal/cache"
	"vdflow/internal/market"
	"vdflow/internal/metrics"
	"vdflow/internal/provider"
	"vdflow/internal/storage"
)

// ErrNoData means the provider returned too few sessions to score any window
var ErrNoData = errors.New("insufficient daily data")

// MinDailyAggregates is the shortest candidate window
const MinDailyAggregates = 10

// ProgressCallback is called with progress updates
type ProgressCallback func(scanned, total int)

// Config holds scanner settings
type Config struct {
	Workers         int
	Timeout         time.Duration
	TickerTimeout   time.Duration
	ScanDays        int
	PreContextDays  int
	IntervalMinutes int
	MaxZones        int
	Location        *time.Location
	CacheTTL        time.Duration
	CachePrefix     string
}

// ScanResult summarises one batch run
type ScanResult struct {
	TotalScanned int                `json:"total_scanned"`
	Analyzed     int                `json:"analyzed"`
	Failed       map[string]string  `json:"failed,omitempty"`
	Snapshots    []storage.Snapshot `json:"snapshots"`
	ScanTime     time.Duration      `json:"scan_time"`
}

// Scanner fetches bars and runs the engine for many tickers in parallel
type Scanner struct {
	provider     provider.Provider
	cache        cache.BytesCache
	store        storage.Store
	metrics      *metrics.Recorder
	logger       zerolog.Logger
	cfg          Config
	now          func() time.Time
	progressFunc ProgressCallback
}

// NewScanner creates a new scanner. cache, store and rec may be nil.
func NewScanner(p provider.Provider, c cache.BytesCache, st storage.Store, rec *metrics.Recorder, logger zerolog.Logger, cfg Config) *Scanner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Location == nil {
		cfg.Location = market.ETLocation()
	}
	if cfg.CachePrefix == "" {
		cfg.CachePrefix = "vdf"
	}
	return &Scanner{
		provider: p,
		cache:    c,
		store:    st,
		metrics:  rec,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// SetProgressCallback sets the progress callback function
func (s *Scanner) SetProgressCallback(fn ProgressCallback) {
	s.progressFunc = fn
}

// Analyze returns the snapshot for one ticker. A fresh cached snapshot is
// served unless refresh is set.
func (s *Scanner) Analyze(ctx context.Context, ticker string, refresh bool) (storage.Snapshot, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return storage.Snapshot{}, fmt.Errorf("empty ticker")
	}
	key := cache.SnapshotKey(s.cfg.CachePrefix, ticker)

	if !refresh && s.cache != nil {
		snap, err := cache.GetJSON[storage.Snapshot](ctx, s.cache, key)
		switch {
		case err == nil:
			s.metrics.CacheHit()
			return snap, nil
		case errors.Is(err, cache.ErrMiss):
			s.metrics.CacheMiss()
		default:
			// a broken cache must not block analysis
			s.metrics.CacheMiss()
			s.logger.Warn().Err(err).Str("ticker", ticker).Msg("cache read failed")
		}
	}

	if s.cfg.TickerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TickerTimeout)
		defer cancel()
	}

	start := s.now()
	s.metrics.InFlight(1)
	defer s.metrics.InFlight(-1)

	snap, err := s.compute(ctx, ticker)
	elapsed := s.now().Sub(start)
	if err != nil {
		result := metrics.ResultError
		if errors.Is(err, ErrNoData) {
			result = metrics.ResultNoData
		}
		s.metrics.ObserveAnalysis(result, elapsed, 0)
		return storage.Snapshot{}, err
	}

	result := metrics.ResultClean
	if len(snap.Result.Zones) > 0 {
		result = metrics.ResultDetected
	}
	s.metrics.ObserveAnalysis(result, elapsed, len(snap.Result.Zones))

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, key, snap, s.cfg.CacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("ticker", ticker).Msg("cache write failed")
		}
	}
	if s.store != nil {
		if err := s.store.Save(ctx, snap); err != nil {
			s.logger.Warn().Err(err).Str("ticker", ticker).Msg("snapshot save failed")
		}
	}
	return snap, nil
}

func (s *Scanner) compute(ctx context.Context, ticker string) (storage.Snapshot, error) {
	now := s.now()
	asOf := market.LastSessionDate(now)
	scanRange, preRange := market.ScanRangeIn(asOf, s.cfg.ScanDays, s.cfg.PreContextDays, s.cfg.Location)

	w, err := provider.FetchWindow(ctx, s.provider, ticker, scanRange, preRange, s.cfg.IntervalMinutes)
	if err != nil {
		if errors.Is(err, provider.ErrNoBars) {
			return storage.Snapshot{}, fmt.Errorf("%s: %w", ticker, ErrNoData)
		}
		s.metrics.ProviderError(provider.IsRetryable(err))
		return storage.Snapshot{}, fmt.Errorf("fetching %s: %w", ticker, err)
	}

	result := analyzer.Analyze(ticker, w.Bars, w.PreBars, analyzer.Options{
		MaxZones: s.cfg.MaxZones,
		Location: s.cfg.Location,
	})
	if result.Days < MinDailyAggregates {
		return storage.Snapshot{}, fmt.Errorf("%s: %d sessions: %w", ticker, result.Days, ErrNoData)
	}

	s.logger.Debug().
		Str("ticker", ticker).
		Int("days", result.Days).
		Int("zones", len(result.Zones)).
		Int("breakouts", len(result.Breakouts)).
		Msg("analyzed")

	return storage.NewSnapshot(result, asOf, now), nil
}

// Scan analyzes every ticker with a fixed worker pool. Per-ticker failures
// are collected in ScanResult.Failed; the scan itself only fails when ctx does.
func (s *Scanner) Scan(ctx context.Context, tickers []string, refresh bool) (*ScanResult, error) {
	startTime := time.Now()

	if len(tickers) == 0 {
		return &ScanResult{
			Snapshots: []storage.Snapshot{},
			ScanTime:  time.Since(startTime),
		}, nil
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	type outcome struct {
		ticker string
		snap   storage.Snapshot
		err    error
	}

	// Channels
	jobChan := make(chan string, len(tickers))
	resultChan := make(chan outcome, len(tickers))

	for _, t := range tickers {
		jobChan <- t
	}
	close(jobChan)

	var scannedCount int64

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range jobChan {
				if ctx.Err() != nil {
					resultChan <- outcome{ticker: ticker, err: ctx.Err()}
					continue
				}
				snap, err := s.Analyze(ctx, ticker, refresh)
				if err != nil {
					s.logger.Warn().
						Str("ticker", ticker).
						Str("provider", s.provider.Name()).
						Err(err).
						Msg("analysis failed")
				}
				resultChan <- outcome{ticker: ticker, snap: snap, err: err}

				count := atomic.AddInt64(&scannedCount, 1)
				if s.progressFunc != nil {
					s.progressFunc(int(count), len(tickers))
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	res := &ScanResult{
		TotalScanned: len(tickers),
		Failed:       make(map[string]string),
		Snapshots:    []storage.Snapshot{},
	}
	for o := range resultChan {
		if o.err != nil {
			res.Failed[strings.ToUpper(o.ticker)] = o.err.Error()
			continue
		}
		res.Snapshots = append(res.Snapshots, o.snap)
	}
	res.Analyzed = len(res.Snapshots)

	// strongest zone first, tickers without zones last
	sort.Slice(res.Snapshots, func(i, j int) bool {
		a, b := topScore(res.Snapshots[i]), topScore(res.Snapshots[j])
		if a != b {
			return a > b
		}
		return res.Snapshots[i].Ticker < res.Snapshots[j].Ticker
	})
	res.ScanTime = time.Since(startTime)

	if err := ctx.Err(); err != nil && res.Analyzed == 0 {
		return res, fmt.Errorf("scan aborted: %w", err)
	}
	return res, nil
}

func topScore(s storage.Snapshot) float64 {
	if len(s.Result.Zones) == 0 {
		return -1
	}
	return s.Result.Zones[0].Score
}
