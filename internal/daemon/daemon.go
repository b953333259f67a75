package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"vdflow/internal/market"
	"vdflow/internal/scanner"
)

// Scanner runs one batch; scanner.Scanner satisfies it
type Scanner interface {
	Scan(ctx context.Context, tickers []string, refresh bool) (*scanner.ScanResult, error)
}

// Config 데몬 설정
type Config struct {
	Tickers     []string
	SettleDelay time.Duration // 장 마감 후 데이터 확정까지 대기
	RunOnStart  bool          // 시작 직후 1회 스캔
	MaxCycles   int           // 0 = 무제한
	DataDir     string        // 사이클 기록 저장 위치, 비어 있으면 저장 안 함
}

// DefaultConfig 기본 설정
func DefaultConfig() Config {
	return Config{
		SettleDelay: 30 * time.Minute,
		RunOnStart:  true,
	}
}

// Daemon re-scans a ticker list once after every regular session close
type Daemon struct {
	config  Config
	scanner Scanner
	tracker *CycleTracker
	logger  zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDaemon 생성자
func NewDaemon(cfg Config, s Scanner, logger zerolog.Logger) *Daemon {
	return &Daemon{
		config:  cfg,
		scanner: s,
		tracker: NewCycleTracker(cfg.DataDir),
		logger:  logger,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// NextRun returns the first session close after now on a trading day, plus delay
func NextRun(now time.Time, delay time.Duration) time.Time {
	loc := market.ETLocation()
	sched := market.DefaultSchedule()
	n := now.In(loc)

	day := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	for {
		if market.IsTradingDay(day) {
			at := time.Date(day.Year(), day.Month(), day.Day(), sched.CloseHour, sched.CloseMin, 0, 0, loc).Add(delay)
			if at.After(n) {
				return at
			}
		}
		day = day.AddDate(0, 0, 1)
	}
}

// Run 데몬 실행. Blocks until ctx is cancelled or MaxCycles is reached.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info().Int("tickers", len(d.config.Tickers)).Msg("watch daemon starting")

	cycles := 0
	if d.config.RunOnStart {
		d.runCycle(ctx)
		cycles++
	}

	for d.config.MaxCycles == 0 || cycles < d.config.MaxCycles {
		next := NextRun(d.now(), d.config.SettleDelay)
		wait := next.Sub(d.now())
		d.logger.Info().
			Time("next_run", next).
			Str("wait", market.FormatDuration(wait)).
			Msg("waiting for session close")

		if err := d.sleep(ctx, wait); err != nil {
			d.logger.Info().Msg("watch daemon stopped")
			return nil
		}
		d.runCycle(ctx)
		cycles++
	}
	return nil
}

// runCycle 스캔 사이클
func (d *Daemon) runCycle(ctx context.Context) {
	started := d.now()
	res, err := d.scanner.Scan(ctx, d.config.Tickers, true)
	if err != nil {
		d.logger.Error().Err(err).Msg("scan cycle failed")
		return
	}

	rec := d.tracker.Record(started, res)
	d.logger.Info().
		Int("analyzed", res.Analyzed).
		Int("failed", len(res.Failed)).
		Int("with_zones", rec.WithZones).
		Strs("new_zones", rec.NewZones).
		Dur("elapsed", res.ScanTime).
		Msg("scan cycle complete")

	if err := d.tracker.Save(rec); err != nil {
		d.logger.Warn().Err(err).Msg("could not save cycle record")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
