package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"vdflow/internal/analyzer"
	"vdflow/internal/cache"
	"vdflow/internal/config"
	"vdflow/internal/daemon"
	"vdflow/internal/logger"
	"vdflow/internal/market"
	"vdflow/internal/metrics"
	"vdflow/internal/provider"
	"vdflow/internal/report"
	"vdflow/internal/scanner"
	"vdflow/internal/storage"
	"vdflow/internal/symbols"
	"vdflow/internal/web"
)

var (
	cfgFile    string
	symbolList string
	universe   string
	format     string
	workers    int
	maxZones   int
	refresh    bool
	verbose    bool
	port       int
	settle     time.Duration
	dataDir    string
	cycles     int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vdflow",
		Short: "Volume-delta flow accumulation/distribution detector",
		Long: `vdflow reads intraday bars, rolls them into daily buy/sell volume delta,
and looks for hidden accumulation: sustained net buying while price drifts
sideways or down. It also reports distribution clusters and breakouts,
with the precursor signals seen before each breakout.

Examples:
  vdflow scan --symbols AAPL,MSFT,NVDA
  vdflow scan --universe nasdaq100 --format json
  vdflow serve --port 8080
  vdflow watch --universe megacap --data-dir data`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Analyze tickers and print zones, clusters and breakouts",
		RunE:  runScan,
	}
	scanCmd.Flags().StringVar(&symbolList, "symbols", "", "comma-separated list of tickers")
	scanCmd.Flags().StringVar(&universe, "universe", "", "predefined ticker list: nasdaq100, megacap")
	scanCmd.Flags().StringVar(&format, "format", "table", "output format: table, json, markdown")
	scanCmd.Flags().IntVar(&workers, "workers", 0, "number of parallel workers (default from config)")
	scanCmd.Flags().IntVar(&maxZones, "max-zones", 0, "maximum zones per ticker (default from config)")
	scanCmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached results")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-scan tickers after every session close",
		RunE:  runWatch,
	}
	watchCmd.Flags().StringVar(&symbolList, "symbols", "", "comma-separated list of tickers")
	watchCmd.Flags().StringVar(&universe, "universe", "", "predefined ticker list: nasdaq100, megacap")
	watchCmd.Flags().DurationVar(&settle, "settle", 30*time.Minute, "wait after the close before scanning")
	watchCmd.Flags().StringVar(&dataDir, "data-dir", "", "directory for per-day cycle records")
	watchCmd.Flags().IntVar(&cycles, "cycles", 0, "stop after this many cycles (0 = run until interrupted)")

	rootCmd.AddCommand(scanCmd, serveCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles everything built from the config
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *metrics.Recorder
	cache   cache.BytesCache
	store   storage.Store
	scanner *scanner.Scanner
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("closing store")
		}
	}
	if rc, ok := a.cache.(*cache.RedisCache); ok {
		_ = rc.Close()
	}
}

func setup(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Override config with CLI flags
	if workers > 0 {
		cfg.Scanner.Workers = workers
	}
	if maxZones > 0 {
		cfg.Engine.MaxZones = maxZones
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: log, metrics: metrics.New("vdflow")}

	switch cfg.Cache.Backend {
	case "redis":
		rc := cache.NewRedisCache(cfg.Cache.Redis)
		if err := rc.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis %s: %w", cfg.Cache.Redis.Addr, err)
		}
		a.cache = rc
	default:
		tc := cache.NewTTLCache()
		a.metrics.WatchCacheEntries(tc.Len)
		a.cache = tc
	}

	switch cfg.Storage.Backend {
	case "postgres":
		pg, err := storage.NewPostgresStore(ctx, cfg.Storage.DSN, storage.DefaultPoolConfig())
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			a.Close()
			return nil, err
		}
		a.store = pg
	default:
		a.store = storage.NewMemoryStore(cfg.Storage.MaxPerTicker)
	}

	p := provider.NewFallbackProvider(createProviders(cfg, log)...)
	if verbose {
		names := make([]string, 0, len(p.Providers()))
		for _, sub := range p.Providers() {
			names = append(names, sub.Name())
		}
		log.Debug().Strs("providers", names).Msg("data providers")
	}

	a.scanner = scanner.NewScanner(p, a.cache, a.store, a.metrics, log, scanner.Config{
		Workers:         cfg.Scanner.Workers,
		Timeout:         cfg.Scanner.Timeout,
		TickerTimeout:   cfg.Scanner.TickerTimeout,
		ScanDays:        cfg.Scanner.ScanDays,
		PreContextDays:  cfg.Scanner.PreContextDays,
		IntervalMinutes: cfg.Scanner.IntervalMinutes,
		MaxZones:        cfg.Engine.MaxZones,
		Location:        market.Location(cfg.Engine.Timezone),
		CacheTTL:        cfg.Cache.TTL,
		CachePrefix:     cfg.Cache.Prefix,
	})
	return a, nil
}

// createProviders builds the fallback chain, each guarded by a breaker and an
// in-process bar cache
func createProviders(cfg *config.Config, log zerolog.Logger) []provider.Provider {
	var raw []provider.Provider

	// Finnhub (primary when a key is set)
	if cfg.API.Finnhub.Key != "" {
		raw = append(raw, provider.NewFinnhubProvider(cfg.API.Finnhub.Key, cfg.API.Finnhub.RateLimit))
	}

	// Yahoo Finance (fallback - always available)
	raw = append(raw, provider.NewYahooProvider())

	settings := provider.BreakerSettings{
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout,
	}
	out := make([]provider.Provider, 0, len(raw))
	for _, p := range raw {
		guarded := provider.NewBreakerProvider(p, settings, log)
		out = append(out, provider.NewCachingProvider(guarded, 10*time.Minute))
	}
	return out
}

// signalContext cancels on SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted. Stopping...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

func runScan(cmd *cobra.Command, args []string) error {
	switch format {
	case "table", "json", "markdown":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	tickers, err := symbols.Resolve(symbolList, universe)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if format == "table" {
		fmt.Printf("Scanning %d tickers (%d calendar days, %d-day pre-context)...\n\n",
			len(tickers), a.cfg.Scanner.ScanDays, a.cfg.Scanner.PreContextDays)
	}

	// Setup progress bar
	bar := progressbar.NewOptions(len(tickers),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Scanning"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	a.scanner.SetProgressCallback(func(scanned, total int) {
		_ = bar.Set(scanned)
	})

	result, err := a.scanner.Scan(ctx, tickers, refresh)
	if err != nil {
		return fmt.Errorf("scanning: %w", err)
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	precision := a.cfg.Engine.Precision
	switch format {
	case "json":
		return outputJSON(result, precision)
	case "markdown":
		return outputMarkdown(result, precision)
	default:
		return outputTable(result, precision)
	}
}

func outputTable(result *scanner.ScanResult, p analyzer.Precision) error {
	if result.Analyzed == 0 {
		fmt.Println("No tickers could be analyzed.")
		printFailures(result.Failed)
		return nil
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Ticker", "As Of", "Days", "Zones", "Top Score", "Dist", "Breakouts", "Latest Proximity"}),
	)
	for _, s := range result.Snapshots {
		r := s.Result.Rounded(p)
		top := "-"
		if len(r.Zones) > 0 {
			top = fmt.Sprintf("%.3f", r.Zones[0].Score)
		}
		prox := "-"
		if n := len(r.Breakouts); n > 0 {
			last := r.Breakouts[n-1].Proximity
			prox = fmt.Sprintf("%s (%d)", last.Level, last.Points)
		}
		table.Append([]string{
			s.Ticker,
			s.AsOf.Format("2006-01-02"),
			fmt.Sprintf("%d", r.Days),
			fmt.Sprintf("%d", len(r.Zones)),
			top,
			fmt.Sprintf("%d", len(r.Distribution)),
			fmt.Sprintf("%d", len(r.Breakouts)),
			prox,
		})
	}
	table.Render()

	// Print details for tickers with zones
	count := 0
	for _, s := range result.Snapshots {
		if count >= 5 || len(s.Result.Zones) == 0 {
			break
		}
		fmt.Println()
		if err := report.Write(os.Stdout, s, p, report.StyleConsole); err != nil {
			return err
		}
		count++
	}

	printFailures(result.Failed)
	fmt.Printf("\nAnalyzed %d/%d tickers in %s\n", result.Analyzed, result.TotalScanned, result.ScanTime.Round(time.Second))
	return nil
}

func printFailures(failed map[string]string) {
	if len(failed) == 0 {
		return
	}
	keys := make([]string, 0, len(failed))
	for k := range failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Printf("\nSkipped %d tickers:\n", len(keys))
	for _, k := range keys {
		fmt.Printf("  %-6s %s\n", k, failed[k])
	}
}

func outputMarkdown(result *scanner.ScanResult, p analyzer.Precision) error {
	parts := make([]string, 0, len(result.Snapshots))
	for _, s := range result.Snapshots {
		md, err := report.Markdown(s, p)
		if err != nil {
			return err
		}
		parts = append(parts, md)
	}
	fmt.Println(strings.Join(parts, "\n---\n\n"))
	return nil
}

func outputJSON(result *scanner.ScanResult, p analyzer.Precision) error {
	for i := range result.Snapshots {
		result.Snapshots[i].Result = result.Snapshots[i].Result.Rounded(p)
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := web.NewServer(a.scanner, a.store, a.metrics, a.logger, web.Options{
		Port:         a.cfg.Server.Port,
		JWTSecret:    a.cfg.Server.JWTSecret,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		RefreshLimit: a.cfg.Server.RefreshLimit,
		Precision:    a.cfg.Engine.Precision,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	a.logger.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func runWatch(cmd *cobra.Command, args []string) error {
	tickers, err := symbols.Resolve(symbolList, universe)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := daemon.DefaultConfig()
	cfg.Tickers = tickers
	cfg.SettleDelay = settle
	cfg.DataDir = dataDir
	cfg.MaxCycles = cycles

	return daemon.NewDaemon(cfg, a.scanner, a.logger).Run(ctx)
}
