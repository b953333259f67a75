package analyzer

import (
	"time"

	"vdflow/pkg/model"
)

// DefaultMaxZones is the zone cap used when Options leaves it unset
const DefaultMaxZones = 3

// Options controls a single engine invocation
type Options struct {
	MaxZones int
	Location *time.Location // exchange location used for daily buckets
}

// Analyze runs every stage for one instrument: aggregation, zone discovery,
// the distribution scan, breakout detection and the timeline. bars is the scan
// window and preBars the shorter period immediately before it. The function does
// no I/O and shares no state, so callers may run many in parallel.
func Analyze(ticker string, bars, preBars []model.Candle, opts Options) AnalysisResult {
	if opts.MaxZones <= 0 {
		opts.MaxZones = DefaultMaxZones
	}

	days := AggregateDaily(bars, opts.Location)
	pre := AggregateDaily(preBars, opts.Location)

	zones := DiscoverZones(days, pre, opts.MaxZones)
	dist, decl := ScanDistribution(days)
	breakouts := DetectBreakouts(days)

	return AnalysisResult{
		Ticker:                ticker,
		Days:                  len(days),
		PreContextDays:        len(pre),
		Zones:                 zones,
		Distribution:          dist,
		AccumulationInDecline: decl,
		Breakouts:             breakouts,
		Timeline:              BuildTimeline(zones, breakouts, dist, decl),
	}
}
