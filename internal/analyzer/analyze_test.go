package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vdflow/pkg/model"
)

// candlesFrom expands each day into a buy bar, a sell bar and an unchanged bar
// that aggregate back to the same day
func candlesFrom(days []DailyAggregate) []model.Candle {
	var bars []model.Candle
	for _, d := range days {
		ts := d.Date.Add(14*time.Hour + 30*time.Minute)
		c := d.Close
		bars = append(bars,
			model.Candle{Time: ts, Open: c * 0.999, High: c, Low: c * 0.999, Close: c, Volume: d.BuyVolume},
			model.Candle{Time: ts.Add(time.Hour), Open: c * 1.001, High: c * 1.001, Low: c, Close: c, Volume: d.SellVolume},
			model.Candle{Time: ts.Add(2 * time.Hour), Open: c, High: c, Low: c, Close: c, Volume: d.TotalVolume - d.BuyVolume - d.SellVolume},
		)
	}
	return bars
}

func TestAnalyze(t *testing.T) {
	days := basingDays()
	pre := buildDays(linear(110, 100, 10), constant(-10_000, 10), constant(1_000_000, 10))
	for i := range pre {
		pre[i].Date = pre[i].Date.AddDate(0, 0, -28)
	}

	result := Analyze("TEST", candlesFrom(days), candlesFrom(pre), Options{Location: time.UTC})

	assert.Equal(t, "TEST", result.Ticker)
	assert.Equal(t, 20, result.Days)
	assert.Equal(t, 10, result.PreContextDays)
	require.NotEmpty(t, result.Zones)
	assert.LessOrEqual(t, len(result.Zones), DefaultMaxZones)
	assert.Empty(t, result.Breakouts)

	for i := 1; i < len(result.Timeline); i++ {
		assert.False(t, result.Timeline[i].Date.Before(result.Timeline[i-1].Date), "timeline must be date ordered")
	}
	assert.Len(t, result.Timeline, 2*len(result.Zones)+2*len(result.Distribution)+2*len(result.AccumulationInDecline))
}

func TestAnalyze_MatchesStages(t *testing.T) {
	days := driftingDecline(80, 11)
	bars := candlesFrom(days)

	result := Analyze("X", bars, nil, Options{MaxZones: 2, Location: time.UTC})
	aggregated := AggregateDaily(bars, time.UTC)
	require.Len(t, aggregated, len(days))

	assert.Equal(t, DiscoverZones(aggregated, nil, 2), result.Zones)
	dist, decl := ScanDistribution(aggregated)
	assert.Equal(t, dist, result.Distribution)
	assert.Equal(t, decl, result.AccumulationInDecline)
}

func TestBuildTimeline(t *testing.T) {
	d := func(day int) time.Time { return firstMonday.AddDate(0, 0, day) }

	zones := []AccumulationZone{{StartDate: d(10), EndDate: d(30), WindowDays: 14}}
	breakouts := []Breakout{{Date: d(35), Polarity: PolarityConfirmed, Durability: DurabilityDurable}}
	dist := []DistributionCluster{{Kind: ClusterDistribution, StartDate: d(50), EndDate: d(60), WindowCount: 3}}
	decl := []DistributionCluster{{Kind: ClusterAccumulationInDecline, StartDate: d(0), EndDate: d(8), WindowCount: 1}}

	events := BuildTimeline(zones, breakouts, dist, decl)
	require.Len(t, events, 7)

	var kinds []EventKind
	for _, e := range events {
		kinds = append(kinds, e.Kind)
		assert.Equal(t, e.Kind.Action(), e.Action)
	}
	assert.Equal(t, []EventKind{
		EventDeclineAbsorbStart,
		EventDeclineAbsorbEnd,
		EventZoneStart,
		EventZoneEnd,
		EventBreakout,
		EventDistributionStart,
		EventDistributionEnd,
	}, kinds)

	assert.Equal(t, "start accumulating", EventZoneStart.Action())
	assert.Equal(t, "start taking profits", EventDistributionStart.Action())
	assert.Equal(t, 14, zones[0].WindowDays, "inputs are read only")
}

func TestAnalysisResult_Rounded(t *testing.T) {
	result := AnalysisResult{
		Zones: []AccumulationZone{{
			WindowScore: WindowScore{
				Score:       0.123456,
				NetDeltaPct: 3.456,
				Components:  Components{Divergence: 0.98765},
			},
		}},
		Breakouts: []Breakout{{PriceChangePct: 9.04999, VolumeRatio: 1.23456}},
	}

	rounded := result.Rounded(DefaultPrecision())

	assert.Equal(t, 0.123, rounded.Zones[0].Score)
	assert.Equal(t, 3.5, rounded.Zones[0].NetDeltaPct)
	assert.Equal(t, 0.988, rounded.Zones[0].Components.Divergence)
	assert.Equal(t, 9.0, rounded.Breakouts[0].PriceChangePct)
	assert.Equal(t, 1.235, rounded.Breakouts[0].VolumeRatio)

	assert.Equal(t, 0.123456, result.Zones[0].Score, "original must be untouched")
	assert.Equal(t, 3.456, result.Zones[0].NetDeltaPct)
}
