package analyzer

const (
	BreakoutRun         = 5
	BreakoutBaseline    = 20
	BreakoutPriceMin    = 8.0 // price change percent over the run
	BreakoutVolumeRatio = 1.2
	BreakoutSuppress    = 15 // index positions after an accepted breakout

	polarityBand = 2.0

	durabilityLookahead = 20
	durabilityMinDays   = 10
	durableWeeks        = 3
	fragileWeeks        = 1
)

// DetectBreakouts scans 5-day runs for volume-confirmed price advances.
// Earlier breakouts win: a later candidate within 15 positions is dropped.
// Each accepted breakout carries its polarity, durability and proximity signal.
func DetectBreakouts(days []DailyAggregate) []Breakout {
	var out []Breakout
	first := BreakoutRun + BreakoutBaseline - 1

	for i := first; i < len(days); i++ {
		if n := len(out); n > 0 && i-out[n-1].Index <= BreakoutSuppress {
			continue
		}

		priceStart := days[i-BreakoutRun].Close
		priceChange := pctChange(priceStart, days[i].Close)
		if priceChange <= BreakoutPriceMin {
			continue
		}

		runStart := i - BreakoutRun + 1
		baseVol := meanVolume(days[runStart-BreakoutBaseline : runStart])
		if baseVol == 0 {
			continue
		}
		ratio := meanVolume(days[runStart:i+1]) / baseVol
		if ratio <= BreakoutVolumeRatio {
			continue
		}

		b := Breakout{
			Index:          i,
			Date:           days[i].Date,
			StartIndex:     runStart,
			StartDate:      days[runStart].Date,
			PriceChangePct: priceChange,
			VolumeRatio:    ratio,
			PriceStart:     priceStart,
			PriceEnd:       days[i].Close,
			DeltaPct:       spanDeltaPct(days[runStart : i+1]),
		}
		b.Polarity = polarity(b.DeltaPct)
		b.PositiveWeeks, b.Durability = durability(days, i)
		b.Proximity = ScoreProximity(days, runStart)

		out = append(out, b)
	}

	return out
}

func meanVolume(days []DailyAggregate) float64 {
	if len(days) == 0 {
		return 0
	}
	var sum int64
	for _, d := range days {
		sum += d.TotalVolume
	}
	return float64(sum) / float64(len(days))
}

func polarity(deltaPct float64) DeltaPolarity {
	switch {
	case deltaPct > polarityBand:
		return PolarityConfirmed
	case deltaPct < -polarityBand:
		return PolarityDistribution
	default:
		return PolarityNeutral
	}
}

// durability counts positive-delta weeks in the 20 days after index i
func durability(days []DailyAggregate, i int) (int, Durability) {
	end := min(i+durabilityLookahead, len(days)-1)
	if end-i < durabilityMinDays {
		return 0, DurabilityInsufficient
	}

	positive := 0
	for _, w := range AggregateWeekly(days[i+1 : end+1]) {
		if w.Delta > 0 {
			positive++
		}
	}

	switch {
	case positive >= durableWeeks:
		return positive, DurabilityDurable
	case positive <= fragileWeeks:
		return positive, DurabilityFragile
	default:
		return positive, DurabilityMixed
	}
}
