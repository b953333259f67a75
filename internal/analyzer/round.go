package analyzer

import "math"

// Precision sets decimal places for display rounding
type Precision struct {
	Percent int `yaml:"percent_decimals"`
	Ratio   int `yaml:"ratio_decimals"`
}

// DefaultPrecision rounds percentages to 1 decimal and ratios/scores to 3
func DefaultPrecision() Precision {
	return Precision{Percent: 1, Ratio: 3}
}

func roundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// Rounded returns a deep copy of r with every float rounded. r is not modified.
func (r AnalysisResult) Rounded(p Precision) AnalysisResult {
	pct := func(x float64) float64 { return roundTo(x, p.Percent) }
	rat := func(x float64) float64 { return roundTo(x, p.Ratio) }

	out := r
	out.Zones = make([]AccumulationZone, len(r.Zones))
	for i, z := range r.Zones {
		z.Score = rat(z.Score)
		z.RawScore = rat(z.RawScore)
		z.DurationMultiplier = rat(z.DurationMultiplier)
		z.ConcordancePenalty = rat(z.ConcordancePenalty)
		z.OverallPriceChange = pct(z.OverallPriceChange)
		z.NetDeltaPct = pct(z.NetDeltaPct)
		z.DeltaSlopeNorm = rat(z.DeltaSlopeNorm)
		z.PriceDeltaCorr = rat(z.PriceDeltaCorr)
		z.AbsorptionPct = pct(z.AbsorptionPct)
		z.LargeBuyVsSell = pct(z.LargeBuyVsSell)
		z.VolDeclineScore = pct(z.VolDeclineScore)

		c := &z.Components
		c.NetDelta = rat(c.NetDelta)
		c.DeltaSlope = rat(c.DeltaSlope)
		c.DeltaShift = rat(c.DeltaShift)
		c.AccumRatio = rat(c.AccumRatio)
		c.BuyVsSellDays = rat(c.BuyVsSellDays)
		c.Absorption = rat(c.Absorption)
		c.VolumeDecline = rat(c.VolumeDecline)
		c.Divergence = rat(c.Divergence)

		capped := make([]CappedDay, len(z.CappedDays))
		for j, cd := range z.CappedDays {
			cd.Original = rat(cd.Original)
			cd.Capped = rat(cd.Capped)
			capped[j] = cd
		}
		z.CappedDays = capped

		weeks := make([]WeekSummary, len(z.Weeks))
		for j, w := range z.Weeks {
			w.Delta = rat(w.Delta)
			w.DeltaPct = pct(w.DeltaPct)
			w.Close = rat(w.Close)
			weeks[j] = w
		}
		z.Weeks = weeks

		out.Zones[i] = z
	}

	roundClusters := func(cs []DistributionCluster) []DistributionCluster {
		res := make([]DistributionCluster, len(cs))
		for i, c := range cs {
			c.PeakPriceChangePct = pct(c.PeakPriceChangePct)
			c.PeakDeltaPct = pct(c.PeakDeltaPct)
			c.PriceChangePct = pct(c.PriceChangePct)
			c.NetDeltaPct = pct(c.NetDeltaPct)
			res[i] = c
		}
		return res
	}
	out.Distribution = roundClusters(r.Distribution)
	out.AccumulationInDecline = roundClusters(r.AccumulationInDecline)

	out.Breakouts = make([]Breakout, len(r.Breakouts))
	for i, b := range r.Breakouts {
		b.PriceChangePct = pct(b.PriceChangePct)
		b.VolumeRatio = rat(b.VolumeRatio)
		b.PriceStart = rat(b.PriceStart)
		b.PriceEnd = rat(b.PriceEnd)
		b.DeltaPct = pct(b.DeltaPct)
		b.Proximity.Details = append([]ProximityDetail(nil), b.Proximity.Details...)
		out.Breakouts[i] = b
	}

	out.Timeline = append([]TimelineEvent(nil), r.Timeline...)
	return out
}
