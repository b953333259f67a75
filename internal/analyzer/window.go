package analyzer

import "math"

// Window gates and reference ranges. These encode tuned behaviour and are not configurable.
const (
	MinWeeks          = 2
	PriceBandLow      = -45.0 // exclusive
	PriceBandHigh     = 10.0  // exclusive
	OutlierSigma      = 3.0
	ConcordantGate    = -1.5 // net delta percent
	SlopeGate         = -0.5 // normalized cumulative weekly delta slope
	DetectThreshold   = 0.30
	LargeDayFraction  = 0.10 // |delta| vs mean daily volume
	ConcordantPenalty = 0.8

	durationBase    = 0.70
	durationPerWeek = 0.075
	durationMax     = 1.15
)

// RejectReason explains why a window was not scored
type RejectReason string

const (
	RejectNone         RejectReason = ""
	RejectInsufficient RejectReason = "insufficient_data"
	RejectPriceBand    RejectReason = "price_band"
	RejectConcordant   RejectReason = "concordant"
	RejectSlopeGate    RejectReason = "slope_gate"
)

// ScoreWindow evaluates one ascending slice of daily aggregates against the
// baseline (pre-context) days. It returns nil and the reason when a gate rejects.
// The function is pure: identical inputs always give identical scores.
func ScoreWindow(window, baseline []DailyAggregate) (*WindowScore, RejectReason) {
	groups := weekGroups(window)
	if len(window) < 2 || len(groups) < MinWeeks {
		return nil, RejectInsufficient
	}

	n := len(window)
	first, last := window[0], window[n-1]
	priceChange := pctChange(first.Close, last.Close)
	if !(priceChange > PriceBandLow && priceChange < PriceBandHigh) {
		return nil, RejectPriceBand
	}

	raw := make([]float64, n)
	vols := make([]float64, n)
	var totalVol float64
	for i, d := range window {
		raw[i] = float64(d.Delta)
		vols[i] = float64(d.TotalVolume)
		totalVol += vols[i]
	}

	deltas, _, _, cappedIdx := winsorize(raw, OutlierSigma)
	capped := make([]CappedDay, 0, len(cappedIdx))
	for _, i := range cappedIdx {
		capped = append(capped, CappedDay{Date: window[i].Date, Original: raw[i], Capped: deltas[i]})
	}

	var deltaSum float64
	for _, d := range deltas {
		deltaSum += d
	}
	var netDeltaPct float64
	if totalVol > 0 {
		netDeltaPct = deltaSum / totalVol * 100
	}
	if netDeltaPct < ConcordantGate {
		return nil, RejectConcordant
	}

	// Weekly sums from winsorized deltas, then slope of the cumulative series
	weeks := make([]WeekSummary, len(groups))
	cumulative := make([]float64, len(groups))
	var running, weekVolSum float64
	accumWeeks := 0
	for wi, g := range groups {
		ws := WeekSummary{WeekStart: WeekStart(window[g[0]].Date), Days: g[1] - g[0], Close: window[g[1]-1].Close}
		for i := g[0]; i < g[1]; i++ {
			ws.Delta += deltas[i]
			ws.TotalVolume += window[i].TotalVolume
		}
		if ws.TotalVolume > 0 {
			ws.DeltaPct = ws.Delta / float64(ws.TotalVolume) * 100
		}
		if ws.Delta > 0 {
			accumWeeks++
		}
		running += ws.Delta
		cumulative[wi] = running
		weekVolSum += float64(ws.TotalVolume)
		weeks[wi] = ws
	}
	meanWeekVol := weekVolSum / float64(len(groups))
	var slopeNorm float64
	if meanWeekVol > 0 {
		slopeNorm = olsSlope(cumulative) / meanWeekVol * 100
	}
	if slopeNorm < SlopeGate {
		return nil, RejectSlopeGate
	}

	meanVol := mean(vols)

	// s3: average daily delta shift against the baseline, in baseline-volume units
	var shift float64
	if len(baseline) > 0 {
		var preDelta, preVol float64
		for _, d := range baseline {
			preDelta += float64(d.Delta)
			preVol += float64(d.TotalVolume)
		}
		preAvgVol := preVol / float64(len(baseline))
		if preAvgVol > 0 {
			shift = (deltaSum/float64(n) - preDelta/float64(len(baseline))) / preAvgVol * 100
		}
	}

	// s5: large buy days minus large sell days
	largeThreshold := LargeDayFraction * meanVol
	largeBuy, largeSell := 0, 0
	for _, d := range deltas {
		if math.Abs(d) > largeThreshold {
			if d > 0 {
				largeBuy++
			} else {
				largeSell++
			}
		}
	}
	largeBuyVsSell := float64(largeBuy-largeSell) / float64(n) * 100

	// s6: absorption (close down versus prior day, delta up)
	absorbed := 0
	for i := 1; i < n; i++ {
		if window[i].Close < window[i-1].Close && deltas[i] > 0 {
			absorbed++
		}
	}
	absorptionPct := float64(absorbed) / float64(n-1) * 100

	// s7: volume decline from first third to last third
	third := n / 3
	if third < 1 {
		third = 1
	}
	firstVol := mean(vols[:third])
	lastVol := mean(vols[n-third:])
	var volDecline, volDeclineScore float64
	if firstVol > 0 && lastVol < firstVol {
		volDecline = (firstVol - lastVol) / firstVol
		volDeclineScore = clamp01(volDecline / 0.3)
	}

	// Price/flow correlation on day-over-day close changes
	priceMoves := make([]float64, n-1)
	for i := 1; i < n; i++ {
		priceMoves[i-1] = window[i].Close - window[i-1].Close
	}

	comp := Components{
		NetDelta:      clamp01((netDeltaPct + 1.5) / 5),
		DeltaSlope:    clamp01((slopeNorm + 0.5) / 4),
		DeltaShift:    clamp01((shift + 1) / 8),
		AccumRatio:    clamp01((float64(accumWeeks)/float64(len(groups)) - 0.2) / 0.6),
		BuyVsSellDays: clamp01((largeBuyVsSell + 3) / 12),
		Absorption:    clamp01(absorptionPct / 20),
		VolumeDecline: volDeclineScore,
		Divergence:    divergence(priceChange, netDeltaPct),
	}

	penalty := 1.0
	if priceChange < 0 && netDeltaPct < 0 {
		penalty = ConcordantPenalty
	}
	multiplier := DurationMultiplier(len(groups))
	rawScore := composite(comp, DefaultWeights())
	score := rawScore * multiplier * penalty

	return &WindowScore{
		EndIndex:           n - 1,
		Score:              score,
		RawScore:           rawScore,
		DurationMultiplier: multiplier,
		ConcordancePenalty: penalty,
		Detected:           score >= DetectThreshold,
		OverallPriceChange: priceChange,
		NetDeltaPct:        netDeltaPct,
		DeltaSlopeNorm:     slopeNorm,
		PriceDeltaCorr:     pearson(priceMoves, deltas[1:]),
		AccumWeeks:         accumWeeks,
		AbsorptionPct:      absorptionPct,
		LargeBuyVsSell:     largeBuyVsSell,
		VolDeclineScore:    volDecline * 100,
		Components:         comp,
		CappedDays:         capped,
		Weeks:              weeks,
	}, RejectNone
}

// divergence is the primary thesis component: price fell while flow stayed positive.
// Zero when price is rising or net delta is not positive.
func divergence(priceChange, netDeltaPct float64) float64 {
	if priceChange >= 0 || netDeltaPct <= 0 {
		return 0
	}
	return clamp01((netDeltaPct+1.5)/5) * clamp01(-priceChange/10)
}

// DurationMultiplier rewards longer bases: 0.70 at two weeks, +0.075 per extra week, capped at 1.15
func DurationMultiplier(weeks int) float64 {
	return clamp(durationBase+float64(weeks-2)*durationPerWeek, durationBase, durationMax)
}
