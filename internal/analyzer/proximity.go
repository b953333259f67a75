package analyzer

import (
	"fmt"
	"math"
)

const (
	ProximityLookback   = 40
	ProximityMinHistory = 25

	exhaustionMinRun   = 3
	exhaustionPoints   = 15
	anomalyMultiple    = 4.0
	anomalyTrailing    = 20
	anomalyRecency     = 30
	anomalyPoints      = 25
	greenStreakMinRun  = 4
	greenStreakRecency = 20
	greenStreakPoints  = 20
	absorptionRecency  = 15
	absorptionMinDays  = 3
	absorptionPoints   = 15
	finalDumpFraction  = 0.15
	finalDumpPoints    = 10
	collapseShort      = 10
	collapseLong       = 30
	collapseRatio      = 0.7
	levelImminent      = 70
	levelHigh          = 50
	levelElevated      = 30
)

// Signal names used in ProximityDetail
const (
	SignalSellerExhaustion  = "seller_exhaustion"
	SignalDeltaAnomaly      = "delta_anomaly"
	SignalGreenStreak       = "green_streak"
	SignalAbsorptionCluster = "absorption_cluster"
	SignalFinalDump         = "final_dump"
	SignalVolumeCollapse    = "volume_collapse"
)

// ScoreProximity evaluates the up to 40 trading days before index start for
// precursor patterns. Fewer than 25 days of history yields INSUFFICIENT_DATA
// with no points.
func ScoreProximity(days []DailyAggregate, start int) ProximitySignal {
	if start > len(days) {
		start = len(days)
	}
	from := max(0, start-ProximityLookback)
	period := days[from:start]
	if len(period) < ProximityMinHistory {
		return ProximitySignal{Level: ProximityInsufficient}
	}

	var details []ProximityDetail

	// Fading negative streaks
	for _, r := range signRuns(period, false) {
		if r[1]-r[0] < exhaustionMinRun {
			continue
		}
		firstDay, lastDay := period[r[0]], period[r[1]-1]
		if abs64(lastDay.Delta) < abs64(firstDay.Delta) {
			details = append(details, ProximityDetail{
				Signal: SignalSellerExhaustion,
				Date:   lastDay.Date,
				Detail: fmt.Sprintf("%d-day selling streak fading from %d to %d", r[1]-r[0], firstDay.Delta, lastDay.Delta),
				Points: exhaustionPoints,
			})
		}
	}

	// Outsized flow days close to the breakout
	for idx := max(from, start-anomalyRecency, anomalyTrailing); idx < start; idx++ {
		var sum float64
		for _, d := range days[idx-anomalyTrailing : idx] {
			sum += math.Abs(float64(d.Delta))
		}
		trailing := sum / anomalyTrailing
		if trailing == 0 {
			continue
		}
		if mag := math.Abs(float64(days[idx].Delta)); mag > anomalyMultiple*trailing {
			details = append(details, ProximityDetail{
				Signal: SignalDeltaAnomaly,
				Date:   days[idx].Date,
				Detail: fmt.Sprintf("|delta| %.0f is %.1fx the 20-day mean", mag, mag/trailing),
				Points: anomalyPoints,
			})
		}
	}

	recent := period[len(period)-greenStreakRecency:]
	for _, r := range signRuns(recent, true) {
		if r[1]-r[0] >= greenStreakMinRun {
			details = append(details, ProximityDetail{
				Signal: SignalGreenStreak,
				Date:   recent[r[1]-1].Date,
				Detail: fmt.Sprintf("%d consecutive buying days", r[1]-r[0]),
				Points: greenStreakPoints,
			})
		}
	}

	absorbed := 0
	for idx := start - absorptionRecency; idx < start; idx++ {
		if idx > 0 && days[idx].Close < days[idx-1].Close && days[idx].Delta > 0 {
			absorbed++
		}
	}
	if absorbed >= absorptionMinDays {
		details = append(details, ProximityDetail{
			Signal: SignalAbsorptionCluster,
			Date:   days[start-1].Date,
			Detail: fmt.Sprintf("%d absorption days in the last %d", absorbed, absorptionRecency),
			Points: absorptionPoints,
		})
	}

	last := period[len(period)-1]
	if last.Delta < 0 && math.Abs(float64(last.Delta)) > finalDumpFraction*meanVolume(period) {
		details = append(details, ProximityDetail{
			Signal: SignalFinalDump,
			Date:   last.Date,
			Detail: fmt.Sprintf("final day sold %d", last.Delta),
			Points: finalDumpPoints,
		})
	}

	long := period[max(0, len(period)-collapseLong):]
	short := period[len(period)-collapseShort:]
	if longVol := meanVolume(long); longVol > 0 && meanVolume(short) < collapseRatio*longVol {
		details = append(details, ProximityDetail{
			Signal: SignalVolumeCollapse,
			Date:   last.Date,
			Detail: fmt.Sprintf("10-day volume at %.0f%% of 30-day mean", meanVolume(short)/longVol*100),
		})
	}

	points := 0
	for _, d := range details {
		points += d.Points
	}

	return ProximitySignal{
		Details: details,
		Points:  points,
		Level:   proximityLevel(points),
	}
}

func proximityLevel(points int) ProximityLevel {
	switch {
	case points >= levelImminent:
		return ProximityImminent
	case points >= levelHigh:
		return ProximityHigh
	case points >= levelElevated:
		return ProximityElevated
	default:
		return ProximityNone
	}
}

// signRuns returns the [start,end) ranges of maximal runs of strictly positive
// (or strictly negative) delta
func signRuns(days []DailyAggregate, positive bool) [][2]int {
	var runs [][2]int
	inRun := false
	for i, d := range days {
		match := d.Delta < 0
		if positive {
			match = d.Delta > 0
		}
		switch {
		case match && inRun:
			runs[len(runs)-1][1] = i + 1
		case match:
			runs = append(runs, [2]int{i, i + 1})
			inRun = true
		default:
			inRun = false
		}
	}
	return runs
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
