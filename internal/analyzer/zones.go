package analyzer

import "sort"

// WindowLengths are the candidate zone lengths in trading days
var WindowLengths = []int{10, 14, 17, 20, 24, 28, 35}

const (
	MaxOverlapFraction = 0.30
	MinZoneGap         = 10
)

// DiscoverZones scores every window length at every offset and greedily keeps the
// best non-overlapping detections. The result is ordered by score descending.
func DiscoverZones(days, baseline []DailyAggregate, maxZones int) []AccumulationZone {
	if maxZones < 1 {
		return nil
	}

	var candidates []AccumulationZone
	for _, length := range WindowLengths {
		for start := 0; start+length <= len(days); start++ {
			window := days[start : start+length]
			ws, reason := ScoreWindow(window, baseline)
			if reason != RejectNone || !ws.Detected {
				continue
			}
			ws.StartIndex = start
			ws.EndIndex = start + length - 1
			candidates = append(candidates, AccumulationZone{
				StartDate:   window[0].Date,
				EndDate:     window[length-1].Date,
				WindowDays:  length,
				WindowWeeks: len(ws.Weeks),
				WindowScore: *ws,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.StartIndex != b.StartIndex {
			return a.StartIndex < b.StartIndex
		}
		return a.WindowDays < b.WindowDays
	})

	var accepted []AccumulationZone
	for _, c := range candidates {
		if len(accepted) >= maxZones {
			break
		}
		if conflicts(c, accepted) {
			continue
		}
		accepted = append(accepted, c)
	}

	return accepted
}

func conflicts(c AccumulationZone, accepted []AccumulationZone) bool {
	width := float64(c.EndIndex - c.StartIndex + 1)
	for _, a := range accepted {
		if float64(overlap(c, a)) > MaxOverlapFraction*width {
			return true
		}
		if zoneGap(c, a) < MinZoneGap {
			return true
		}
	}
	return false
}

// overlap counts shared day indices
func overlap(a, b AccumulationZone) int {
	lo := max(a.StartIndex, b.StartIndex)
	hi := min(a.EndIndex, b.EndIndex)
	if hi < lo {
		return 0
	}
	return hi - lo + 1
}

// zoneGap counts the days strictly between two zones; overlapping or touching zones give 0 or less
func zoneGap(a, b AccumulationZone) int {
	if a.StartIndex > b.StartIndex {
		a, b = b, a
	}
	return daysBetween(a.EndIndex, b.StartIndex)
}

// daysBetween counts the positions strictly between end and a later start
func daysBetween(end, start int) int {
	return start - end - 1
}
