package analyzer

import (
	"fmt"
	"sort"
)

var eventActions = map[EventKind]string{
	EventZoneStart:          "start accumulating",
	EventZoneEnd:            "accumulation complete, watch for breakout",
	EventBreakout:           "breakout, hold or add on strength",
	EventDistributionStart:  "start taking profits",
	EventDistributionEnd:    "distribution ends",
	EventDeclineAbsorbStart: "buyers absorbing the decline",
	EventDeclineAbsorbEnd:   "decline absorption ends",
}

// Action returns the fixed label attached to an event kind
func (k EventKind) Action() string {
	return eventActions[k]
}

// BuildTimeline merges zone, breakout and cluster events into one date-ordered
// narrative. Inputs are only read.
func BuildTimeline(zones []AccumulationZone, breakouts []Breakout, distribution, declineAbsorb []DistributionCluster) []TimelineEvent {
	var events []TimelineEvent
	add := func(e TimelineEvent) {
		e.Action = e.Kind.Action()
		events = append(events, e)
	}

	for _, z := range zones {
		add(TimelineEvent{Date: z.StartDate, Kind: EventZoneStart,
			Note: fmt.Sprintf("score %.2f over %d days", z.Score, z.WindowDays)})
		add(TimelineEvent{Date: z.EndDate, Kind: EventZoneEnd,
			Note: fmt.Sprintf("price %+.1f%%, net delta %+.1f%%", z.OverallPriceChange, z.NetDeltaPct)})
	}
	for _, b := range breakouts {
		add(TimelineEvent{Date: b.Date, Kind: EventBreakout,
			Note: fmt.Sprintf("%+.1f%% on %.2fx volume, %s, %s", b.PriceChangePct, b.VolumeRatio, b.Polarity, b.Durability)})
	}
	for _, c := range distribution {
		add(TimelineEvent{Date: c.StartDate, Kind: EventDistributionStart,
			Note: fmt.Sprintf("%d windows", c.WindowCount)})
		add(TimelineEvent{Date: c.EndDate, Kind: EventDistributionEnd,
			Note: fmt.Sprintf("price %+.1f%%, net delta %+.1f%%", c.PriceChangePct, c.NetDeltaPct)})
	}
	for _, c := range declineAbsorb {
		add(TimelineEvent{Date: c.StartDate, Kind: EventDeclineAbsorbStart,
			Note: fmt.Sprintf("%d windows", c.WindowCount)})
		add(TimelineEvent{Date: c.EndDate, Kind: EventDeclineAbsorbEnd,
			Note: fmt.Sprintf("price %+.1f%%, net delta %+.1f%%", c.PriceChangePct, c.NetDeltaPct)})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	return events
}
