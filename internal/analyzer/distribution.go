package analyzer

const (
	DistributionWindow   = 10
	DistributionPriceMin = 3.0  // price change percent
	DistributionDeltaMax = -3.0 // net delta percent
	DistributionMergeGap = 5 // days strictly between windows
)

type rollingWindow struct {
	start, end  int
	priceChange float64
	netDeltaPct float64
}

// ScanDistribution slides a 10-day window over days and returns the merged
// distribution clusters (price up, flow down) and accumulation-in-decline
// clusters (price down, flow up), each in chronological order.
func ScanDistribution(days []DailyAggregate) (distribution, declineAbsorb []DistributionCluster) {
	var dist, decl []rollingWindow
	for start := 0; start+DistributionWindow <= len(days); start++ {
		end := start + DistributionWindow - 1
		w := rollingWindow{
			start:       start,
			end:         end,
			priceChange: pctChange(days[start].Close, days[end].Close),
			netDeltaPct: spanDeltaPct(days[start : end+1]),
		}
		switch {
		case w.priceChange > DistributionPriceMin && w.netDeltaPct < DistributionDeltaMax:
			dist = append(dist, w)
		case w.priceChange < -DistributionPriceMin && w.netDeltaPct > -DistributionDeltaMax:
			decl = append(decl, w)
		}
	}

	return mergeWindows(days, dist, ClusterDistribution), mergeWindows(days, decl, ClusterAccumulationInDecline)
}

func spanDeltaPct(days []DailyAggregate) float64 {
	var delta, vol int64
	for _, d := range days {
		delta += d.Delta
		vol += d.TotalVolume
	}
	if vol == 0 {
		return 0
	}
	return float64(delta) / float64(vol) * 100
}

// mergeWindows folds ascending qualifying windows into clusters. Headline
// figures are recomputed over the merged span rather than averaged.
func mergeWindows(days []DailyAggregate, windows []rollingWindow, kind ClusterKind) []DistributionCluster {
	var clusters []DistributionCluster
	for _, w := range windows {
		if n := len(clusters); n > 0 && daysBetween(clusters[n-1].EndIndex, w.start) <= DistributionMergeGap {
			c := &clusters[n-1]
			if w.end > c.EndIndex {
				c.EndIndex = w.end
			}
			c.WindowCount++
			if more(kind, w.priceChange, c.PeakPriceChangePct) {
				c.PeakPriceChangePct = w.priceChange
			}
			if more(kind, -w.netDeltaPct, -c.PeakDeltaPct) {
				c.PeakDeltaPct = w.netDeltaPct
			}
			continue
		}
		clusters = append(clusters, DistributionCluster{
			Kind:               kind,
			StartIndex:         w.start,
			EndIndex:           w.end,
			WindowCount:        1,
			PeakPriceChangePct: w.priceChange,
			PeakDeltaPct:       w.netDeltaPct,
		})
	}

	for i := range clusters {
		c := &clusters[i]
		c.StartDate = days[c.StartIndex].Date
		c.EndDate = days[c.EndIndex].Date
		c.PriceChangePct = pctChange(days[c.StartIndex].Close, days[c.EndIndex].Close)
		c.NetDeltaPct = spanDeltaPct(days[c.StartIndex : c.EndIndex+1])
	}
	return clusters
}

// more reports whether v is a stronger extreme than cur for the cluster kind.
// Distribution peaks are the largest rally; decline peaks are the deepest drop.
func more(kind ClusterKind, v, cur float64) bool {
	if kind == ClusterDistribution {
		return v > cur
	}
	return v < cur
}
