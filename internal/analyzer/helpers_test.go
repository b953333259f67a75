package analyzer

import "time"

// firstMonday anchors synthetic series so that every fifth day starts a new ISO week
var firstMonday = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

// tradingDates returns n consecutive weekdays starting at from
func tradingDates(from time.Time, n int) []time.Time {
	dates := make([]time.Time, 0, n)
	for d := from; len(dates) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

// buildDays assembles daily aggregates from parallel close, delta and volume series
func buildDays(closes []float64, deltas, volumes []int64) []DailyAggregate {
	dates := tradingDates(firstMonday, len(closes))
	days := make([]DailyAggregate, len(closes))
	for i := range closes {
		buy := (volumes[i] + deltas[i]) / 2
		sell := buy - deltas[i]
		days[i] = finishDay(DailyAggregate{
			Date:        dates[i],
			Open:        closes[i],
			High:        closes[i] * 1.01,
			Low:         closes[i] * 0.99,
			Close:       closes[i],
			TotalVolume: volumes[i],
			BuyVolume:   buy,
			SellVolume:  sell,
			Bars:        1,
		})
	}
	return days
}

// linear returns n values moving evenly from a to b
func linear(a, b float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if n == 1 {
			out[i] = a
			continue
		}
		out[i] = a + (b-a)*float64(i)/float64(n-1)
	}
	return out
}

func constant(v int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// basingDays is a 20-day, four-week decline of 20% carrying +3.5% net delta
// with three of four weeks positive and no outliers
func basingDays() []DailyAggregate {
	deltas := make([]int64, 0, 20)
	for _, weekly := range []int64{60_000, 60_000, -20_000, 40_000} {
		for j := 0; j < 5; j++ {
			deltas = append(deltas, weekly)
		}
	}
	return buildDays(linear(100, 80, 20), deltas, constant(1_000_000, 20))
}
