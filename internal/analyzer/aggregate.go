package analyzer

import (
	"sort"
	"time"

	"vdflow/pkg/model"
)

// AggregateDaily collapses fine-grained bars into one aggregate per trading date.
// Dates are taken in loc (the exchange's location). Invalid bars are dropped and
// a repeated timestamp is counted once. Days without bars produce nothing.
func AggregateDaily(bars []model.Candle, loc *time.Location) []DailyAggregate {
	if loc == nil {
		loc = time.UTC
	}

	// Sort a filtered copy by time
	candles := make([]model.Candle, 0, len(bars))
	for _, b := range bars {
		if b.Valid() {
			candles = append(candles, b)
		}
	}
	if len(candles) == 0 {
		return nil
	}
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Time.Before(candles[j].Time)
	})

	var days []DailyAggregate
	var cur *DailyAggregate
	var last time.Time

	for _, c := range candles {
		if cur != nil && c.Time.Equal(last) {
			continue
		}
		last = c.Time

		t := c.Time.In(loc)
		date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)

		if cur == nil || !cur.Date.Equal(date) {
			if cur != nil {
				days = append(days, finishDay(*cur))
			}
			cur = &DailyAggregate{
				Date: date,
				Open: c.Open,
				High: c.High,
				Low:  c.Low,
			}
		}

		if c.High > cur.High {
			cur.High = c.High
		}
		if c.Low < cur.Low {
			cur.Low = c.Low
		}
		cur.Close = c.Close
		cur.TotalVolume += c.Volume
		cur.Bars++

		switch {
		case c.Close > c.Open:
			cur.BuyVolume += c.Volume
		case c.Close < c.Open:
			cur.SellVolume += c.Volume
		}
	}
	days = append(days, finishDay(*cur))

	return days
}

func finishDay(d DailyAggregate) DailyAggregate {
	d.Delta = d.BuyVolume - d.SellVolume
	if d.Close > 0 {
		d.RangePct = (d.High - d.Low) / d.Close * 100
	}
	if d.TotalVolume > 0 {
		d.DeltaPct = float64(d.Delta) / float64(d.TotalVolume) * 100
	}
	return d
}

// WeekStart returns the Monday that begins the ISO week containing t
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

// AggregateWeekly groups ascending daily aggregates by ISO week.
// Short (holiday) weeks are kept with their actual day count.
func AggregateWeekly(days []DailyAggregate) []WeeklyAggregate {
	var weeks []WeeklyAggregate
	var rangeSum float64

	flush := func() {
		w := &weeks[len(weeks)-1]
		if w.TotalVolume > 0 {
			w.DeltaPct = float64(w.Delta) / float64(w.TotalVolume) * 100
		}
		w.AvgRangePct = rangeSum / float64(w.Days)
		w.AvgVolume = float64(w.TotalVolume) / float64(w.Days)
	}

	for _, d := range days {
		ws := WeekStart(d.Date)
		if len(weeks) == 0 || !weeks[len(weeks)-1].WeekStart.Equal(ws) {
			if len(weeks) > 0 {
				flush()
			}
			weeks = append(weeks, WeeklyAggregate{
				WeekStart: ws,
				Open:      d.Open,
				High:      d.High,
				Low:       d.Low,
			})
			rangeSum = 0
		}

		w := &weeks[len(weeks)-1]
		w.Delta += d.Delta
		w.TotalVolume += d.TotalVolume
		w.Days++
		w.Close = d.Close
		if d.High > w.High {
			w.High = d.High
		}
		if d.Low < w.Low {
			w.Low = d.Low
		}
		rangeSum += d.RangePct
	}
	if len(weeks) > 0 {
		flush()
	}

	return weeks
}

// weekGroups returns, for ascending days, the index ranges [start,end) of each ISO week
func weekGroups(days []DailyAggregate) [][2]int {
	weeks := AggregateWeekly(days)
	groups := make([][2]int, len(weeks))
	start := 0
	for i, w := range weeks {
		groups[i] = [2]int{start, start + w.Days}
		start += w.Days
	}
	return groups
}
