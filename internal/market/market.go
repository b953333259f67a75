package market

import (
	"fmt"
	"time"
)

// Schedule 미장 정규장 시간 (US Eastern 기준)
type Schedule struct {
	OpenHour  int
	OpenMin   int
	CloseHour int
	CloseMin  int
}

// DefaultSchedule NYSE/NASDAQ 정규장 09:30-16:00 ET
func DefaultSchedule() Schedule {
	return Schedule{
		OpenHour:  9,
		OpenMin:   30,
		CloseHour: 16,
		CloseMin:  0,
	}
}

// Status is the session state at a point in time
type Status struct {
	IsOpen     bool
	Now        time.Time
	OpenTime   time.Time
	CloseTime  time.Time
	TimeToOpen time.Duration
	Reason     string // "open", "weekend", "holiday", "pre-market", "after-hours"
}

// Range is a half-open [From, To) time range
type Range struct {
	From time.Time
	To   time.Time
}

func (r Range) String() string {
	return fmt.Sprintf("%s..%s", r.From.Format("2006-01-02"), r.To.Format("2006-01-02"))
}

// ETLocation US Eastern Time 로케이션. tzdata가 없으면 EST 고정 오프셋으로 대체
func ETLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// Location resolves a configured timezone name, falling back to ET
func Location(name string) *time.Location {
	if name == "" {
		return ETLocation()
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return ETLocation()
	}
	return loc
}

// 주요 휴장일 (간단 버전)
var holidays = map[string]bool{
	"2024-01-01": true, "2024-01-15": true, "2024-02-19": true, "2024-03-29": true, "2024-05-27": true,
	"2024-06-19": true, "2024-07-04": true, "2024-09-02": true, "2024-11-28": true, "2024-12-25": true,

	"2025-01-01": true, "2025-01-20": true, "2025-02-17": true, "2025-04-18": true, "2025-05-26": true,
	"2025-06-19": true, "2025-07-04": true, "2025-09-01": true, "2025-11-27": true, "2025-12-25": true,

	"2026-01-01": true, "2026-01-19": true, "2026-02-16": true, "2026-04-03": true, "2026-05-25": true,
	"2026-06-19": true, "2026-07-03": true, "2026-09-07": true, "2026-11-26": true, "2026-12-25": true,
}

// IsHoliday reports whether t's calendar date is a listed exchange holiday
func IsHoliday(t time.Time) bool {
	return holidays[t.Format("2006-01-02")]
}

// IsTradingDay 주말과 휴장일 제외
func IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday && !IsHoliday(t)
}

// StatusAt returns the session status at now
func StatusAt(now time.Time, schedule Schedule) Status {
	loc := ETLocation()
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	status := Status{
		Now:       now,
		OpenTime:  today.Add(time.Duration(schedule.OpenHour)*time.Hour + time.Duration(schedule.OpenMin)*time.Minute),
		CloseTime: today.Add(time.Duration(schedule.CloseHour)*time.Hour + time.Duration(schedule.CloseMin)*time.Minute),
	}

	switch {
	case now.Weekday() == time.Saturday || now.Weekday() == time.Sunday:
		status.Reason = "weekend"
	case IsHoliday(now):
		status.Reason = "holiday"
	case now.Before(status.OpenTime):
		status.Reason = "pre-market"
	case !now.Before(status.CloseTime):
		status.Reason = "after-hours"
	default:
		status.IsOpen = true
		status.Reason = "open"
		return status
	}

	// 다음 거래일 개장까지
	next := today
	if status.Reason != "pre-market" {
		next = next.AddDate(0, 0, 1)
	}
	for !IsTradingDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	nextOpen := time.Date(next.Year(), next.Month(), next.Day(), schedule.OpenHour, schedule.OpenMin, 0, 0, loc)
	status.TimeToOpen = nextOpen.Sub(now)

	return status
}

// LastSessionDate returns the ET midnight of the most recent trading day whose
// regular session has closed at now
func LastSessionDate(now time.Time) time.Time {
	st := StatusAt(now, DefaultSchedule())
	loc := ETLocation()
	n := st.Now
	d := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	if !IsTradingDay(d) || n.Before(st.CloseTime) {
		d = d.AddDate(0, 0, -1)
	}
	for !IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// ScanRange returns the scan window ending with asOf's session and the
// pre-context window immediately before it. Both are calendar-day ranges in ET.
func ScanRange(asOf time.Time, scanDays, preDays int) (scan, pre Range) {
	return ScanRangeIn(asOf, scanDays, preDays, ETLocation())
}

// ScanRangeIn is ScanRange with day boundaries cut at midnight in loc, so the
// ranges line up with daily buckets built in the same location. The session
// date itself is always the ET calendar date.
func ScanRangeIn(asOf time.Time, scanDays, preDays int, loc *time.Location) (scan, pre Range) {
	if loc == nil {
		loc = ETLocation()
	}
	a := asOf.In(ETLocation())
	end := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)

	scan = Range{From: end.AddDate(0, 0, -scanDays), To: end}
	pre = Range{From: scan.From.AddDate(0, 0, -preDays), To: scan.From}
	return scan, pre
}

// FormatDuration 시간 포맷팅
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "0s"
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
