package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func et(y int, m time.Month, d, h, mi int) time.Time {
	return time.Date(y, m, d, h, mi, 0, 0, ETLocation())
}

func TestStatusAt(t *testing.T) {
	tests := []struct {
		name   string
		now    time.Time
		open   bool
		reason string
	}{
		{"regular session", et(2025, 3, 12, 11, 0), true, "open"},
		{"before open", et(2025, 3, 12, 8, 0), false, "pre-market"},
		{"after close", et(2025, 3, 12, 16, 0), false, "after-hours"},
		{"saturday", et(2025, 3, 15, 12, 0), false, "weekend"},
		{"thanksgiving", et(2025, 11, 27, 12, 0), false, "holiday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := StatusAt(tt.now, DefaultSchedule())
			if st.IsOpen != tt.open {
				t.Errorf("Expected IsOpen %v, got %v", tt.open, st.IsOpen)
			}
			if st.Reason != tt.reason {
				t.Errorf("Expected reason %s, got %s", tt.reason, st.Reason)
			}
		})
	}
}

func TestStatusAt_TimeToOpen(t *testing.T) {
	// Friday after close opens Monday 09:30
	st := StatusAt(et(2025, 3, 14, 17, 0), DefaultSchedule())
	assert.Equal(t, 64*time.Hour+30*time.Minute, st.TimeToOpen)

	st = StatusAt(et(2025, 3, 12, 9, 0), DefaultSchedule())
	assert.Equal(t, 30*time.Minute, st.TimeToOpen)
}

func TestLastSessionDate(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"during session", et(2025, 3, 12, 11, 0), et(2025, 3, 11, 0, 0)},
		{"after close", et(2025, 3, 12, 16, 30), et(2025, 3, 12, 0, 0)},
		{"sunday", et(2025, 3, 16, 10, 0), et(2025, 3, 14, 0, 0)},
		{"monday morning", et(2025, 3, 17, 8, 0), et(2025, 3, 14, 0, 0)},
		{"after holiday", et(2025, 1, 21, 9, 0), et(2025, 1, 17, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(LastSessionDate(tt.now)), "got %s", LastSessionDate(tt.now))
		})
	}
}

func TestScanRange(t *testing.T) {
	scan, pre := ScanRange(et(2025, 3, 14, 0, 0), 90, 30)

	assert.True(t, scan.To.Equal(et(2025, 3, 15, 0, 0)))
	assert.True(t, scan.From.Equal(scan.To.AddDate(0, 0, -90)))
	assert.True(t, pre.To.Equal(scan.From), "pre-context must end where the scan begins")
	assert.True(t, pre.From.Equal(scan.From.AddDate(0, 0, -30)))
}

func TestScanRangeIn(t *testing.T) {
	asOf := et(2025, 3, 14, 0, 0)

	scan, pre := ScanRangeIn(asOf, 90, 30, time.UTC)
	assert.True(t, scan.To.Equal(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)), "got %s", scan.To)
	assert.True(t, pre.To.Equal(scan.From))

	etScan, _ := ScanRangeIn(asOf, 90, 30, nil)
	want, _ := ScanRange(asOf, 90, 30)
	assert.True(t, etScan.To.Equal(want.To))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", FormatDuration(-time.Second))
	assert.Equal(t, "45m", FormatDuration(45*time.Minute))
	assert.Equal(t, "2h 5m", FormatDuration(125*time.Minute))
}
