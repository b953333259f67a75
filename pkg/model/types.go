package model

import (
	"math"
	"time"
)

// Candle represents a single fine-grained bar (OHLCV data)
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Valid reports whether every price field is a usable number.
// Providers mark missing fields as NaN; those bars must be dropped, not zeroed.
func (c Candle) Valid() bool {
	for _, v := range [...]float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}
	return c.Volume >= 0 && !c.Time.IsZero()
}
