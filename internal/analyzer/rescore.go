package analyzer

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidWeights is returned when a weight override cannot be applied
var ErrInvalidWeights = errors.New("invalid component weights")

// Weights are the relative weights of the eight window components
type Weights struct {
	S1 float64 `json:"s1"`
	S2 float64 `json:"s2"`
	S3 float64 `json:"s3"`
	S4 float64 `json:"s4"`
	S5 float64 `json:"s5"`
	S6 float64 `json:"s6"`
	S7 float64 `json:"s7"`
	S8 float64 `json:"s8"`
}

// DefaultWeights returns the reference weights used at discovery time
func DefaultWeights() Weights {
	return Weights{
		S1: 0.15,
		S2: 0.10,
		S3: 0.05,
		S4: 0.05,
		S5: 0.03,
		S6: 0.25,
		S7: 0.02,
		S8: 0.35,
	}
}

func (w Weights) values() [8]float64 {
	return [8]float64{w.S1, w.S2, w.S3, w.S4, w.S5, w.S6, w.S7, w.S8}
}

// Validate checks that weights are non-negative and not all zero
func (w Weights) Validate() error {
	var sum float64
	for i, v := range w.values() {
		if v < 0 {
			return fmt.Errorf("%w: s%d is negative", ErrInvalidWeights, i+1)
		}
		sum += v
	}
	if sum == 0 {
		return fmt.Errorf("%w: all weights are zero", ErrInvalidWeights)
	}
	return nil
}

func (c Components) values() [8]float64 {
	return [8]float64{
		c.NetDelta, c.DeltaSlope, c.DeltaShift, c.AccumRatio,
		c.BuyVsSellDays, c.Absorption, c.VolumeDecline, c.Divergence,
	}
}

// composite is the weighted mean of the components
func composite(c Components, w Weights) float64 {
	cv, wv := c.values(), w.values()
	var sum, wsum float64
	for i := range cv {
		sum += float64(cv[i] * wv[i]) // conversion forbids fused multiply-add
		wsum += wv[i]
	}
	if wsum == 0 {
		return 0
	}
	return sum / wsum
}

// Rescore re-derives a zone's final score from its stored components, duration
// multiplier and concordance penalty. Gating is never revisited.
func Rescore(z AccumulationZone, w Weights) float64 {
	return composite(z.Components, w) * z.DurationMultiplier * z.ConcordancePenalty
}

// RescoreZones returns copies of zones carrying the re-derived score, ordered by it descending
func RescoreZones(zones []AccumulationZone, w Weights) ([]AccumulationZone, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	out := make([]AccumulationZone, len(zones))
	for i, z := range zones {
		z.RawScore = composite(z.Components, w)
		z.Score = Rescore(z, w)
		z.Detected = z.Score >= DetectThreshold
		out[i] = z
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}
