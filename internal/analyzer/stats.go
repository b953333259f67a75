package analyzer

import "math"

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func clamp01(x float64) float64 {
	return clamp(x, 0, 1)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the population standard deviation
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// olsSlope fits ys against 0..n-1 and returns the slope.
// Returns 0 for fewer than two points.
func olsSlope(ys []float64) float64 {
	n := len(ys)
	if n < 2 {
		return 0
	}
	xm := float64(n-1) / 2
	ym := mean(ys)
	var num, den float64
	for i, y := range ys {
		dx := float64(i) - xm
		num += dx * (y - ym)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// pearson returns the correlation of xs and ys, or 0 when either side has no variance
func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n != len(ys) || n < 2 {
		return 0
	}
	xm, ym := mean(xs), mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-xm, ys[i]-ym
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}

// winsorize clamps values outside mean ± k·stddev to the bound.
// It returns the clamped copy, the bounds, and the indices that were clamped.
// A zero stddev leaves the series unchanged.
func winsorize(xs []float64, k float64) (out []float64, lo, hi float64, capped []int) {
	m := mean(xs)
	sd := stddev(xs)
	lo, hi = m-k*sd, m+k*sd
	out = clampTo(xs, lo, hi)
	for i := range xs {
		if out[i] != xs[i] {
			capped = append(capped, i)
		}
	}
	return out, lo, hi, capped
}

func clampTo(xs []float64, lo, hi float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = clamp(x, lo, hi)
	}
	return out
}

func pctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}
