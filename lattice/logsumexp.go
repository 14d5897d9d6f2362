package lattice

import "math"

// logSumExpAccum folds y into the running log-sum-exp x, per the numeric
// note in §4.4: the first operand (init==true) contributes y alone, and
// |x-y| > 50 is treated as "the smaller is negligible" to avoid exp() of
// very negative numbers.
func logSumExpAccum(x, y float64, init bool) float64 {
	if init {
		return y
	}
	vmin, vmax := x, y
	if vmin > vmax {
		vmin, vmax = vmax, vmin
	}
	if vmax-vmin > 50 {
		return vmax
	}
	return vmax + math.Log1p(math.Exp(vmin-vmax))
}

// expClamped is math.Exp guarded against overflow from a stray positive
// log-probability (which should not occur but would otherwise propagate
// +Inf into a training accumulator).
func expClamped(logP float64) float64 {
	if logP > 0 {
		logP = 0
	}
	return math.Exp(logP)
}
