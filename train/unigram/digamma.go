package unigram

import "math"

// digamma approximates ψ(x) via the standard asymptotic (Bernoulli-series)
// expansion, recursing ψ(x) = ψ(x+1) - 1/x to bring small arguments into
// the expansion's accurate range, the same technique numerical libraries
// use absent a wired math package in this module's dependency pack (§4.6).
func digamma(x float64) float64 {
	result := 0.0
	for x < 6 {
		result -= 1 / x
		x++
	}
	f := 1 / (x * x)
	result += math.Log(x) - 0.5/x -
		f*(1.0/12-f*(1.0/120-f*(1.0/252-f*(1.0/240-f*(1.0/132)))))
	return result
}
