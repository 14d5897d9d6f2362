package lattice

import "math"

// RandSource is the minimal randomness surface Sample needs. Both
// *math/rand.Rand and this module's deterministic mt19937 source satisfy
// it, so callers can choose bit-reproducible sampling for training and
// ordinary sampling for inference.
type RandSource interface {
	Float64() float64
}

// forwardAlpha computes the log-sum-exp forward pass α[v] over the DAG,
// per §4.4: α[v] = θ·score(v) + logsumexp_{u→v} α[u].
func (l *Lattice) forwardAlpha(theta float64) {
	l.node(l.bos).alpha = 0
	L := l.Len()
	for pos := 0; pos <= L; pos++ {
		for _, vidx := range l.beginNodes[pos] {
			v := l.node(vidx)
			acc, init := 0.0, true
			for _, uidx := range l.endNodes[pos] {
				acc = logSumExpAccum(acc, l.node(uidx).alpha, init)
				init = false
			}
			v.alpha = theta*float64(v.Score) + acc
		}
	}
}

// Sample performs ancestral sampling of a full segmentation path using
// inverse temperature θ, per §4.4.
func (l *Lattice) Sample(theta float64, rnd RandSource) []*Node {
	l.forwardAlpha(theta)

	var path []*Node
	cur := l.eos
	for cur != l.bos {
		preds := l.endNodes[l.node(cur).Pos]
		if len(preds) == 1 {
			cur = preds[0]
			if cur != l.bos {
				path = append(path, l.node(cur))
			}
			continue
		}
		cur = l.sampleOne(preds, rnd)
		if cur != l.bos {
			path = append(path, l.node(cur))
		}
	}
	// path was built EOS->BOS; reverse to left-to-right.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// sampleOne draws one predecessor index with probability proportional to
// exp(alpha[u] - max_u alpha[u]) (§4.4's normalized conditional).
func (l *Lattice) sampleOne(preds []int, rnd RandSource) int {
	max := l.node(preds[0]).alpha
	for _, uidx := range preds[1:] {
		if a := l.node(uidx).alpha; a > max {
			max = a
		}
	}
	weights := make([]float64, len(preds))
	sum := 0.0
	for i, uidx := range preds {
		w := math.Exp(l.node(uidx).alpha - max)
		weights[i] = w
		sum += w
	}
	target := rnd.Float64() * sum
	acc := 0.0
	for i, w := range weights {
		acc += w
		if target <= acc {
			return preds[i]
		}
	}
	return preds[len(preds)-1]
}
