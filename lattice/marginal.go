package lattice

// forwardBackward computes the α/β arrays over the whole DAG at θ=1
// (used by the EM E-step, §4.6), and returns log Z, the total path score
// mass.
func (l *Lattice) forwardBackward() (logZ float64) {
	L := l.Len()

	l.node(l.bos).alpha = 0
	for pos := 0; pos <= L; pos++ {
		for _, vidx := range l.beginNodes[pos] {
			v := l.node(vidx)
			acc, init := 0.0, true
			for _, uidx := range l.endNodes[pos] {
				acc = logSumExpAccum(acc, l.node(uidx).alpha, init)
				init = false
			}
			v.alpha = float64(v.Score) + acc
		}
	}

	l.node(l.eos).beta = 0
	for pos := L; pos >= 0; pos-- {
		succ := l.beginNodes[pos]
		for _, uidx := range l.endNodes[pos] {
			if uidx == l.eos {
				continue
			}
			u := l.node(uidx)
			acc, init := 0.0, true
			for _, widx := range succ {
				w := l.node(widx)
				acc = logSumExpAccum(acc, float64(w.Score)+w.beta, init)
				init = false
			}
			u.beta = acc
		}
	}
	if len(l.beginNodes[0]) > 0 {
		acc, init := 0.0, true
		for _, widx := range l.beginNodes[0] {
			w := l.node(widx)
			acc = logSumExpAccum(acc, float64(w.Score)+w.beta, init)
			init = false
		}
		l.node(l.bos).beta = acc
	}

	return l.node(l.eos).alpha
}

// PopulateMarginal runs forward-backward and accumulates
// expected[piece_id] += freq · exp(α[u]+β[u]-logZ) for every non-sentinel
// node, per §4.4 (α[u] already includes score(u) via the forward
// recursion). Returns freq · log Z, the sentence's weighted
// log-likelihood contribution.
func (l *Lattice) PopulateMarginal(freq float64, expected []float64) float64 {
	logZ := l.forwardBackward()
	for idx := range l.nodes {
		if idx == l.bos || idx == l.eos {
			continue
		}
		n := l.node(idx)
		if int(n.PieceID) < 0 || int(n.PieceID) >= len(expected) {
			continue
		}
		p := n.alpha + n.beta - logZ
		expected[n.PieceID] += freq * expClamped(p)
	}
	return freq * logZ
}
