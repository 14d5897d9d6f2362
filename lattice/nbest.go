package lattice

import "container/heap"

// hyp is one partial A* hypothesis: node is the arena index of the current
// leftmost node fixed in the path so far; next chains toward EOS so a
// complete hypothesis can be walked left-to-right (§4.4).
type hyp struct {
	node int
	next *hyp
	gx   float32
	fx   float32
}

type agenda []*hyp

func (a agenda) Len() int            { return len(a) }
func (a agenda) Less(i, j int) bool  { return a[i].fx > a[j].fx } // max-heap
func (a agenda) Swap(i, j int)       { a[i], a[j] = a[j], a[i] }
func (a *agenda) Push(x interface{}) { *a = append(*a, x.(*hyp)) }
func (a *agenda) Pop() interface{} {
	old := *a
	n := len(old)
	item := old[n-1]
	*a = old[:n-1]
	return item
}

const agendaSafetyValve = 100000

// NBest performs A* search backward from EOS, returning up to k distinct
// best paths ordered best-first (§4.4). It runs Viterbi itself first to
// populate the BacktraceScore fields used as the A* heuristic.
func (l *Lattice) NBest(k int) ([][]*Node, error) {
	if k <= 0 {
		return nil, nil
	}
	if _, err := l.Viterbi(); err != nil {
		return nil, err
	}

	ag := &agenda{{node: l.eos, gx: 0, fx: l.node(l.eos).BacktraceScore}}
	heap.Init(ag)

	var results [][]*Node
	for ag.Len() > 0 && len(results) < k {
		if ag.Len() > agendaSafetyValve {
			trimAgenda(ag, minInt(512, 10*k))
		}
		cur := heap.Pop(ag).(*hyp)

		if cur.node == l.bos {
			results = append(results, l.reconstructPath(cur))
			continue
		}

		curNode := l.node(cur.node)
		for _, lidx := range l.endNodes[curNode.Pos] {
			gx2 := cur.gx + curNode.Score
			h := &hyp{
				node: lidx,
				next: cur,
				gx:   gx2,
				fx:   gx2 + l.node(lidx).BacktraceScore,
			}
			heap.Push(ag, h)
		}
	}
	return results, nil
}

// reconstructPath walks a BOS-rooted hypothesis chain left-to-right,
// collecting real (non-sentinel) nodes.
func (l *Lattice) reconstructPath(bosHyp *hyp) []*Node {
	var path []*Node
	for h := bosHyp.next; h != nil && h.node != l.eos; h = h.next {
		path = append(path, l.node(h.node))
	}
	return path
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// trimAgenda keeps only the top n highest-fx entries, per the 100,000-entry
// safety valve (§4.4).
func trimAgenda(ag *agenda, n int) {
	if len(*ag) <= n {
		return
	}
	all := make(agenda, len(*ag))
	copy(all, *ag)
	// selection via heap init plus n pops is fine at this bounded, rare-path size.
	heap.Init(&all)
	kept := make(agenda, 0, n)
	for i := 0; i < n && all.Len() > 0; i++ {
		kept = append(kept, heap.Pop(&all).(*hyp))
	}
	*ag = kept
	heap.Init(ag)
}
