// Package lattice implements the segmentation DAG (C6): node arena,
// Viterbi, N-best A* search, ancestral sampling, and forward-backward
// marginal accumulation, per §4.4.
package lattice

import (
	"math"

	"github.com/example/subword/model"
	"github.com/example/subword/status"
	"github.com/example/subword/unicodeutil"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("lattice")
}

// noPrev marks a node with no Viterbi predecessor yet (or, for BOS, ever).
const noPrev = -1

// Node is one candidate piece spanning a unicode range, per §3.
type Node struct {
	ID     int // node_id: dense, creation order (I3), also its arena index
	Pos    int // unicode start position
	Length int // unicode length
	PieceID model.ID
	Score  float32

	// Transient Viterbi/forward-backward fields.
	BacktraceScore float32
	prev           int // arena index of the Viterbi predecessor, or noPrev

	alpha, beta float64
}

// Lattice is constructed empty, parameterized per sentence via SetSentence,
// populated by a segmenter, queried, then reused (§3 Lifecycles). It is not
// safe for concurrent use; in the training E-step each worker goroutine
// builds its own fresh Lattice for every sentence (§5).
//
// All cross-references between nodes (adjacency lists, Viterbi
// backpointers, N-best hypotheses) are arena indices into nodes, not raw
// *Node pointers: nodes is the single owned arena, and every other
// structure names a node by its position within it.
type Lattice struct {
	sentence []byte
	surface  []int // unicode boundary -> byte offset, len L+1

	beginNodes [][]int
	endNodes   [][]int
	nodes      []Node // arena, dense by ID (I3)

	bos, eos int // arena indices of the sentinels
}

// Len returns the sentence's unicode length L.
func (l *Lattice) Len() int {
	if l.surface == nil {
		return 0
	}
	return len(l.surface) - 1
}

// Surface returns the sentence bytes starting at unicode position p;
// Surface(L) is empty.
func (l *Lattice) Surface(p int) []byte {
	return l.sentence[l.surface[p]:]
}

// ByteOffset returns the byte offset corresponding to unicode position p.
func (l *Lattice) ByteOffset(p int) int { return l.surface[p] }

// SetSentence resets the lattice for a new sentence: computes surface[],
// allocates begin/end adjacency lists, and inserts the BOS/EOS sentinels
// (§4.4).
func (l *Lattice) SetSentence(sentence []byte) {
	l.sentence = sentence
	l.surface = unicodeutil.CodepointBoundaries(sentence)
	L := len(l.surface) - 1

	l.beginNodes = make([][]int, L+1)
	l.endNodes = make([][]int, L+1)
	l.nodes = l.nodes[:0]

	l.bos = l.newNode(0, 0)
	l.nodes[l.bos].PieceID = model.InvalidID
	l.endNodes[0] = append(l.endNodes[0], l.bos)

	l.eos = l.newNode(L, 0)
	l.nodes[l.eos].PieceID = model.InvalidID
	l.beginNodes[L] = append(l.beginNodes[L], l.eos)
}

// newNode appends a fresh node to the arena and returns its index.
func (l *Lattice) newNode(pos, length int) int {
	idx := len(l.nodes)
	l.nodes = append(l.nodes, Node{ID: idx, Pos: pos, Length: length, PieceID: model.InvalidID, prev: noPrev})
	return idx
}

// node returns a pointer into the arena for idx. The pointer must not be
// retained across a subsequent Insert/newNode call, which may grow and
// reallocate the arena.
func (l *Lattice) node(idx int) *Node { return &l.nodes[idx] }

// Insert creates a node spanning unicode [pos, pos+length) and registers it
// in the begin/end adjacency lists. Caller must set PieceID and Score
// immediately, before any further call that might grow the arena (§4.4).
func (l *Lattice) Insert(pos, length int) *Node {
	idx := l.newNode(pos, length)
	l.beginNodes[pos] = append(l.beginNodes[pos], idx)
	l.endNodes[pos+length] = append(l.endNodes[pos+length], idx)
	return l.node(idx)
}

// BOS returns the sentence-start sentinel node.
func (l *Lattice) BOS() *Node { return l.node(l.bos) }

// EOS returns the sentence-end sentinel node.
func (l *Lattice) EOS() *Node { return l.node(l.eos) }

// BeginNodesAt returns every node starting at unicode position p.
func (l *Lattice) BeginNodesAt(p int) []*Node { return l.nodesAt(l.beginNodes[p]) }

// EndNodesAt returns every node ending at unicode position p.
func (l *Lattice) EndNodesAt(p int) []*Node { return l.nodesAt(l.endNodes[p]) }

func (l *Lattice) nodesAt(indices []int) []*Node {
	out := make([]*Node, len(indices))
	for i, idx := range indices {
		out[i] = l.node(idx)
	}
	return out
}

// Viterbi computes the best left-to-right path over the DAG using additive
// node score, breaking ties toward the first-encountered predecessor
// (§4.4). It fails only if invariant I2 is violated (a position with no
// path through it).
func (l *Lattice) Viterbi() ([]*Node, error) {
	L := l.Len()
	for pos := 0; pos <= L; pos++ {
		if len(l.endNodes[pos]) == 0 || len(l.beginNodes[pos]) == 0 {
			return nil, status.New(status.FailedPrecondition,
				"no path passes through unicode position %d: invariant I2 violated", pos)
		}
		for _, ridx := range l.beginNodes[pos] {
			rnode := l.node(ridx)
			rnode.prev = noPrev
			best := float32(math.Inf(-1))
			for _, lidx := range l.endNodes[pos] {
				lnode := l.node(lidx)
				score := lnode.BacktraceScore + rnode.Score
				if rnode.prev == noPrev || score > best {
					best = score
					rnode.prev = lidx
				}
			}
			if rnode.prev == noPrev {
				if ridx == l.bos {
					rnode.BacktraceScore = 0
					continue
				}
				return nil, status.New(status.FailedPrecondition,
					"no path reaches unicode position %d: invariant I2 violated", pos)
			}
			rnode.BacktraceScore = best
		}
	}

	var path []*Node
	for idx := l.node(l.eos).prev; idx != noPrev && idx != l.bos; idx = l.node(idx).prev {
		path = append(path, l.node(idx))
	}
	// reverse into left-to-right order
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}
