package bpe

import (
	"sort"

	"github.com/example/subword/model"
	"github.com/example/subword/status"
	"github.com/example/subword/train"
	"github.com/example/subword/unicodeutil"
)

// Trainer runs the single-threaded incremental bigram-merge algorithm of
// §4.7. Its state is a globally mutable symbol graph updated at every
// merge, so (per §5) it is never parallelized internally.
type Trainer struct {
	spec train.Spec

	arena []*symbol
	cache map[uint64]symbolID

	seqs  [][]symbolID // symbols_[sid][i]
	freqs []float64    // per-sentence weight

	active []symbolID

	required map[int32]bool

	vocab []model.Piece
}

// New builds a Trainer over normalized training sentences and initializes
// each sentence's symbol sequence to one unary symbol per codepoint.
func New(spec train.Spec, sentences []train.Sentence) *Trainer {
	t := &Trainer{
		spec:     spec,
		cache:    map[uint64]symbolID{},
		required: map[int32]bool{},
	}
	for _, s := range sentences {
		runes := toRunes(s.Bytes)
		seq := make([]symbolID, len(runes))
		for i, r := range runes {
			t.required[r] = true
			seq[i] = t.internUnary(r)
		}
		t.seqs = append(t.seqs, seq)
		t.freqs = append(t.freqs, s.Freq)
	}
	t.indexInitialBigrams()
	return t
}

func toRunes(b []byte) []int32 {
	var out []int32
	for i := 0; i < len(b); {
		r, size := unicodeutil.DecodeRune(b[i:])
		out = append(out, int32(r))
		i += size
	}
	return out
}

func (t *Trainer) internUnary(r int32) symbolID {
	fp := fingerprint([]int32{r})
	if id, ok := t.cache[fp]; ok {
		return id
	}
	id := symbolID(len(t.arena))
	t.arena = append(t.arena, &symbol{chars: []int32{r}, left: noSymbol, right: noSymbol})
	t.cache[fp] = id
	return id
}

func (t *Trainer) internBigram(left, right symbolID) symbolID {
	chars := append(append([]int32{}, t.arena[left].chars...), t.arena[right].chars...)
	fp := fingerprint(chars)
	if id, ok := t.cache[fp]; ok {
		return id
	}
	id := symbolID(len(t.arena))
	t.arena = append(t.arena, &symbol{chars: chars, left: left, right: right})
	t.cache[fp] = id
	return id
}

// indexInitialBigrams scans every sentence once, registering every
// adjacent unary pair's position and frequency, per §3's Positions sets.
func (t *Trainer) indexInitialBigrams() {
	for sid, seq := range t.seqs {
		for i := 0; i+1 < len(seq); i++ {
			t.addOccurrence(sid, i, i+1, t.freqs[sid])
		}
	}
}

// addOccurrence registers that the bigram (seq[sid][l], seq[sid][r])
// occurs, interning it if new, and returns its symbolID.
func (t *Trainer) addOccurrence(sid, l, r int, weight float64) symbolID {
	left, right := t.seqs[sid][l], t.seqs[sid][r]
	id := t.internBigram(left, right)
	sym := t.arena[id]
	sym.positions = append(sym.positions, encodePosition(sid, l, r))
	sym.freq += int(weight + 0.5)
	return id
}

func getPrevIndex(seq []symbolID, i int) int {
	for j := i - 1; j >= 0; j-- {
		if seq[j] != tombstone {
			return j
		}
	}
	return -1
}

func getNextIndex(seq []symbolID, i int) int {
	for j := i + 1; j < len(seq); j++ {
		if seq[j] != tombstone {
			return j
		}
	}
	return -1
}

// Train runs the merge loop until the target vocabulary size is reached or
// no active candidates remain, per §4.7. The returned list places the
// required base characters first (guaranteeing coverage, §8) followed by
// merges in strictly decreasing score order (§8's BPE merge monotonicity).
func (t *Trainer) Train() ([]model.Piece, error) {
	base := t.baseCharPieces()
	mergeBudget := t.spec.VocabSize - len(train.MetaPieces(t.spec)) - len(base)
	if mergeBudget < 0 {
		mergeBudget = 0
	}

	rank := float32(mergeBudget)
	for len(t.vocab) < mergeBudget {
		best, freq, ok := t.nextBest()
		if !ok {
			break
		}
		if freq <= 0 {
			continue
		}
		t.commit(best)
		t.vocab = append(t.vocab, model.Piece{
			Bytes: []byte(runesKey(t.arena[best].chars)),
			Score: rank,
			Type:  model.Normal,
		})
		rank--
	}

	out := make([]model.Piece, 0, len(base)+len(t.vocab))
	out = append(out, base...)
	out = append(out, t.vocab...)
	if len(out) == 0 {
		return nil, status.New(status.FailedPrecondition, "BPE training produced an empty vocabulary")
	}
	return out, nil
}

// baseCharPieces emits every required codepoint, in codepoint order, with
// scores from len(required)+1 down to 2. Coverage of required characters
// (§8) comes from their inclusion, independent of how many merges the
// target budget allows; their scores are not placed above the merges'.
func (t *Trainer) baseCharPieces() []model.Piece {
	runes := make([]int32, 0, len(t.required))
	for r := range t.required {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })

	out := make([]model.Piece, len(runes))
	base := float32(len(t.required)) + 1
	for i, r := range runes {
		out[i] = model.Piece{Bytes: []byte(string(rune(r))), Score: base - float32(i), Type: model.Normal}
	}
	return out
}

// nextBest implements §4.7 steps 1-2: refill active_symbols_ from the
// cache when empty, then repeatedly pop the highest-freq candidate,
// lazily revalidating its freq against live positions until the true
// maximum is found.
func (t *Trainer) nextBest() (symbolID, int, bool) {
	if len(t.active) == 0 {
		t.refillActive()
	}
	for len(t.active) > 0 {
		bestIdx := t.argmaxActive()
		cand := t.active[bestIdx]
		t.active = append(t.active[:bestIdx], t.active[bestIdx+1:]...)

		live := t.liveFreq(cand)
		if live == 0 {
			continue
		}
		if len(t.active) > 0 {
			nextBestIdx := t.argmaxActive()
			if t.arena[t.active[nextBestIdx]].freq > live {
				// stale: reinsert with corrected freq and keep scanning
				t.arena[cand].freq = live
				t.active = append(t.active, cand)
				continue
			}
		}
		t.arena[cand].freq = live
		return cand, live, true
	}
	return 0, 0, false
}

func (t *Trainer) liveFreq(id symbolID) int {
	sym := t.arena[id]
	n := 0
	for _, pos := range sym.positions {
		sid, l, r := pos.decode()
		if l < len(t.seqs[sid]) && r < len(t.seqs[sid]) &&
			t.seqs[sid][l] == sym.left && t.seqs[sid][r] == sym.right {
			n += int(t.freqs[sid] + 0.5)
		}
	}
	return n
}

func (t *Trainer) argmaxActive() int {
	best := 0
	bestFreq := t.arena[t.active[0]].freq
	bestPos := earliestPosition(t.arena[t.active[0]].positions)
	for i := 1; i < len(t.active); i++ {
		f := t.arena[t.active[i]].freq
		p := earliestPosition(t.arena[t.active[i]].positions)
		if f > bestFreq || (f == bestFreq && p < bestPos) {
			best, bestFreq, bestPos = i, f, p
		}
	}
	return best
}

func earliestPosition(positions []position) position {
	if len(positions) == 0 {
		return position(^uint64(0))
	}
	min := positions[0]
	for _, p := range positions[1:] {
		if p < min {
			min = p
		}
	}
	return min
}

// refillActive scans symbols_cache_ and copies the highest-frequency ~5%
// of bigram symbols into active_symbols_, per §4.7 step 1.
func (t *Trainer) refillActive() {
	var candidates []symbolID
	for _, id := range t.cache {
		if t.arena[id].left != noSymbol {
			candidates = append(candidates, id)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		ci, cj := t.arena[candidates[i]], t.arena[candidates[j]]
		if ci.freq != cj.freq {
			return ci.freq > cj.freq
		}
		pi, pj := earliestPosition(ci.positions), earliestPosition(cj.positions)
		if pi != pj {
			return pi < pj
		}
		return candidates[i] < candidates[j]
	})
	n := len(candidates) / 20
	if n < 1 && len(candidates) > 0 {
		n = 1
	}
	if n > len(candidates) {
		n = len(candidates)
	}
	t.active = append([]symbolID{}, candidates[:n]...)
}

// commit applies the chosen merge across every live occurrence, per §4.7
// step 3: forming new boundary bigrams, tombstoning the consumed slot, and
// decaying stale adjacent bigrams.
func (t *Trainer) commit(best symbolID) {
	sym := t.arena[best]
	for _, pos := range sym.positions {
		sid, l, r := pos.decode()
		seq := t.seqs[sid]
		if l >= len(seq) || r >= len(seq) || seq[l] != sym.left || seq[r] != sym.right {
			continue
		}

		if prev := getPrevIndex(seq, l); prev >= 0 {
			t.decayBigram(sid, prev, l)
		}
		if next := getNextIndex(seq, r); next >= 0 {
			t.decayBigram(sid, r, next)
		}

		seq[l] = best
		seq[r] = tombstone

		if prev := getPrevIndex(seq, l); prev >= 0 {
			t.registerActive(t.addOccurrence(sid, prev, l, t.freqs[sid]))
		}
		if next := getNextIndex(seq, l); next >= 0 {
			t.registerActive(t.addOccurrence(sid, l, next, t.freqs[sid]))
		}
	}
}

// decayBigram reduces the stale (seq[sid][a], seq[sid][b]) pair's live
// count; the pair's freq field is left to be recomputed lazily by
// liveFreq the next time it is popped from active (§4.7 step 3d).
func (t *Trainer) decayBigram(sid, a, b int) {
	left, right := t.seqs[sid][a], t.seqs[sid][b]
	fp := fingerprint(append(append([]int32{}, t.arena[left].chars...), t.arena[right].chars...))
	if id, ok := t.cache[fp]; ok {
		if t.arena[id].freq > 0 {
			t.arena[id].freq--
		}
	}
}

func (t *Trainer) registerActive(id symbolID) {
	for _, a := range t.active {
		if a == id {
			return
		}
	}
	t.active = append(t.active, id)
}

func runesKey(rs []int32) string {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = rune(r)
	}
	return string(out)
}
