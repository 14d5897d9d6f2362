// Package unigram (train/unigram) implements the Unigram trainer (C8):
// suffix-array seeding, EM with a Bayesian M-step, loss-based pruning, and
// finalization, per §4.6.
package unigram

import (
	"math"
	"sort"
	"sync"

	"github.com/example/subword/dat"
	"github.com/example/subword/model"
	"github.com/example/subword/status"
	"github.com/example/subword/train"
	useg "github.com/example/subword/unigram"
	"github.com/example/subword/unicodeutil"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("train-unigram")
}

// Trainer holds the mutable working vocabulary and corpus for one training
// run. It is not safe for concurrent use by multiple callers; internally it
// fans the E-step and pruning's Viterbi pass out over a worker pool (§5).
type Trainer struct {
	spec     train.Spec
	corpus   [][]int32 // one entry per sentence, after normalization
	freqs    []float64
	required map[int32]bool

	pieces []SeedPiece
}

// New builds a Trainer from normalized training sentences.
func New(spec train.Spec, sentences []train.Sentence) *Trainer {
	t := &Trainer{spec: spec, required: map[int32]bool{}}
	for _, s := range sentences {
		runes := toRunes(s.Bytes)
		t.corpus = append(t.corpus, runes)
		t.freqs = append(t.freqs, s.Freq)
		for _, r := range runes {
			t.required[r] = true
		}
	}
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

// Train runs the full pipeline of §4.6 and returns the final piece list
// (excluding reserved meta pieces, which the driver, C10, prepends).
func (t *Trainer) Train() ([]model.Piece, error) {
	if t.spec.VocabSize <= 0 {
		return nil, status.New(status.InvalidArgument, "vocab_size must be positive")
	}

	t.pieces = MakeSeedPieces(t.corpus, SeedOptions{
		MaxPieceLength:          t.spec.MaxPieceLength,
		SeedSize:                t.spec.SeedPieceSize,
		TreatWhitespaceAsSuffix: t.spec.TreatWhitespaceAsSuffix,
		SplitByUnicodeScript:    t.spec.SplitByUnicodeScript,
		SplitByNumber:           t.spec.SplitByNumber,
		SplitByWhitespace:       t.spec.SplitByWhitespace,
	})
	tracer().Infof("seeded %d pieces", len(t.pieces))

	target := ceilRatio(t.spec.VocabSize, 1.1)
	subIters := t.spec.NumSubIterations
	if subIters <= 0 {
		subIters = 2
	}

	for len(t.pieces) > target {
		for i := 0; i < subIters; i++ {
			if err := t.emStep(); err != nil {
				return nil, err
			}
		}
		if err := t.prune(); err != nil {
			return nil, err
		}
		tracer().Infof("after prune round: %d pieces", len(t.pieces))
	}

	return t.finalize(), nil
}

// registryAndTrie rebuilds the queryable model (index 0 = unk sentinel)
// from the current working piece set.
func (t *Trainer) registryAndTrie() (*model.Registry, *dat.DAT, error) {
	mpieces := make([]model.Piece, 0, len(t.pieces)+1)
	mpieces = append(mpieces, model.Piece{Bytes: []byte(t.spec.UnkPiece), Type: model.Unknown, Score: 0})
	for _, p := range t.pieces {
		mpieces = append(mpieces, model.Piece{Bytes: []byte(runesKey(p.Runes)), Type: model.Normal, Score: p.Score})
	}
	reg, err := model.New(mpieces)
	if err != nil {
		return nil, nil, err
	}

	keys := make([][]byte, len(t.pieces))
	values := make([]int32, len(t.pieces))
	order := make([]int, len(t.pieces))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return string(runesKey(t.pieces[order[a]].Runes)) < string(runesKey(t.pieces[order[b]].Runes))
	})
	for rank, idx := range order {
		keys[rank] = []byte(runesKey(t.pieces[idx].Runes))
		values[rank] = int32(idx + 1) // +1 to skip the unk registry slot
	}
	trie, err := dat.Build(keys, values)
	if err != nil {
		return nil, nil, err
	}
	return reg, trie, nil
}

const numWorkersDefault = 4

func (t *Trainer) numWorkers() int {
	if t.spec.NumThreads > 0 {
		return t.spec.NumThreads
	}
	return numWorkersDefault
}

// emStep runs one E+M sub-iteration, fanning the E-step out across a
// worker pool with a deterministic per-worker-index reduction (§5, §4.6).
func (t *Trainer) emStep() error {
	reg, trie, err := t.registryAndTrie()
	if err != nil {
		return err
	}
	seg := useg.New(trie, reg)

	nWorkers := t.numWorkers()
	n := len(t.corpus)
	shardExpected := make([][]float64, nWorkers)
	shardLoss := make([]float64, nWorkers)
	shardFreqSum := make([]float64, nWorkers)

	var wg sync.WaitGroup
	shardSize := (n + nWorkers - 1) / nWorkers
	if shardSize == 0 {
		shardSize = 1
	}
	for w := 0; w < nWorkers; w++ {
		lo := w * shardSize
		hi := lo + shardSize
		if lo >= n {
			shardExpected[w] = make([]float64, reg.Len())
			continue
		}
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			expected := make([]float64, reg.Len())
			var lossSum, freqSum float64
			for si := lo; si < hi; si++ {
				l := seg.Populate(runesToBytes(t.corpus[si]))
				lossSum += l.PopulateMarginal(t.freqs[si], expected)
				freqSum += t.freqs[si]
			}
			shardExpected[w] = expected
			shardLoss[w] = lossSum
			shardFreqSum[w] = freqSum
		}(w, lo, hi)
	}
	wg.Wait()

	// Deterministic reduction, stable by worker index (§9).
	total := make([]float64, reg.Len())
	var objective, freqSum float64
	for w := 0; w < nWorkers; w++ {
		for i, v := range shardExpected[w] {
			total[i] += v
		}
		objective += shardLoss[w]
		freqSum += shardFreqSum[w]
	}
	if freqSum > 0 {
		objective = -objective / freqSum
	}
	if math.IsNaN(objective) {
		return status.New(status.Internal, "NaN objective in EM E-step")
	}
	tracer().Debugf("E-step objective=%.6f", objective)

	// M-step (Bayesian/DP EM): drop pieces with expected < 0.5, rescale by
	// digamma-over-sum.
	sumExpected := 0.0
	for i := 1; i < len(total); i++ {
		sumExpected += total[i]
	}
	digammaSum := digamma(sumExpected)

	kept := t.pieces[:0:0]
	for i, p := range t.pieces {
		e := total[i+1]
		if e < 0.5 {
			continue
		}
		p.Score = float32(digamma(e) - digammaSum)
		kept = append(kept, p)
	}
	t.pieces = kept
	return nil
}

func runesToBytes(rs []int32) []byte {
	return []byte(runesKey(rs))
}

func ceilRatio(v int, ratio float64) int {
	return int(math.Ceil(float64(v) * ratio))
}
