package unigram

import (
	"sort"
	"sync"

	"github.com/example/subword/model"
	useg "github.com/example/subword/unigram"
)

// alternative is the pruning candidate's replacement segmentation: the
// piece ids (registry-relative) that the 2nd-best path splits it into.
type alternative struct {
	ids       []model.ID
	alwaysKeep bool
}

// prune implements §4.6's prune_pieces: compute each piece's alternative
// segmentation, its corpus Viterbi frequency, an estimated removal loss,
// then drop the lowest-loss pieces down to max(V, shrinkingFactor*current).
func (t *Trainer) prune() error {
	reg, trie, err := t.registryAndTrie()
	if err != nil {
		return err
	}
	seg := useg.New(trie, reg)

	alternatives := make([]alternative, len(t.pieces))
	for i, p := range t.pieces {
		bytes := []byte(runesKey(p.Runes))
		paths, err := seg.NBestEncode(bytes, 2)
		if err != nil {
			return err
		}
		switch {
		case len(paths) < 2:
			alternatives[i] = alternative{alwaysKeep: true}
		case len(paths[0]) > 1:
			// Even the 1st-best already splits this piece into others:
			// removable regardless of the 2nd-best.
			alternatives[i] = alternative{ids: paths[0]}
		default:
			alternatives[i] = alternative{ids: paths[1]}
		}
	}

	freq, presence := t.viterbiFrequencies(seg, reg)

	var totalFreq float64
	for i := range t.pieces {
		totalFreq += freq[i+1]
	}
	if totalFreq <= 0 {
		totalFreq = 1
	}

	var vsum float64
	for _, f := range t.freqs {
		vsum += f
	}
	if vsum <= 0 {
		vsum = 1
	}

	type scored struct {
		idx  int
		loss float64
	}
	var candidates []scored
	requiredSingle := t.singleCharPieceIndex()

	for i, alt := range t.pieces {
		_ = alt
		if alternatives[i].alwaysKeep || requiredSingle[i] {
			continue
		}
		fi := freq[i+1]
		if fi <= 0 {
			candidates = append(candidates, scored{idx: i, loss: 0})
			continue
		}
		logPi := logFn(fi) - logFn(totalFreq)
		logPAlt := t.altLogProb(alternatives[i].ids, freq, fi, totalFreq)
		// Fi weights the loss by the fraction of the corpus's sentence mass
		// that ever selects this piece (inverted[i] in the reference
		// implementation), not by the piece's own token-occurrence share.
		Fi := presence[i+1] / vsum
		candidates = append(candidates, scored{idx: i, loss: Fi * (logPi - logPAlt)})
	}
	sort.Slice(candidates, func(a, b int) bool { return candidates[a].loss < candidates[b].loss })

	keepCount := maxInt(t.spec.VocabSize, int(float64(len(t.pieces))*shrinkOrDefault(t.spec.ShrinkingFactor)))
	removable := len(t.pieces) - keepCount
	if removable > len(candidates) {
		removable = len(candidates)
	}
	if removable < 0 {
		removable = 0
	}

	drop := make(map[int]bool, removable)
	for i := 0; i < removable; i++ {
		drop[candidates[i].idx] = true
	}

	kept := t.pieces[:0:0]
	for i, p := range t.pieces {
		if drop[i] {
			continue
		}
		kept = append(kept, p)
	}
	t.pieces = kept
	return nil
}

// altLogProb estimates the log-probability of the alternative segmentation
// after the removed piece's occurrences are re-attributed to it, per §4.6
// step 3. Following the original trainer, the removed piece's full
// frequency is added to each alternative individually rather than split
// across them, so the denominator is adjusted by the same amount times
// one fewer than the alternative count to keep it a valid probability
// mass over the (now larger) corpus.
func (t *Trainer) altLogProb(altIDs []model.ID, freq []float64, removedFreq, totalFreq float64) float64 {
	if len(altIDs) == 0 {
		return logFn(1e-9) - logFn(totalFreq)
	}
	denom := totalFreq + removedFreq*float64(len(altIDs)-1)
	logProb := 0.0
	for _, id := range altIDs {
		f := freq[id] + removedFreq
		if f <= 0 {
			f = 1e-9
		}
		logProb += logFn(f) - logFn(denom)
	}
	return logProb
}

// singleCharPieceIndex marks pieces that are the sole representative of a
// unicode codepoint, which must never be pruned (the always_keep set is
// enlarged by required-character coverage, §4.6/§8).
func (t *Trainer) singleCharPieceIndex() map[int]bool {
	out := map[int]bool{}
	seen := map[int32]int{}
	for i, p := range t.pieces {
		if len(p.Runes) == 1 {
			seen[p.Runes[0]] = i
		}
	}
	for _, idx := range seen {
		out[idx] = true
	}
	return out
}

// viterbiFrequencies runs a multithreaded Viterbi pass over the corpus,
// counting how often each registry id is chosen in the best segmentation
// (§4.6 step 2). It also tracks, per id, the inverted[i] sentence-presence
// weight: the sum of sentence frequencies over every sentence whose best
// segmentation uses the id at least once (each sentence contributes at
// most once per id, regardless of how many times the id recurs within
// it), matching the reference implementation's inverted-index-weighted
// pruning loss.
func (t *Trainer) viterbiFrequencies(seg *useg.Segmenter, reg *model.Registry) (freq []float64, presence []float64) {
	nWorkers := t.numWorkers()
	n := len(t.corpus)
	shardFreq := make([][]float64, nWorkers)
	shardPresence := make([][]float64, nWorkers)

	var wg sync.WaitGroup
	shardSize := (n + nWorkers - 1) / nWorkers
	if shardSize == 0 {
		shardSize = 1
	}
	for w := 0; w < nWorkers; w++ {
		lo := w * shardSize
		hi := lo + shardSize
		if lo >= n {
			shardFreq[w] = make([]float64, reg.Len())
			shardPresence[w] = make([]float64, reg.Len())
			continue
		}
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			freq := make([]float64, reg.Len())
			presence := make([]float64, reg.Len())
			for si := lo; si < hi; si++ {
				ids, err := seg.Encode(runesToBytes(t.corpus[si]))
				if err != nil {
					continue
				}
				seenInSentence := make(map[model.ID]bool, len(ids))
				for _, id := range ids {
					if int(id) >= len(freq) {
						continue
					}
					freq[id] += t.freqs[si]
					if !seenInSentence[id] {
						seenInSentence[id] = true
						presence[id] += t.freqs[si]
					}
				}
			}
			shardFreq[w] = freq
			shardPresence[w] = presence
		}(w, lo, hi)
	}
	wg.Wait()

	freq = make([]float64, reg.Len())
	presence = make([]float64, reg.Len())
	for w := 0; w < nWorkers; w++ {
		for i, v := range shardFreq[w] {
			freq[i] += v
		}
		for i, v := range shardPresence[w] {
			presence[i] += v
		}
	}
	return freq, presence
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func shrinkOrDefault(f float64) float64 {
	if f <= 0 || f >= 1 {
		return 0.75
	}
	return f
}
