package unigram

import (
	"sort"

	"github.com/example/subword/model"
	"github.com/example/subword/train"
)

const requiredCharPenaltyStep = 0.001

// finalize implements §4.6's finalization: guarantee every required
// character is present, then trim to exactly VocabSize (minus reserved
// meta pieces, added by the driver) keeping the highest-scoring pieces,
// and emit sorted for stable ids.
func (t *Trainer) finalize() []model.Piece {
	present := map[int32]bool{}
	minScore := float32(0)
	first := true
	for _, p := range t.pieces {
		if len(p.Runes) == 1 {
			present[p.Runes[0]] = true
		}
		if first || p.Score < minScore {
			minScore = p.Score
			first = false
		}
	}

	penalty := float32(0)
	for r := range t.required {
		if present[r] {
			continue
		}
		penalty += requiredCharPenaltyStep
		t.pieces = append(t.pieces, SeedPiece{Runes: []int32{r}, Score: minScore - penalty})
	}

	sort.Slice(t.pieces, func(i, j int) bool { return t.pieces[i].Score > t.pieces[j].Score })

	limit := t.spec.VocabSize - len(train.MetaPieces(t.spec))
	if limit < 0 {
		limit = 0
	}
	if limit > len(t.pieces) {
		limit = len(t.pieces)
	}
	final := t.pieces[:limit]

	sort.Slice(final, func(i, j int) bool {
		return runesKey(final[i].Runes) < runesKey(final[j].Runes)
	})

	out := make([]model.Piece, len(final))
	for i, p := range final {
		out[i] = model.Piece{Bytes: []byte(runesKey(p.Runes)), Score: p.Score, Type: model.Normal}
	}
	return out
}
