package train

import (
	"sort"

	"github.com/example/subword/model"
	"github.com/example/subword/status"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("train-driver")
}

// BuildCorpus implements the corpus-sampling contract of C10: identical
// normalized lines are counted rather than duplicated, and the result is
// ordered by first occurrence for deterministic downstream processing
// (§5).
func BuildCorpus(normalizedLines [][]byte) []Sentence {
	index := map[string]int{}
	var out []Sentence
	for _, line := range normalizedLines {
		key := string(line)
		if i, ok := index[key]; ok {
			out[i].Freq++
			continue
		}
		index[key] = len(out)
		out = append(out, Sentence{Bytes: append([]byte{}, line...), Freq: 1})
	}
	return out
}

// AssembleModel prepends the spec's reserved meta pieces to the trained
// (non-meta) piece list, per §3's id-0..3 convention, and validates the
// vocabulary-size testable property of §8: |final_pieces| + |meta_pieces|
// == vocab_size exactly.
func AssembleModel(spec Spec, trained []model.Piece) ([]model.Piece, error) {
	meta := MetaPieces(spec)
	out := make([]model.Piece, 0, len(meta)+len(trained))
	out = append(out, meta...)
	out = append(out, trained...)

	if len(out) != spec.VocabSize {
		return nil, status.New(status.FailedPrecondition,
			"assembled vocabulary size %d does not match target %d (meta=%d, trained=%d)",
			len(out), spec.VocabSize, len(meta), len(trained))
	}

	if _, err := model.New(out); err != nil {
		return nil, status.Wrap(status.Internal, err, "assembled model failed registry validation")
	}
	return out, nil
}

// RequiredChars returns the sorted set of distinct codepoints that appear
// anywhere in the corpus: the characters that must be covered (§4.6
// finalization, §8's required-char-coverage property). The Unigram and BPE
// trainers each collect their own required set rather than calling it.
func RequiredChars(sentences []Sentence, decodeRune func([]byte) (rune, int)) []rune {
	seen := map[rune]bool{}
	for _, s := range sentences {
		for i := 0; i < len(s.Bytes); {
			r, size := decodeRune(s.Bytes[i:])
			seen[r] = true
			if size <= 0 {
				size = 1
			}
			i += size
		}
	}
	out := make([]rune, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
