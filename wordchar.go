package subword

import (
	"github.com/example/subword/unicodeutil"
)

// encodeWord implements the word segmentation family: a "word" is a
// maximal run starting at a whitespace-sentinel boundary (or the start of
// the text), looked up as a single piece. Unknown words fall back to the
// unk piece as one span, matching the merge behavior applied to unigram
// unknowns (§8's unknown-merging property applies equally here).
func (p *Processor) encodeWord(normalized []byte, align []int) []EncodedPiece {
	bounds := wordBoundaries(normalized)
	var pieces []EncodedPiece
	for i := 0; i+1 < len(bounds); i++ {
		start, end := bounds[i], bounds[i+1]
		word := normalized[start:end]
		id := p.registry.PieceToID(word)
		var bytes []byte
		if p.registry.IsUnknown(id) {
			bytes = word
		} else {
			bytes = p.registry.IDToPiece(id)
		}
		pieces = append(pieces, EncodedPiece{
			Piece: bytes,
			ID:    id,
			Begin: align[start],
			End:   align[end],
		})
	}
	return mergeConsecutiveUnknown(pieces, p.registry.UnkID())
}

// wordBoundaries splits normalized bytes at every position that begins a
// new word: the very start, and every whitespace-sentinel codepoint.
func wordBoundaries(normalized []byte) []int {
	cps := unicodeutil.CodepointBoundaries(normalized)
	bounds := []int{0}
	for i := 0; i+1 < len(cps); i++ {
		start := cps[i]
		r, _ := unicodeutil.DecodeRune(normalized[start:])
		if r == unicodeutil.WhitespaceSentinel && start != 0 {
			bounds = append(bounds, start)
		}
	}
	bounds = append(bounds, len(normalized))
	return bounds
}

// encodeChar implements the character segmentation family: every unicode
// codepoint is its own piece, looked up individually.
func (p *Processor) encodeChar(normalized []byte, align []int) []EncodedPiece {
	cps := unicodeutil.CodepointBoundaries(normalized)
	var pieces []EncodedPiece
	for i := 0; i+1 < len(cps); i++ {
		start, end := cps[i], cps[i+1]
		ch := normalized[start:end]
		id := p.registry.PieceToID(ch)
		var bytes []byte
		if p.registry.IsUnknown(id) {
			bytes = ch
		} else {
			bytes = p.registry.IDToPiece(id)
		}
		pieces = append(pieces, EncodedPiece{
			Piece: bytes,
			ID:    id,
			Begin: align[start],
			End:   align[end],
		})
	}
	return mergeConsecutiveUnknown(pieces, p.registry.UnkID())
}
