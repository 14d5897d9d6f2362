package unigram

import (
	"testing"

	"github.com/example/subword/train"
)

func TestMakeSeedPiecesIncludesAllSingleChars(t *testing.T) {
	corpus := [][]int32{toRunes([]byte("aba")), toRunes([]byte("bab"))}
	seeds := MakeSeedPieces(corpus, SeedOptions{MaxPieceLength: 16, SeedSize: 100})
	seen := map[string]bool{}
	for _, s := range seeds {
		seen[runesKey(s.Runes)] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Fatalf("expected single characters a,b in seed set, got %v", seen)
	}
}

func TestIsValidPieceRejectsOverlongAndInteriorWhitespace(t *testing.T) {
	opts := SeedOptions{MaxPieceLength: 3}
	if isValidPiece(toRunes([]byte("abcd")), opts) {
		t.Fatalf("expected 4-rune piece to be rejected by MaxPieceLength=3")
	}
	ws := toRunes([]byte("a▁b"))
	if isValidPiece(ws, SeedOptions{MaxPieceLength: 16}) {
		t.Fatalf("expected interior whitespace sentinel to be rejected")
	}
}

func TestTrainerProducesBoundedVocabulary(t *testing.T) {
	spec := train.DefaultSpec()
	spec.VocabSize = 12
	spec.MaxPieceLength = 8
	spec.NumSubIterations = 1
	spec.SeedPieceSize = 50
	spec.NumThreads = 2

	sentences := []train.Sentence{
		{Bytes: []byte("▁i▁have▁a▁pen"), Freq: 1},
		{Bytes: []byte("▁i▁have▁an▁apple"), Freq: 1},
		{Bytes: []byte("▁apple▁pen"), Freq: 1},
	}

	tr := New(spec, sentences)
	pieces, err := tr.Train()
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(pieces) == 0 {
		t.Fatalf("expected a non-empty trained vocabulary")
	}
	if len(pieces) > spec.VocabSize {
		t.Fatalf("trained vocabulary %d exceeds VocabSize %d", len(pieces), spec.VocabSize)
	}
}
