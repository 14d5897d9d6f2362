package unigram

import (
	"testing"

	"github.com/example/subword/dat"
	"github.com/example/subword/model"
)

func buildTestSegmenter(t *testing.T) *Segmenter {
	t.Helper()
	pieces := []model.Piece{
		{Bytes: []byte("<unk>"), Type: model.Unknown, Score: 0},
		{Bytes: []byte("a"), Type: model.Normal, Score: -3},
		{Bytes: []byte("b"), Type: model.Normal, Score: -3},
		{Bytes: []byte("ab"), Type: model.Normal, Score: -1},
	}
	reg, err := model.New(pieces)
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	keys := [][]byte{[]byte("a"), []byte("ab"), []byte("b")}
	values := []int32{1, 3, 2}
	trie, err := dat.Build(keys, values)
	if err != nil {
		t.Fatalf("dat.Build: %v", err)
	}
	return New(trie, reg)
}

func TestSegmenterEncodePrefersMergedPiece(t *testing.T) {
	s := buildTestSegmenter(t)
	ids, err := s.Encode([]byte("ab"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(ids) != 1 || ids[0] != model.ID(3) {
		t.Fatalf("Encode(ab) = %v, want [3]", ids)
	}
}

func TestSegmenterUnknownFallback(t *testing.T) {
	s := buildTestSegmenter(t)
	ids, err := s.Encode([]byte("z"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(ids) != 1 || ids[0] != s.registry.UnkID() {
		t.Fatalf("Encode(z) = %v, want unknown fallback", ids)
	}
}

func TestSegmenterNBestOrdered(t *testing.T) {
	s := buildTestSegmenter(t)
	results, err := s.NBestEncode([]byte("ab"), 2)
	if err != nil {
		t.Fatalf("NBestEncode: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %v", len(results), results)
	}
	if len(results[0]) != 1 || results[0][0] != model.ID(3) {
		t.Fatalf("best result should be merged piece: %v", results[0])
	}
}
