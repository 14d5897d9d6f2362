package bpe

import (
	"testing"

	"github.com/example/subword/train"
)

func TestTrainerMergesFrequentBigram(t *testing.T) {
	spec := train.DefaultSpec()
	spec.VocabSize = 20

	sentences := []train.Sentence{
		{Bytes: []byte("abab"), Freq: 5},
		{Bytes: []byte("ab"), Freq: 3},
	}
	tr := New(spec, sentences)
	pieces, err := tr.Train()
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	found := false
	for _, p := range pieces {
		if string(p.Bytes) == "ab" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected 'ab' to be merged given its high frequency, got %v", pieces)
	}
}

func TestTrainerScoresStrictlyDecreasing(t *testing.T) {
	spec := train.DefaultSpec()
	spec.VocabSize = 30

	sentences := []train.Sentence{
		{Bytes: []byte("aaaabbbbccccdddd"), Freq: 4},
		{Bytes: []byte("aabbccdd"), Freq: 2},
	}
	tr := New(spec, sentences)
	pieces, err := tr.Train()
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	merges := tr.vocab
	for i := 1; i < len(merges); i++ {
		if merges[i].Score >= merges[i-1].Score {
			t.Fatalf("merge scores not strictly decreasing at %d: %v then %v", i, merges[i-1].Score, merges[i].Score)
		}
	}
	_ = pieces
}

func TestTrainerCoversRequiredCharacters(t *testing.T) {
	spec := train.DefaultSpec()
	spec.VocabSize = 50

	sentences := []train.Sentence{{Bytes: []byte("xyz"), Freq: 1}}
	tr := New(spec, sentences)
	pieces, err := tr.Train()
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	seen := map[string]bool{}
	for _, p := range pieces {
		seen[string(p.Bytes)] = true
	}
	for _, c := range []string{"x", "y", "z"} {
		if !seen[c] {
			t.Fatalf("expected required character %q in final vocabulary, got %v", c, pieces)
		}
	}
}
