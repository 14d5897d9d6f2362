package model

import "testing"

func mustNew(t *testing.T, pieces []Piece) *Registry {
	t.Helper()
	r, err := New(pieces)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestRegistryBasics(t *testing.T) {
	r := mustNew(t, []Piece{
		{Bytes: []byte("<unk>"), Score: 0, Type: Unknown},
		{Bytes: []byte("a"), Score: -1, Type: Normal},
		{Bytes: []byte("ab"), Score: -0.5, Type: Normal},
	})
	if r.UnkID() != 0 {
		t.Fatalf("UnkID = %d, want 0", r.UnkID())
	}
	if id := r.PieceToID([]byte("ab")); id != 2 {
		t.Fatalf("PieceToID(ab) = %d, want 2", id)
	}
	if id := r.PieceToID([]byte("zzz")); id != r.UnkID() {
		t.Fatalf("PieceToID(unseen) = %d, want unk %d", id, r.UnkID())
	}
	if string(r.IDToPiece(1)) != "a" {
		t.Fatalf("IDToPiece(1) = %q, want a", r.IDToPiece(1))
	}
	if !r.IsUnknown(0) || r.IsUnknown(1) {
		t.Fatalf("IsUnknown mismatch")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := New([]Piece{
		{Bytes: []byte("<unk>"), Type: Unknown},
		{Bytes: []byte("a"), Type: Normal},
		{Bytes: []byte("a"), Type: Normal},
	})
	if err == nil {
		t.Fatalf("expected error for duplicate piece")
	}
}

func TestRegistryRequiresExactlyOneUnknown(t *testing.T) {
	if _, err := New([]Piece{{Bytes: []byte("a"), Type: Normal}}); err == nil {
		t.Fatalf("expected error for missing unknown piece")
	}
	if _, err := New([]Piece{
		{Bytes: []byte("<unk>"), Type: Unknown},
		{Bytes: []byte("<unk2>"), Type: Unknown},
	}); err == nil {
		t.Fatalf("expected error for duplicate unknown piece")
	}
}

func TestRegistryMinMaxScore(t *testing.T) {
	r := mustNew(t, []Piece{
		{Bytes: []byte("<unk>"), Type: Unknown},
		{Bytes: []byte("a"), Score: -5, Type: Normal},
		{Bytes: []byte("b"), Score: -1, Type: Normal},
		{Bytes: []byte("<ctrl>"), Score: 100, Type: Control},
	})
	if r.MinScore() != -5 {
		t.Fatalf("MinScore = %v, want -5", r.MinScore())
	}
	if r.MaxScore() != -1 {
		t.Fatalf("MaxScore = %v, want -1 (control pieces excluded)", r.MaxScore())
	}
}
