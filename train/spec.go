// Package train implements the training driver (C10): corpus sampling,
// required-character collection, meta-piece reservation, and model
// assembly shared by the Unigram (C8) and BPE (C9) trainers, per §4.6/§4.7
// and the driver contract of §5.
package train

import "github.com/example/subword/model"

// Algorithm selects a segmentation family, per §6's trainer_spec.
type Algorithm int

const (
	Unigram Algorithm = iota
	BPE
	Word
	Char
)

// Spec mirrors the persisted trainer_spec record of §6.
type Spec struct {
	Algorithm Algorithm

	VocabSize        int
	MaxPieceLength   int
	SplitByWhitespace bool
	SplitByUnicodeScript bool
	SplitByNumber    bool
	CharacterCoverage float64

	NumSubIterations int
	ShrinkingFactor  float64
	SeedPieceSize    int
	NumThreads       int

	TreatWhitespaceAsSuffix bool

	UnkPiece   string
	BOSPiece   string
	EOSPiece   string
	PadPiece   string
	UnkSurface string

	Seed uint64

	SelfTest []SelfTestCase
}

// SelfTestCase is one {input, expected} pair verified at load time, per §6.
type SelfTestCase struct {
	Input    string
	Expected string
}

// DefaultSpec returns a Spec with the reference engine's conventional
// defaults, matching the values named throughout §4.6/§6.
func DefaultSpec() Spec {
	return Spec{
		Algorithm:         Unigram,
		VocabSize:         8000,
		MaxPieceLength:    16,
		CharacterCoverage: 0.9995,
		NumSubIterations:  2,
		ShrinkingFactor:   0.75,
		SeedPieceSize:     1000000,
		NumThreads:        1,
		UnkPiece:          "<unk>",
		BOSPiece:          "<s>",
		EOSPiece:          "</s>",
		UnkSurface:        " ⁇ ",
	}
}

// Sentence is one corpus entry after normalization: bytes plus an
// occurrence frequency (repeated identical lines are counted, not
// duplicated, per the corpus-sampling contract of C10).
type Sentence struct {
	Bytes []byte
	Freq  float64
}

// MetaPieces returns the reserved pieces named in spec, in the
// conventional id-0..3 order (§3): unk is mandatory, the rest optional.
func MetaPieces(spec Spec) []model.Piece {
	pieces := []model.Piece{{Bytes: []byte(spec.UnkPiece), Type: model.Unknown, Score: 0}}
	if spec.BOSPiece != "" {
		pieces = append(pieces, model.Piece{Bytes: []byte(spec.BOSPiece), Type: model.Control})
	}
	if spec.EOSPiece != "" {
		pieces = append(pieces, model.Piece{Bytes: []byte(spec.EOSPiece), Type: model.Control})
	}
	if spec.PadPiece != "" {
		pieces = append(pieces, model.Piece{Bytes: []byte(spec.PadPiece), Type: model.Control})
	}
	return pieces
}
