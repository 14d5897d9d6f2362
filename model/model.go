// Package model implements the piece/id registry (C5): the bidirectional
// mapping between vocabulary pieces and their integer ids, per §4.8.
package model

import (
	"fmt"

	"github.com/example/subword/status"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("model")
}

// PieceType classifies a vocabulary entry, per §3.
type PieceType int

const (
	Normal PieceType = iota
	UserDefined
	Control
	Unknown
	Unused
)

func (t PieceType) String() string {
	switch t {
	case Normal:
		return "normal"
	case UserDefined:
		return "user_defined"
	case Control:
		return "control"
	case Unknown:
		return "unknown"
	case Unused:
		return "unused"
	default:
		return "invalid"
	}
}

// Piece is one vocabulary entry: a byte string with a score and a type,
// per §3.
type Piece struct {
	Bytes []byte
	Score float32
	Type  PieceType
}

// ID is a vocabulary index. Reserved meta-piece ids are conventionally the
// first ones assigned, per §3.
type ID int32

const InvalidID ID = -1

// Registry is the read-only piece/id bidirectional map built by New. It is
// safe for concurrent reads by multiple callers, matching every other
// loaded (as opposed to mutable-training) component in this module (§5).
type Registry struct {
	pieces  []Piece
	byBytes map[string]ID
	unkID   ID
}

// New builds a Registry from an ordered piece list (ids are assigned by
// list position, per §3). It rejects duplicate piece strings and requires
// exactly one Unknown piece, per §4.8.
func New(pieces []Piece) (*Registry, error) {
	r := &Registry{
		pieces:  make([]Piece, len(pieces)),
		byBytes: make(map[string]ID, len(pieces)),
		unkID:   InvalidID,
	}
	copy(r.pieces, pieces)

	for i, p := range r.pieces {
		if len(p.Bytes) == 0 {
			return nil, status.New(status.InvalidArgument, "piece %d is empty", i)
		}
		key := string(p.Bytes)
		if _, dup := r.byBytes[key]; dup {
			return nil, status.New(status.AlreadyExists, "duplicate piece %q", key)
		}
		r.byBytes[key] = ID(i)
		if p.Type == Unknown {
			if r.unkID != InvalidID {
				return nil, status.New(status.InvalidArgument,
					"more than one unknown piece: %q and %q", r.pieces[r.unkID].Bytes, p.Bytes)
			}
			r.unkID = ID(i)
		}
	}
	if r.unkID == InvalidID {
		return nil, status.New(status.InvalidArgument, "vocabulary has no unknown piece")
	}
	tracer().Infof("registry built with %d pieces (unk=%d)", len(r.pieces), r.unkID)
	return r, nil
}

// Len returns the vocabulary size.
func (r *Registry) Len() int { return len(r.pieces) }

// UnkID returns the reserved unknown-piece id.
func (r *Registry) UnkID() ID { return r.unkID }

// PieceToID looks up a piece's id, falling back to UnkID if absent.
func (r *Registry) PieceToID(piece []byte) ID {
	if id, ok := r.byBytes[string(piece)]; ok {
		return id
	}
	return r.unkID
}

// IDToPiece returns the bytes for id, or nil if out of range.
func (r *Registry) IDToPiece(id ID) []byte {
	if id < 0 || int(id) >= len(r.pieces) {
		return nil
	}
	return r.pieces[id].Bytes
}

// GetScore returns id's score, or 0 if out of range.
func (r *Registry) GetScore(id ID) float32 {
	if id < 0 || int(id) >= len(r.pieces) {
		return 0
	}
	return r.pieces[id].Score
}

func (r *Registry) typeOf(id ID) PieceType {
	if id < 0 || int(id) >= len(r.pieces) {
		return Unknown
	}
	return r.pieces[id].Type
}

func (r *Registry) IsUnknown(id ID) bool     { return id == r.unkID }
func (r *Registry) IsControl(id ID) bool     { return r.typeOf(id) == Control }
func (r *Registry) IsUnused(id ID) bool      { return r.typeOf(id) == Unused }
func (r *Registry) IsUserDefined(id ID) bool { return r.typeOf(id) == UserDefined }

// MinScore returns the lowest score among Normal/UserDefined pieces, used
// by the segmenter to score the unknown fallback (§4.5).
func (r *Registry) MinScore() float32 {
	min := float32(0)
	first := true
	for _, p := range r.pieces {
		if p.Type != Normal && p.Type != UserDefined {
			continue
		}
		if first || p.Score < min {
			min = p.Score
			first = false
		}
	}
	return min
}

// MaxScore returns the highest score among Normal/UserDefined pieces, used
// to compute the user-defined-piece bonus (§4.5).
func (r *Registry) MaxScore() float32 {
	max := float32(0)
	first := true
	for _, p := range r.pieces {
		if p.Type != Normal && p.Type != UserDefined {
			continue
		}
		if first || p.Score > max {
			max = p.Score
			first = false
		}
	}
	return max
}

// Pieces returns the read-only underlying piece list, in id order.
func (r *Registry) Pieces() []Piece { return r.pieces }

func (p Piece) String() string {
	return fmt.Sprintf("%s(%s, %.4f)", p.Type, p.Bytes, p.Score)
}
