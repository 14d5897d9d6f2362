// Package bpe implements the byte-pair-encoding trainer (C9): a
// content-addressed symbol cache, positional index, and iterative
// best-bigram merge with an actively-refreshed candidate set, per §4.7.
package bpe

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("train-bpe")
}

// symbolID indexes into Trainer.arena. tombstone marks a removed slot in a
// sentence's symbol sequence (§3 "removed slot... tombstone").
type symbolID int32

const tombstone symbolID = -1
const noSymbol symbolID = -2

// symbol is either a unary (single codepoint, Left==Right==noSymbol) or a
// bigram (Left, Right non-noSymbol, Chars = concatenation), per §3.
// Neighbor lookup does not use positions: getPrevIndex/getNextIndex scan
// the sentence's symbol sequence instead.
type symbol struct {
	chars       []int32
	left, right symbolID
	positions   []position // discovery order, unsorted; may hold stale entries
	freq        int
}

// position is the encoded (sid:32, left_index:16, right_index:16) location
// of one occurrence of a symbol pair in the corpus, per §3/§4.7.
type position uint64

func encodePosition(sid, l, r int) position {
	return position(uint64(uint32(sid))<<32 | uint64(uint16(l))<<16 | uint64(uint16(r)))
}

func (p position) decode() (sid, l, r int) {
	return int(uint32(p >> 32)), int(uint16(p >> 16)), int(uint16(p))
}

// fingerprint returns a 64-bit content hash of a rune sequence, used as
// the symbols_cache_ key so structurally identical symbols are shared
// (§3).
func fingerprint(chars []int32) uint64 {
	h := fnv.New64a()
	var buf [4]byte
	for _, c := range chars {
		binary.LittleEndian.PutUint32(buf[:], uint32(c))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
