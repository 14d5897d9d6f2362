// Package unigram implements the unigram-language-model segmenter (C7):
// populating a lattice from the trained model and querying it for the
// best, N-best, or sampled segmentation, per §4.5.
package unigram

import (
	"github.com/example/subword/dat"
	"github.com/example/subword/lattice"
	"github.com/example/subword/model"
	"github.com/example/subword/unicodeutil"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("unigram")
}

// unknownPenalty is added to the registry's minimum piece score to score the
// single-character unknown fallback, placing it 10 below that minimum (§4.5).
const unknownPenalty = -10

// Segmenter populates lattices from a compiled trie plus a piece registry.
// It holds only read-only state and is safe for concurrent use by multiple
// callers (§5); each call takes its own Lattice.
type Segmenter struct {
	trie        *dat.DAT
	registry    *model.Registry
	userDefined []string
	maxPieceLen int
}

// New builds a Segmenter over a trie mapping piece bytes to registry ids
// and the registry itself.
func New(trie *dat.DAT, registry *model.Registry) *Segmenter {
	s := &Segmenter{trie: trie, registry: registry}
	for _, p := range registry.Pieces() {
		if p.Type == model.UserDefined {
			s.userDefined = append(s.userDefined, string(p.Bytes))
		}
		if len(p.Bytes) > s.maxPieceLen {
			s.maxPieceLen = len(p.Bytes)
		}
	}
	return s
}

// Populate builds and fills a fresh lattice for normalized input, per the
// two-step procedure of §4.5.
func (s *Segmenter) Populate(input []byte) *lattice.Lattice {
	l := &lattice.Lattice{}
	l.SetSentence(input)

	maxScore := s.registry.MaxScore()
	L := l.Len()
	for pos := 0; pos < L; pos++ {
		surface := l.Surface(pos)
		matches := s.trie.CommonPrefixSearch(surface, 0)
		haveLength1 := false
		for _, m := range matches {
			length := runeLen(surface[:m.Length])
			id := model.ID(m.Value)
			n := l.Insert(pos, length)
			n.PieceID = id
			if s.registry.IsUserDefined(id) {
				n.Score = float32(length)*maxScore + 1
			} else {
				n.Score = s.registry.GetScore(id)
			}
			if length == 1 {
				haveLength1 = true
			}
		}
		if !haveLength1 {
			n := l.Insert(pos, 1)
			n.PieceID = s.registry.UnkID()
			n.Score = s.registry.MinScore() + unknownPenalty
		}
	}
	return l
}

// runeLen counts unicode codepoints in a matched byte span (CommonPrefixSearch
// works in bytes; the lattice indexes by unicode position).
func runeLen(b []byte) int {
	return unicodeutil.RuneCount(b)
}

// Encode returns the single best segmentation, per §4.5.
func (s *Segmenter) Encode(input []byte) ([]model.ID, error) {
	l := s.Populate(input)
	path, err := l.Viterbi()
	if err != nil {
		return nil, err
	}
	return idsOf(path), nil
}

// NBestEncode returns up to k best segmentations, per §4.5.
func (s *Segmenter) NBestEncode(input []byte, k int) ([][]model.ID, error) {
	l := s.Populate(input)
	paths, err := l.NBest(k)
	if err != nil {
		return nil, err
	}
	out := make([][]model.ID, len(paths))
	for i, p := range paths {
		out[i] = idsOf(p)
	}
	return out, nil
}

// SampleEncode returns one segmentation drawn from the θ-tempered
// distribution over paths, per §4.5.
func (s *Segmenter) SampleEncode(input []byte, theta float64, rnd lattice.RandSource) []model.ID {
	l := s.Populate(input)
	return idsOf(l.Sample(theta, rnd))
}

func idsOf(path []*lattice.Node) []model.ID {
	ids := make([]model.ID, len(path))
	for i, n := range path {
		ids[i] = n.PieceID
	}
	return ids
}

// Span is one segmented piece together with its byte range in the
// normalized input that was segmented (§6's encode → [(piece, id, begin,
// end)]).
type Span struct {
	ID    model.ID
	Begin int
	End   int
}

// EncodeSpans is Encode, additionally reporting each piece's normalized
// byte range.
func (s *Segmenter) EncodeSpans(input []byte) ([]Span, error) {
	l := s.Populate(input)
	path, err := l.Viterbi()
	if err != nil {
		return nil, err
	}
	return spansOf(l, path), nil
}

func spansOf(l *lattice.Lattice, path []*lattice.Node) []Span {
	out := make([]Span, len(path))
	for i, n := range path {
		out[i] = Span{ID: n.PieceID, Begin: l.ByteOffset(n.Pos), End: l.ByteOffset(n.Pos + n.Length)}
	}
	return out
}
