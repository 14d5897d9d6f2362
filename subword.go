// Package subword is the library facade over the tokenizer engine: it
// loads a trained model, normalizes and segments text, and decodes piece
// sequences back to text, per §6's external interface.
package subword

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/example/subword/dat"
	"github.com/example/subword/lattice"
	"github.com/example/subword/model"
	"github.com/example/subword/normalizer"
	"github.com/example/subword/status"
	"github.com/example/subword/train"
	"github.com/example/subword/unicodeutil"
	"github.com/example/subword/unigram"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("subword")
}

// Processor is a loaded, ready-to-use tokenizer: the normalizer, the
// piece/id registry, and (for the unigram family) the segmentation
// lattice machinery. It holds only read-only state after Load and is safe
// for concurrent use by multiple callers (§5).
type Processor struct {
	spec       train.Spec
	registry   *model.Registry
	normalizer *normalizer.Normalizer
	trie       *dat.DAT
	segmenter  *unigram.Segmenter // nil for word/char algorithms
}

// Load parses a serialized model container and builds a ready Processor,
// per §6. Load-time errors (duplicate piece, missing unknown, malformed
// blob, failed self-test) are internal/data_loss and leave no usable
// Processor (§7).
func Load(modelBytes []byte) (*Processor, error) {
	container, err := decodeContainer(modelBytes)
	if err != nil {
		return nil, status.Wrap(status.DataLoss, err, "decode model container")
	}

	reg, err := model.New(container.Pieces)
	if err != nil {
		return nil, status.Wrap(status.Internal, err, "build piece registry")
	}

	norm, err := normalizer.Load(container.NormalizerBlob, container.NormalizerOpts)
	if err != nil {
		return nil, status.Wrap(status.Internal, err, "load normalizer")
	}
	norm.SetUserDefinedSymbols(userDefinedSymbols(reg))

	p := &Processor{spec: container.Spec, registry: reg, normalizer: norm}

	if container.Spec.Algorithm == train.Unigram || container.Spec.Algorithm == train.BPE {
		trie, err := buildSegmentationTrie(reg)
		if err != nil {
			return nil, status.Wrap(status.Internal, err, "build segmentation trie")
		}
		p.trie = trie
		p.segmenter = unigram.New(trie, reg)
	}

	if err := p.selfTest(container.Spec.SelfTest); err != nil {
		return nil, err
	}
	tracer().Infof("loaded model: %d pieces, algorithm=%v", reg.Len(), container.Spec.Algorithm)
	return p, nil
}

// userDefinedSymbols collects every UserDefined piece's surface string, for
// installing on the normalizer's longest-prefix matcher (§4.2 step 1).
func userDefinedSymbols(reg *model.Registry) []string {
	var out []string
	for _, p := range reg.Pieces() {
		if p.Type == model.UserDefined {
			out = append(out, string(p.Bytes))
		}
	}
	return out
}

// pieceEntry is one piece's byte key and registry id, used only to sort
// the segmentation trie's build input.
type pieceEntry struct {
	key   []byte
	value int32
}

// buildSegmentationTrie indexes every Normal/UserDefined piece by its
// bytes, for the trie lookup step of §4.5.
func buildSegmentationTrie(reg *model.Registry) (*dat.DAT, error) {
	var entries []pieceEntry
	for i, p := range reg.Pieces() {
		if p.Type != model.Normal && p.Type != model.UserDefined {
			continue
		}
		entries = append(entries, pieceEntry{key: p.Bytes, value: int32(i)})
	}
	// Pieces are already stored in sorted-then-inserted vocabulary order in
	// most trainers, but the trie build contract requires strict sort.
	sortEntries(entries)
	keys := make([][]byte, len(entries))
	values := make([]int32, len(entries))
	for i, e := range entries {
		keys[i] = e.key
		values[i] = e.value
	}
	return dat.Build(keys, values)
}

func sortEntries(entries []pieceEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return compareBytesLex(entries[i].key, entries[j].key) < 0
	})
}

func compareBytesLex(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}

// selfTest verifies every {input, expected} pair; a mismatch fails Load
// (§6, §7).
func (p *Processor) selfTest(cases []train.SelfTestCase) error {
	for _, c := range cases {
		pieces, err := p.Encode(c.Input, "")
		if err != nil {
			return status.Wrap(status.Internal, err, "self-test encode failed for %q", c.Input)
		}
		var sb strings.Builder
		for i, pc := range pieces {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.Write(pc.Piece)
		}
		if sb.String() != c.Expected {
			return status.New(status.Internal, "self-test mismatch for %q: got %q, want %q", c.Input, sb.String(), c.Expected)
		}
	}
	return nil
}

// Normalize exposes the loaded normalizer, per §6.
func (p *Processor) Normalize(text string) (string, []int) {
	out, align := p.normalizer.Normalize([]byte(text))
	return string(out), align
}

// EncodedPiece is one segmented piece with its id and byte span in the
// original (pre-normalization) input, per §6.
type EncodedPiece struct {
	Piece []byte
	ID    model.ID
	Begin int
	End   int
}

// Encode segments text and returns pieces with ids and original-text byte
// spans, applying the colon-separated extra options {reverse, bos, eos} in
// order, per §6.
func (p *Processor) Encode(text string, extraOptions string) ([]EncodedPiece, error) {
	normalized, align := p.normalizer.Normalize([]byte(text))

	var pieces []EncodedPiece
	switch p.spec.Algorithm {
	case train.Word:
		pieces = p.encodeWord(normalized, align)
	case train.Char:
		pieces = p.encodeChar(normalized, align)
	default:
		spans, err := p.segmenter.EncodeSpans(normalized)
		if err != nil {
			return nil, status.Wrap(status.Internal, err, "viterbi failed")
		}
		pieces = p.toEncodedPieces(spans, align)
	}

	return applyExtraOptions(pieces, extraOptions, p), nil
}

func (p *Processor) toEncodedPieces(spans []unigram.Span, align []int) []EncodedPiece {
	out := make([]EncodedPiece, len(spans))
	for i, s := range spans {
		out[i] = EncodedPiece{
			Piece: p.registry.IDToPiece(s.ID),
			ID:    s.ID,
			Begin: align[s.Begin],
			End:   align[s.End],
		}
	}
	return mergeConsecutiveUnknown(out, p.registry.UnkID())
}

// mergeConsecutiveUnknown implements the "unknown merging" property of §8:
// consecutive unknown pieces collapse into one, spanning their union.
func mergeConsecutiveUnknown(pieces []EncodedPiece, unkID model.ID) []EncodedPiece {
	var out []EncodedPiece
	for _, pc := range pieces {
		if pc.ID == unkID && len(out) > 0 && out[len(out)-1].ID == unkID {
			last := &out[len(out)-1]
			last.End = pc.End
			continue
		}
		out = append(out, pc)
	}
	return out
}

// NBestEncode returns up to k best segmentations (unigram family only).
func (p *Processor) NBestEncode(text string, k int) ([][]EncodedPiece, error) {
	if p.segmenter == nil {
		return nil, status.New(status.InvalidArgument, "nbest_encode requires a unigram or bpe model")
	}
	normalized, align := p.normalizer.Normalize([]byte(text))
	l := p.segmenter.Populate(normalized)
	paths, err := l.NBest(k)
	if err != nil {
		return nil, status.Wrap(status.Internal, err, "nbest failed")
	}
	out := make([][]EncodedPiece, len(paths))
	for i, path := range paths {
		spans := make([]unigram.Span, len(path))
		for j, n := range path {
			spans[j] = unigram.Span{ID: n.PieceID, Begin: l.ByteOffset(n.Pos), End: l.ByteOffset(n.Pos + n.Length)}
		}
		out[i] = p.toEncodedPieces(spans, align)
	}
	return out, nil
}

// SampleEncode draws one segmentation from the θ-tempered path
// distribution (unigram family only), per §6.
func (p *Processor) SampleEncode(text string, theta float64, rnd lattice.RandSource) ([]EncodedPiece, error) {
	if p.segmenter == nil {
		return nil, status.New(status.InvalidArgument, "sample_encode requires a unigram or bpe model")
	}
	normalized, align := p.normalizer.Normalize([]byte(text))
	l := p.segmenter.Populate(normalized)
	path := l.Sample(theta, rnd)
	spans := make([]unigram.Span, len(path))
	for j, n := range path {
		spans[j] = unigram.Span{ID: n.PieceID, Begin: l.ByteOffset(n.Pos), End: l.ByteOffset(n.Pos + n.Length)}
	}
	return p.toEncodedPieces(spans, align), nil
}

// PieceToID, IDToPiece, GetScore, and the Is* predicates expose the
// underlying registry directly, per §6.
func (p *Processor) PieceToID(piece string) model.ID  { return p.registry.PieceToID([]byte(piece)) }
func (p *Processor) IDToPiece(id model.ID) string     { return string(p.registry.IDToPiece(id)) }
func (p *Processor) GetScore(id model.ID) float32     { return p.registry.GetScore(id) }
func (p *Processor) IsUnknown(id model.ID) bool       { return p.registry.IsUnknown(id) }
func (p *Processor) IsControl(id model.ID) bool       { return p.registry.IsControl(id) }
func (p *Processor) IsUnused(id model.ID) bool        { return p.registry.IsUnused(id) }
func (p *Processor) VocabSize() int                   { return p.registry.Len() }

// ExportVocabulary writes one "piece\tscore" line per registry entry, in id
// order, matching the vocabulary-dump surface of §6.
func (p *Processor) ExportVocabulary(w io.Writer) error {
	for _, pc := range p.registry.Pieces() {
		if _, err := fmt.Fprintf(w, "%s\t%g\n", pc.Bytes, pc.Score); err != nil {
			return status.Wrap(status.Internal, err, "write vocabulary entry")
		}
	}
	return nil
}

// SetVocabulary restricts encoding to a subset of the loaded vocabulary by
// marking every piece not in keep as Unused, per §6. UnkID and control
// pieces are always retained.
func (p *Processor) SetVocabulary(keep []string) error {
	allowed := make(map[string]bool, len(keep))
	for _, s := range keep {
		allowed[s] = true
	}
	pieces := append([]model.Piece{}, p.registry.Pieces()...)
	for i, pc := range pieces {
		if pc.Type == model.Control || model.ID(i) == p.registry.UnkID() {
			continue
		}
		if !allowed[string(pc.Bytes)] {
			pieces[i].Type = model.Unused
		}
	}
	reg, err := model.New(pieces)
	if err != nil {
		return status.Wrap(status.Internal, err, "rebuild registry after SetVocabulary")
	}
	p.registry = reg
	p.normalizer.SetUserDefinedSymbols(userDefinedSymbols(reg))
	if p.spec.Algorithm == train.Unigram || p.spec.Algorithm == train.BPE {
		trie, err := buildSegmentationTrie(reg)
		if err != nil {
			return status.Wrap(status.Internal, err, "rebuild trie after SetVocabulary")
		}
		p.trie = trie
		p.segmenter = unigram.New(trie, reg)
	}
	return nil
}

// ResetVocabulary undoes SetVocabulary by rebuilding the registry from the
// originally loaded piece list, per §6.
func (p *Processor) ResetVocabulary(original []model.Piece) error {
	reg, err := model.New(original)
	if err != nil {
		return status.Wrap(status.Internal, err, "rebuild registry on ResetVocabulary")
	}
	p.registry = reg
	p.normalizer.SetUserDefinedSymbols(userDefinedSymbols(reg))
	if p.spec.Algorithm == train.Unigram || p.spec.Algorithm == train.BPE {
		trie, err := buildSegmentationTrie(reg)
		if err != nil {
			return status.Wrap(status.Internal, err, "rebuild trie on ResetVocabulary")
		}
		p.trie = trie
		p.segmenter = unigram.New(trie, reg)
	}
	return nil
}

func applyExtraOptions(pieces []EncodedPiece, opts string, p *Processor) []EncodedPiece {
	if opts == "" {
		return pieces
	}
	for _, opt := range strings.Split(opts, ":") {
		switch opt {
		case "bos":
			id := p.PieceToID(p.spec.BOSPiece)
			pieces = append([]EncodedPiece{{Piece: []byte(p.spec.BOSPiece), ID: id}}, pieces...)
		case "eos":
			id := p.PieceToID(p.spec.EOSPiece)
			pieces = append(pieces, EncodedPiece{Piece: []byte(p.spec.EOSPiece), ID: id})
		case "reverse":
			for i, j := 0, len(pieces)-1; i < j; i, j = i+1, j-1 {
				pieces[i], pieces[j] = pieces[j], pieces[i]
			}
		}
	}
	return pieces
}

// DecodePieces implements §6's decode_pieces: sentinel-prefixed pieces
// become spaces (except the very first), <unk> becomes unk_surface,
// control pieces vanish.
func (p *Processor) DecodePieces(pieces []string) string {
	var sb strings.Builder
	for i, s := range pieces {
		p.decodeOnePiece(&sb, s, i == 0)
	}
	return sb.String()
}

// DecodeIDs is DecodePieces over ids instead of piece strings.
func (p *Processor) DecodeIDs(ids []model.ID) string {
	var sb strings.Builder
	for i, id := range ids {
		p.decodeOnePiece(&sb, string(p.registry.IDToPiece(id)), i == 0)
	}
	return sb.String()
}

func (p *Processor) decodeOnePiece(sb *strings.Builder, piece string, first bool) {
	id := p.registry.PieceToID([]byte(piece))
	if p.registry.IsControl(id) {
		return
	}
	if p.registry.IsUnknown(id) {
		surface := p.spec.UnkSurface
		if surface == "" {
			surface = " ⁇ "
		}
		sb.WriteString(surface)
		return
	}
	b := []byte(piece)
	r, size := unicodeutil.DecodeRune(b)
	if r == unicodeutil.WhitespaceSentinel {
		if !first {
			sb.WriteByte(' ')
		}
		sb.Write(b[size:])
		return
	}
	sb.Write(b)
}
