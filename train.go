package subword

import (
	"sort"

	"github.com/example/subword/model"
	"github.com/example/subword/normalizer"
	"github.com/example/subword/status"
	"github.com/example/subword/train"
	trainbpe "github.com/example/subword/train/bpe"
	trainunigram "github.com/example/subword/train/unigram"
	"github.com/example/subword/unicodeutil"
)

// TrainOptions bundles a trainer_spec with the normalizer rules and options
// applied to raw lines before they are handed to the trainer, per §6.
type TrainOptions struct {
	Spec             train.Spec
	NormalizerRules  map[string]string
	NormalizerOpts   normalizer.Options
	UserDefinedSyms  []string
}

// Train runs the algorithm named in opts.Spec.Algorithm over rawLines and
// returns a ready Processor plus the serializable container, per §5's
// driver contract. Word and Char are trivial: their "vocabulary" is just
// the corpus's required characters/words wrapped in meta pieces, since
// those families have no learned merge/score structure (§1).
func Train(opts TrainOptions, rawLines [][]byte) (*Processor, *ModelContainer, error) {
	normBlob, err := normalizer.Compile(opts.NormalizerRules)
	if err != nil {
		return nil, nil, status.Wrap(status.Internal, err, "compile normalizer rules")
	}
	norm, err := normalizer.Load(normBlob, opts.NormalizerOpts)
	if err != nil {
		return nil, nil, status.Wrap(status.Internal, err, "load compiled normalizer")
	}
	norm.SetUserDefinedSymbols(opts.UserDefinedSyms)

	normalized := make([][]byte, len(rawLines))
	for i, line := range rawLines {
		out, _ := norm.Normalize(line)
		normalized[i] = out
	}
	sentences := train.BuildCorpus(normalized)

	var trained []model.Piece
	switch opts.Spec.Algorithm {
	case train.Unigram:
		trained, err = trainunigram.New(opts.Spec, sentences).Train()
	case train.BPE:
		trained, err = trainbpe.New(opts.Spec, sentences).Train()
	case train.Word, train.Char:
		trained = wordOrCharVocabulary(opts.Spec, sentences)
	default:
		return nil, nil, status.New(status.InvalidArgument, "unknown algorithm %v", opts.Spec.Algorithm)
	}
	if err != nil {
		return nil, nil, status.Wrap(status.Internal, err, "train")
	}

	trained = withUserDefinedPieces(trained, opts.UserDefinedSyms)

	pieces, err := train.AssembleModel(opts.Spec, trained)
	if err != nil {
		return nil, nil, err
	}

	container := &ModelContainer{
		Pieces:         pieces,
		Spec:           opts.Spec,
		NormalizerBlob: normBlob,
		NormalizerOpts: opts.NormalizerOpts,
	}
	blob, err := EncodeContainer(container)
	if err != nil {
		return nil, nil, status.Wrap(status.Internal, err, "encode trained container")
	}
	p, err := Load(blob)
	if err != nil {
		return nil, nil, status.Wrap(status.Internal, err, "load freshly trained container")
	}
	return p, container, nil
}

// withUserDefinedPieces prepends the caller-supplied user-defined symbols to
// the trained piece list as UserDefined-typed pieces, skipping any symbol
// that already exists as a trained piece (model.New rejects duplicate byte
// keys). Load's registry then feeds them back to the normalizer's matcher
// via userDefinedSymbols, so a symbol survives round-tripping.
func withUserDefinedPieces(trained []model.Piece, symbols []string) []model.Piece {
	if len(symbols) == 0 {
		return trained
	}
	seen := make(map[string]bool, len(trained))
	for _, p := range trained {
		seen[string(p.Bytes)] = true
	}
	out := make([]model.Piece, 0, len(symbols)+len(trained))
	for _, s := range symbols {
		if s == "" || seen[s] {
			continue
		}
		out = append(out, model.Piece{Bytes: []byte(s), Type: model.UserDefined})
		seen[s] = true
	}
	out = append(out, trained...)
	return out
}

// wordOrCharVocabulary builds the piece list for the word/char families: one
// piece per distinct whitespace-delimited word (word family) or codepoint
// (char family) observed in the corpus, ranked by frequency so the most
// common survive a VocabSize cutoff.
func wordOrCharVocabulary(spec train.Spec, sentences []train.Sentence) []model.Piece {
	counts := map[string]float64{}
	for _, s := range sentences {
		if spec.Algorithm == train.Char {
			for i := 0; i < len(s.Bytes); {
				_, size := unicodeutil.DecodeRune(s.Bytes[i:])
				if size <= 0 {
					size = 1
				}
				counts[string(s.Bytes[i:i+size])] += s.Freq
				i += size
			}
			continue
		}
		bounds := wordBoundaries(s.Bytes)
		for i := 0; i+1 < len(bounds); i++ {
			counts[string(s.Bytes[bounds[i]:bounds[i+1]])] += s.Freq
		}
	}

	entries := make([]countEntry, 0, len(counts))
	for k, c := range counts {
		entries = append(entries, countEntry{k, c})
	}
	sortByCountDesc(entries)

	budget := spec.VocabSize - len(train.MetaPieces(spec))
	if budget > len(entries) {
		budget = len(entries)
	}
	if budget < 0 {
		budget = 0
	}
	out := make([]model.Piece, budget)
	for i := 0; i < budget; i++ {
		out[i] = model.Piece{Bytes: []byte(entries[i].key), Type: model.Normal, Score: float32(-i)}
	}
	return out
}

// countEntry pairs a word/char key with its corpus frequency, used only to
// rank the word/char vocabulary by descending count.
type countEntry struct {
	key   string
	count float64
}

func sortByCountDesc(entries []countEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].count > entries[j].count })
}
