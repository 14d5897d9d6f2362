// Package normalizer implements the pre-compiled, trie-driven longest-match
// text rewriter (C3) and its rule compiler (C4), per §4.2/§4.3.
package normalizer

import (
	"unicode/utf8"

	"github.com/example/subword/dat"
	"github.com/example/subword/status"
	"github.com/example/subword/unicodeutil"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("normalizer")
}

// Options mirrors the normalizer_spec flags of §6.
type Options struct {
	EscapeWhitespaces       bool
	AddDummyPrefix          bool
	RemoveExtraWhitespaces  bool
	TreatWhitespaceAsSuffix bool
}

// Normalizer rewrites raw input text through a compiled rule blob before
// segmentation. Once loaded it holds only read-only state and is safe for
// concurrent use by multiple callers (§5).
type Normalizer struct {
	trie         *dat.DAT
	replacements []byte
	userDefined  *userDefinedMatcher
	opts         Options
}

// Load parses a normalizer blob produced by Compile (or an equivalent
// precompiled_charsmap) and returns a ready-to-use Normalizer.
func Load(blob []byte, opts Options) (*Normalizer, error) {
	trieBlob, replacements, err := splitBlob(blob)
	if err != nil {
		return nil, status.Wrap(status.DataLoss, err, "split normalizer blob")
	}
	trie, err := dat.Unmarshal(trieBlob)
	if err != nil {
		return nil, status.Wrap(status.DataLoss, err, "unmarshal normalizer trie")
	}
	return &Normalizer{trie: trie, replacements: replacements, opts: opts}, nil
}

// SetUserDefinedSymbols installs the symbol set consulted before rule
// lookup (§4.2 step 1). Passing nil or an empty slice disables the step.
func (n *Normalizer) SetUserDefinedSymbols(symbols []string) {
	n.userDefined = newUserDefinedMatcher(symbols)
}

// Normalize rewrites input and returns the normalized bytes together with
// the norm_to_orig alignment vector (§4.2, §3). It never fails on
// arbitrary bytes: malformed UTF-8 yields U+FFFD (§7).
func (n *Normalizer) Normalize(input []byte) ([]byte, []int) {
	b := n.applyRules(input)
	out, align := b.out, b.align

	if n.opts.EscapeWhitespaces {
		out, align = escapeWhitespaces(out, align)
	}
	if n.opts.RemoveExtraWhitespaces {
		out, align = collapseWhitespaceRuns(out, align)
	}
	if n.opts.AddDummyPrefix {
		out, align = addDummyPrefix(out, align, n.opts.TreatWhitespaceAsSuffix)
	}
	return out, align
}

// applyRules performs §4.2 steps 1-3 over the whole input.
func (n *Normalizer) applyRules(input []byte) *buf {
	b := newBuf(0)
	i := 0
	for i < len(input) {
		if l, ok := n.userDefined.LongestMatch(input[i:]); ok {
			b.emit(input[i:i+l], i, i+l)
			i += l
			continue
		}

		if matches := n.trie.CommonPrefixSearch(input[i:], 0); len(matches) > 0 {
			best := matches[len(matches)-1]
			repl := replacementAt(n.replacements, best.Value)
			b.emit([]byte(repl), i, i+best.Length)
			i += best.Length
			continue
		}

		r, size := unicodeutil.DecodeRune(input[i:])
		var enc [4]byte
		var n2 int
		if r == unicodeutil.ReplacementChar && size == 1 {
			n2 = utf8.EncodeRune(enc[:], utf8.RuneError)
		} else {
			n2 = utf8.EncodeRune(enc[:], r)
		}
		b.emit(enc[:n2], i, i+size)
		i += size
	}
	return b
}

// escapeWhitespaces replaces every run of ASCII/ideographic space with one
// WhitespaceSentinel, per the escape_whitespaces option.
func escapeWhitespaces(data []byte, align []int) ([]byte, []int) {
	out := newBuf(align[0])
	i := 0
	for i < len(data) {
		r, size := utf8.DecodeRune(data[i:])
		if !unicodeutil.IsSpace(r) {
			out.emit(data[i:i+size], align[i], align[i+size])
			i += size
			continue
		}
		before := align[i]
		for i < len(data) {
			r, size = utf8.DecodeRune(data[i:])
			if !unicodeutil.IsSpace(r) {
				break
			}
			i += size
		}
		after := align[i]
		var enc [4]byte
		n := utf8.EncodeRune(enc[:], unicodeutil.WhitespaceSentinel)
		out.emit(enc[:n], before, after)
	}
	return out.out, out.align
}

// addDummyPrefix prepends (or, in suffix mode, appends) one
// WhitespaceSentinel, per the add_dummy_prefix option.
func addDummyPrefix(data []byte, align []int, suffix bool) ([]byte, []int) {
	var enc [4]byte
	n := utf8.EncodeRune(enc[:], unicodeutil.WhitespaceSentinel)
	if !suffix {
		out := newBuf(align[0])
		out.emit(enc[:n], align[0], align[0])
		out.out = append(out.out, data...)
		out.align = append(out.align, align[1:]...)
		return out.out, out.align
	}
	out := newBuf(align[0])
	out.out = append(out.out, data...)
	out.align = append(out.align, align[1:]...)
	last := align[len(align)-1]
	out.emit(enc[:n], last, last)
	return out.out, out.align
}

// collapseWhitespaceRuns collapses consecutive WhitespaceSentinel runes
// into one and strips a leading/trailing run entirely, per the
// remove_extra_whitespaces option.
func collapseWhitespaceRuns(data []byte, align []int) ([]byte, []int) {
	type run struct {
		start, end   int // byte range in data
		before, after int
		isSentinel   bool
	}
	var runs []run
	i := 0
	for i < len(data) {
		r, size := utf8.DecodeRune(data[i:])
		start := i
		sentinel := r == unicodeutil.WhitespaceSentinel
		for i < len(data) {
			r2, size2 := utf8.DecodeRune(data[i:])
			if (r2 == unicodeutil.WhitespaceSentinel) != sentinel {
				break
			}
			i += size2
			size = size2
		}
		_ = size
		runs = append(runs, run{start: start, end: i, before: align[start], after: align[i], isSentinel: sentinel})
	}

	out := &buf{align: []int{align[0]}}
	var enc [4]byte
	n := utf8.EncodeRune(enc[:], unicodeutil.WhitespaceSentinel)
	for idx, rn := range runs {
		if rn.isSentinel {
			if idx == len(runs)-1 {
				// The stripped trailing run still consumes its original
				// bytes, so the final boundary maps to the end of the run.
				out.align[len(out.align)-1] = rn.after
			}
			if idx == 0 || idx == len(runs)-1 {
				continue // strip leading/trailing sentinel runs entirely
			}
			out.emit(enc[:n], rn.before, rn.after)
			continue
		}
		// Untouched run: copy bytes and their exact original alignment.
		out.out = append(out.out, data[rn.start:rn.end]...)
		out.align = append(out.align, align[rn.start+1:rn.end+1]...)
	}
	return out.out, out.align
}
