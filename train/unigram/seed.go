package unigram

import (
	"sort"

	"github.com/example/subword/unicodeutil"
)

const sentinel = int32(0) // separates concatenated sentences in the corpus array (§4.6)

// candidate is a scored repeated substring discovered from the suffix
// array's LCP-interval structure, before log-normalization (§4.6).
type candidate struct {
	runes []int32
	freq  int
	score float64
}

// lcpInterval is one internal suffix-tree node recovered from the LCP
// array via a monotonic stack, per the enhanced-suffix-array technique
// (§4.6's "enhanced suffix array" without requiring SA-IS/child tables).
type lcpInterval struct {
	height     int
	start, end int // inclusive range into the suffix array
}

// enumerateLCPIntervals recovers every internal suffix-tree node (as an
// LCP interval) in O(n) from the LCP array, using the standard
// stack-based grouping algorithm.
func enumerateLCPIntervals(lcp []int) []lcpInterval {
	type frame struct {
		height, start int
	}
	var stack []frame
	stack = append(stack, frame{0, 0})
	var out []lcpInterval

	n := len(lcp)
	for i := 1; i < n; i++ {
		start := i - 1
		for len(stack) > 0 && stack[len(stack)-1].height > lcp[i] {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			out = append(out, lcpInterval{height: top.height, start: top.start, end: i - 1})
			start = top.start
		}
		if len(stack) == 0 || stack[len(stack)-1].height < lcp[i] {
			stack = append(stack, frame{lcp[i], start})
		}
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.height > 0 {
			out = append(out, lcpInterval{height: top.height, start: top.start, end: n - 1})
		}
	}
	return out
}

// SeedOptions parameterizes make_seed_pieces, mirroring the relevant
// TrainerSpec fields of §6.
type SeedOptions struct {
	MaxPieceLength          int
	SeedSize                int
	TreatWhitespaceAsSuffix bool
	SplitByUnicodeScript    bool
	SplitByNumber           bool
	SplitByWhitespace       bool
}

// MakeSeedPieces builds the initial large seed vocabulary from the
// concatenated, sentinel-separated corpus, per §4.6: every observed single
// character, plus the top SeedSize substrings by frequency×length,
// filtered by isValidPiece and log-normalized into scores.
func MakeSeedPieces(corpus [][]int32, opts SeedOptions) []SeedPiece {
	concat := concatenateWithSentinel(corpus)
	sa := buildSuffixArray(concat)
	lcp := kasaiLCP(concat, sa)
	intervals := enumerateLCPIntervals(lcp)

	singles := map[int32]int{}
	for _, r := range concat {
		if r == sentinel {
			continue
		}
		singles[r]++
	}

	var candidates []candidate
	for _, iv := range intervals {
		length := iv.height
		if length <= 1 {
			continue // singles are seeded separately, below
		}
		start := sa[iv.start]
		substr := concat[start : start+length]
		if containsSentinel(substr) {
			continue
		}
		if !isValidPiece(substr, opts) {
			continue
		}
		freq := iv.end - iv.start + 1
		cp := make([]int32, length)
		copy(cp, substr)
		candidates = append(candidates, candidate{runes: cp, freq: freq, score: float64(freq) * float64(length)})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > opts.SeedSize {
		candidates = candidates[:opts.SeedSize]
	}

	seedSet := make(map[string]*SeedPiece)
	for r, freq := range singles {
		key := string(rune(r))
		seedSet[key] = &SeedPiece{Runes: []int32{r}, RawScore: float64(freq)}
	}
	for _, c := range candidates {
		key := runesKey(c.runes)
		if _, dup := seedSet[key]; dup {
			continue
		}
		seedSet[key] = &SeedPiece{Runes: c.runes, RawScore: c.score}
	}

	out := make([]SeedPiece, 0, len(seedSet))
	total := 0.0
	for _, p := range seedSet {
		total += p.RawScore
	}
	logTotal := logOrZero(total)
	for _, p := range seedSet {
		p.Score = float32(logOrZero(p.RawScore) - logTotal)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// SeedPiece is one entry of the initial large vocabulary, before EM.
type SeedPiece struct {
	Runes    []int32
	RawScore float64
	Score    float32
}

func concatenateWithSentinel(corpus [][]int32) []int32 {
	total := 0
	for _, s := range corpus {
		total += len(s) + 1
	}
	out := make([]int32, 0, total)
	for _, s := range corpus {
		out = append(out, s...)
		out = append(out, sentinel)
	}
	return out
}

func containsSentinel(s []int32) bool {
	for _, r := range s {
		if r == sentinel {
			return true
		}
	}
	return false
}

func runesKey(rs []int32) string {
	b := make([]rune, len(rs))
	for i, r := range rs {
		b[i] = rune(r)
	}
	return string(b)
}

func logOrZero(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return logFn(x)
}

// isValidPiece rejects candidate substrings unfit to be a vocabulary
// piece, per §4.6's is_valid_piece.
func isValidPiece(s []int32, opts SeedOptions) bool {
	if opts.MaxPieceLength > 0 && len(s) > opts.MaxPieceLength {
		return false
	}
	if len(s) == 0 {
		return false
	}

	ws := unicodeutil.WhitespaceSentinel
	hasLeadingWS := s[0] == ws
	hasTrailingWS := s[len(s)-1] == ws
	if opts.TreatWhitespaceAsSuffix {
		if hasLeadingWS {
			return false // whitespace may only appear as the trailing sentinel in suffix mode
		}
	} else {
		if hasTrailingWS && len(s) > 1 {
			return false // whitespace may only appear as the leading sentinel in prefix mode
		}
	}
	for i := 1; i < len(s)-1; i++ {
		if s[i] == ws {
			return false // interior whitespace never allowed
		}
	}

	if opts.SplitByUnicodeScript && crossesScriptBoundary(s) {
		return false
	}
	if opts.SplitByNumber && crossesNumberBoundary(s) {
		return false
	}
	if opts.SplitByWhitespace && crossesWhitespaceBoundary(s) {
		return false
	}
	return true
}
