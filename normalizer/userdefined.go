package normalizer

import (
	"unicode/utf8"

	"github.com/derekparker/trie"
)

// userDefinedMatcher performs longest-prefix matching against a small,
// mutable set of caller-supplied symbols (§4.2 step 1). Unlike the
// compiled, frozen rule trie (dat.DAT) used for normalization rules, this
// set is typically tiny and changes per model load, so it is backed by
// github.com/derekparker/trie rather than a hand-rolled structure.
type userDefinedMatcher struct {
	t      *trie.Trie
	maxLen int
}

func newUserDefinedMatcher(symbols []string) *userDefinedMatcher {
	if len(symbols) == 0 {
		return nil
	}
	m := &userDefinedMatcher{t: trie.New()}
	for _, s := range symbols {
		if s == "" {
			continue
		}
		m.t.Add(s, struct{}{})
		if len(s) > m.maxLen {
			m.maxLen = len(s)
		}
	}
	return m
}

// LongestMatch returns the byte length of the longest user-defined symbol
// that is a prefix of input, trying only valid UTF-8 rune boundaries.
func (m *userDefinedMatcher) LongestMatch(input []byte) (int, bool) {
	if m == nil || m.t == nil {
		return 0, false
	}
	limit := m.maxLen
	if limit > len(input) {
		limit = len(input)
	}
	for l := limit; l > 0; l-- {
		if l < len(input) && !utf8.RuneStart(input[l]) {
			continue
		}
		if _, ok := m.t.Find(string(input[:l])); ok {
			return l, true
		}
	}
	return 0, false
}
