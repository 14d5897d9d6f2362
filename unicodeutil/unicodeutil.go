// Package unicodeutil provides the low-level codepoint decoding and
// longest-match helpers shared by the normalizer, the lattice, and the
// trainers. It corresponds to the "UTF-8/Unicode util" component of the
// tokenizer engine.
package unicodeutil

import "unicode/utf8"

// ReplacementChar is emitted in place of malformed UTF-8, per §4.2 step 3.
const ReplacementChar = utf8.RuneError

// WhitespaceSentinel is the canonical inter-piece whitespace marker U+2581.
const WhitespaceSentinel = '▁'

// DecodeRune decodes the rune at the start of s, returning its width in
// bytes. Malformed UTF-8 decodes to ReplacementChar with width 1, matching
// §4.2 step 3 exactly (one-byte advance on error).
func DecodeRune(s []byte) (r rune, size int) {
	if len(s) == 0 {
		return 0, 0
	}
	r, size = utf8.DecodeRune(s)
	if r == utf8.RuneError && size <= 1 {
		return ReplacementChar, 1
	}
	return r, size
}

// Valid reports whether b is well-formed UTF-8.
func Valid(b []byte) bool {
	return utf8.Valid(b)
}

// CodepointBoundaries returns the byte offset of every unicode codepoint
// boundary in s, including a trailing sentinel equal to len(s). It is the
// basis for Lattice.surface (§4.4): surface[p] gives the byte offset of
// unicode position p, surface[L] is len(s).
func CodepointBoundaries(s []byte) []int {
	bounds := make([]int, 0, len(s)+1)
	i := 0
	for i < len(s) {
		bounds = append(bounds, i)
		_, size := DecodeRune(s[i:])
		if size <= 0 {
			size = 1
		}
		i += size
	}
	bounds = append(bounds, len(s))
	return bounds
}

// RuneCount returns the number of unicode codepoints in s under the same
// malformed-byte handling as DecodeRune (one codepoint per bad byte).
func RuneCount(s []byte) int {
	n := 0
	for i := 0; i < len(s); {
		_, size := DecodeRune(s[i:])
		if size <= 0 {
			size = 1
		}
		i += size
		n++
	}
	return n
}

// IsSpace reports whether r is one of the whitespace codepoints the
// normalizer collapses into WhitespaceSentinel: ASCII space and the CJK
// ideographic space U+3000.
func IsSpace(r rune) bool {
	return r == ' ' || r == '　'
}

// LongestCommonPrefixLen returns the length, in bytes, of the common prefix
// of a and b, without splitting a multi-byte rune.
func LongestCommonPrefixLen(a, b []byte) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	for n > 0 && ((n < len(a) && !utf8.RuneStart(a[n])) || (n < len(b) && !utf8.RuneStart(b[n]))) {
		n--
	}
	return n
}
