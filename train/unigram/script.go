package unigram

import (
	"math"
	"unicode"

	"github.com/example/subword/unicodeutil"
)

func logFn(x float64) float64 { return math.Log(x) }

// scriptOf classifies r into one of Go's unicode.Scripts tables, the
// natural Go analogue of an ICU-backed script table (supplementing
// split_by_unicode_script, whose source used ICU directly).
func scriptOf(r int32) string {
	if r == unicodeutil.WhitespaceSentinel {
		return "Common"
	}
	for name, table := range unicode.Scripts {
		if unicode.Is(table, rune(r)) {
			return name
		}
	}
	return "Unknown"
}

// crossesScriptBoundary reports whether s mixes more than one non-Common
// unicode script, per split_by_unicode_script (§4.6).
func crossesScriptBoundary(s []int32) bool {
	seen := ""
	for _, r := range s {
		sc := scriptOf(r)
		if sc == "Common" {
			continue
		}
		if seen == "" {
			seen = sc
		} else if seen != sc {
			return true
		}
	}
	return false
}

// crossesNumberBoundary reports whether s mixes decimal digits with
// non-digit letters, per split_by_number (§4.6).
func crossesNumberBoundary(s []int32) bool {
	hasDigit, hasLetter := false, false
	for _, r := range s {
		switch {
		case unicode.IsDigit(rune(r)):
			hasDigit = true
		case unicode.IsLetter(rune(r)):
			hasLetter = true
		}
	}
	return hasDigit && hasLetter
}

// crossesWhitespaceBoundary reports whether s contains the whitespace
// sentinel anywhere other than its first or last position, per
// split_by_whitespace (§4.6). isValidPiece already rejects interior
// placement unconditionally, so this check adds no further restriction.
func crossesWhitespaceBoundary(s []int32) bool {
	for i, r := range s {
		if r == unicodeutil.WhitespaceSentinel && i != 0 && i != len(s)-1 {
			return true
		}
	}
	return false
}
