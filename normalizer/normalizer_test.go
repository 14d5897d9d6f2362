package normalizer

import (
	"reflect"
	"testing"
)

func mustLoad(t *testing.T, rules map[string]string, opts Options) *Normalizer {
	t.Helper()
	blob, err := Compile(rules)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	n, err := Load(blob, opts)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return n
}

func TestNormalizeCollapseAndDummyPrefix(t *testing.T) {
	// Scenario 1 from §8: " ABC " with add_dummy_prefix + escape_whitespaces +
	// remove_extra_whitespaces ⇒ "▁ABC".
	n := mustLoad(t, map[string]string{}, Options{
		AddDummyPrefix:         true,
		EscapeWhitespaces:      true,
		RemoveExtraWhitespaces: true,
	})
	got, align := n.Normalize([]byte(" ABC "))
	if string(got) != "▁ABC" {
		t.Fatalf("Normalize(%q) = %q, want %q", " ABC ", got, "▁ABC")
	}
	if align[0] != 0 || align[len(align)-1] != len(" ABC ") {
		t.Fatalf("alignment endpoints wrong: %v", align)
	}
}

func TestNormalizeFullwidthDigitsWithAlignment(t *testing.T) {
	// Scenario 2 from §8: "①②③" ⇒ "▁123" with the given alignment vector.
	n := mustLoad(t, map[string]string{
		"①": "1",
		"②": "2",
		"③": "3",
	}, Options{AddDummyPrefix: true})
	got, align := n.Normalize([]byte("①②③"))
	if string(got) != "▁123" {
		t.Fatalf("Normalize = %q, want %q", got, "▁123")
	}
	want := []int{0, 0, 0, 0, 3, 6, 9}
	if !reflect.DeepEqual(align, want) {
		t.Fatalf("alignment = %v, want %v", align, want)
	}
}

func TestNormalizeMonotoneAlignment(t *testing.T) {
	n := mustLoad(t, map[string]string{"ab": "X", "c": "Y"}, Options{})
	inputs := []string{"", "abc", "abcabc", "z", "a b c"}
	for _, in := range inputs {
		_, align := n.Normalize([]byte(in))
		for i := 1; i < len(align); i++ {
			if align[i] < align[i-1] {
				t.Fatalf("alignment not monotone for %q: %v", in, align)
			}
		}
		if len(align) > 0 && align[len(align)-1] != len(in) {
			t.Fatalf("alignment tail wrong for %q: got %d want %d", in, align[len(align)-1], len(in))
		}
	}
}

func TestNormalizeMalformedUTF8(t *testing.T) {
	n := mustLoad(t, map[string]string{}, Options{})
	got, align := n.Normalize([]byte{0x41, 0xff, 0x42})
	if string(got) != "A�B" {
		t.Fatalf("Normalize malformed input = %q", got)
	}
	if align[len(align)-1] != 3 {
		t.Fatalf("alignment tail = %d, want 3", align[len(align)-1])
	}
}

func TestNormalizeLongestMatchOverShorterRule(t *testing.T) {
	// §8 "Normalizer longest-match": rules {a->b, ac->d} must prefer "d".
	n := mustLoad(t, map[string]string{"a": "b", "ac": "d"}, Options{})
	got, _ := n.Normalize([]byte("acx"))
	if string(got) != "dx" {
		t.Fatalf("Normalize(acx) = %q, want %q", got, "dx")
	}
}

func TestUserDefinedSymbolTakesPriorityOverRule(t *testing.T) {
	n := mustLoad(t, map[string]string{"ab": "X"}, Options{})
	n.SetUserDefinedSymbols([]string{"ab"})
	got, _ := n.Normalize([]byte("abc"))
	if string(got) != "abc" {
		t.Fatalf("Normalize with user-defined symbol = %q, want verbatim %q", got, "abc")
	}
}

func TestCompileDecompileRoundTrip(t *testing.T) {
	rules := map[string]string{"a": "1", "bb": "22", "京都": "kyoto"}
	blob, err := Compile(rules)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got, err := Decompile(blob)
	if err != nil {
		t.Fatalf("Decompile: %v", err)
	}
	if !reflect.DeepEqual(got, rules) {
		t.Fatalf("round trip = %v, want %v", got, rules)
	}
}

func TestRemoveRedundantRule(t *testing.T) {
	// "a" -> "b" makes "ac" -> "bc" redundant.
	kept := removeRedundant([]Rule{
		{Source: "a", Target: "b"},
		{Source: "ac", Target: "bc"},
		{Source: "ad", Target: "zz"},
	})
	if len(kept) != 2 {
		t.Fatalf("expected 2 surviving rules, got %d: %+v", len(kept), kept)
	}
	for _, r := range kept {
		if r.Source == "ac" {
			t.Fatalf("expected redundant rule 'ac' to be dropped")
		}
	}
}
