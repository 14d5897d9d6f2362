package dat

import (
	"reflect"
	"testing"
)

func build(t *testing.T, keys []string, values []int32) *DAT {
	t.Helper()
	byteKeys := make([][]byte, len(keys))
	for i, k := range keys {
		byteKeys[i] = []byte(k)
	}
	d, err := Build(byteKeys, values)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return d
}

func TestExactMatch(t *testing.T) {
	d := build(t, []string{"ab", "abc", "xy", "京都"}, []int32{1, 2, 3, 4})
	for _, tc := range []struct {
		key   string
		want  int32
		found bool
	}{
		{"ab", 1, true},
		{"abc", 2, true},
		{"xy", 3, true},
		{"京都", 4, true},
		{"a", 0, false},
		{"abcd", 0, false},
	} {
		got, ok := d.ExactMatch([]byte(tc.key))
		if ok != tc.found || (ok && got != tc.want) {
			t.Errorf("ExactMatch(%q) = (%d,%v), want (%d,%v)", tc.key, got, ok, tc.want, tc.found)
		}
	}
}

func TestCommonPrefixSearchOrderedByLength(t *testing.T) {
	d := build(t, []string{"ab", "abc", "xy", "京都"}, []int32{10, 20, 30, 40})

	matches := d.CommonPrefixSearch([]byte("abcd"), 0)
	if len(matches) != 2 || matches[0].Length != 2 || matches[1].Length != 3 {
		t.Fatalf("unexpected matches for abcd: %+v", matches)
	}
	if matches[0].Value != 10 || matches[1].Value != 20 {
		t.Fatalf("unexpected values for abcd: %+v", matches)
	}

	m2 := d.CommonPrefixSearch([]byte("京都大学"), 0)
	if len(m2) != 1 || m2[0].Length != len("京都") || m2[0].Value != 40 {
		t.Fatalf("unexpected matches for 京都大学: %+v", m2)
	}

	m3 := d.CommonPrefixSearch([]byte("東京大学"), 0)
	if len(m3) != 0 {
		t.Fatalf("expected no matches for 東京大学, got %+v", m3)
	}
}

func TestCommonPrefixSearchMaxResults(t *testing.T) {
	d := build(t, []string{"a", "ab", "abc", "abcd"}, []int32{1, 2, 3, 4})
	matches := d.CommonPrefixSearch([]byte("abcd"), 2)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
}

func TestBuildRejectsUnsortedOrDuplicateKeys(t *testing.T) {
	if _, err := Build([][]byte{[]byte("b"), []byte("a")}, []int32{1, 2}); err == nil {
		t.Fatal("expected error for unsorted keys")
	}
	if _, err := Build([][]byte{[]byte("a"), []byte("a")}, []int32{1, 2}); err == nil {
		t.Fatal("expected error for duplicate keys")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	d := build(t, []string{"a", "ab", "abc", "xy"}, []int32{1, 2, 3, 4})
	blob := d.Marshal()
	got, err := Unmarshal(blob)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(d, got) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", d, got)
	}
}

func TestAllEntriesRoundTrip(t *testing.T) {
	keys := []string{"a", "ab", "abc", "xy", "京都"}
	values := []int32{1, 2, 3, 4, 5}
	d := build(t, keys, values)
	entries := d.AllEntries()
	if len(entries) != len(keys) {
		t.Fatalf("expected %d entries, got %d", len(keys), len(entries))
	}
	got := make(map[string]int32, len(entries))
	for _, e := range entries {
		got[string(e.Key)] = e.Value
	}
	for i, k := range keys {
		if got[k] != values[i] {
			t.Errorf("entry %q = %d, want %d", k, got[k], values[i])
		}
	}
}
