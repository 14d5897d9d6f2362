// Package dat implements a frozen double-array trie: a static, sorted-key
// associative store over byte-string keys supporting exact_match_search and
// common_prefix_search (§4.1 of the tokenizer engine spec). The array
// layout is adapted from github.com/npillmayer/hyphenate/dat, generalized
// from a dense-rune alphabet keyed by BMP code units to a raw byte
// alphabet, and extended with a Leaf value array so a state can carry an
// arbitrary int32 payload instead of only a hyphenation-weight lookup.
package dat

import "github.com/npillmayer/schuko/tracing"

func tracer() tracing.Trace {
	return tracing.Select("dat")
}

// noValue marks a state that does not terminate any key.
const noValue = int32(-1)

// DAT is a frozen double-array trie over byte-string keys.
//
//   - Nodes/states are indices into Base/Check (0 is unused; Root is
//     typically 1).
//   - Transition: t := Base[s] + label; valid if Check[t] == s; next state
//     is t.
//   - label is a byte value shifted by one, in [1..256]; label 0 means
//     "not in the alphabet" and is never produced for a valid byte.
//   - Leaf[s] holds the value stored for the key ending at state s, or
//     noValue if s does not terminate any key.
type DAT struct {
	Root uint32

	Base  []int32 // len == N
	Check []int32 // len == N
	Leaf  []int32 // len == N, noValue when s is not terminal
}

// NStates returns the number of allocated slots in the arrays.
func (d *DAT) NStates() int { return len(d.Base) }

func encodeLabel(b byte) uint16 { return uint16(b) + 1 }

// Transition returns (nextState, ok). label must be in [1,256].
func (d *DAT) Transition(state uint32, label uint16) (uint32, bool) {
	if int(state) >= len(d.Base) || int(state) >= len(d.Check) {
		return 0, false
	}
	t := d.Base[state] + int32(label)
	if t <= 0 || int(t) >= len(d.Check) {
		return 0, false
	}
	if d.Check[t] != int32(state) {
		return 0, false
	}
	return uint32(t), true
}

// ExactMatch looks up key and returns its stored value, or (0, false) if
// key is not present in the trie.
func (d *DAT) ExactMatch(key []byte) (int32, bool) {
	state := d.Root
	for _, b := range key {
		next, ok := d.Transition(state, encodeLabel(b))
		if !ok {
			return 0, false
		}
		state = next
	}
	if int(state) >= len(d.Leaf) || d.Leaf[state] == noValue {
		return 0, false
	}
	return d.Leaf[state], true
}

// Match is one hit reported by CommonPrefixSearch.
type Match struct {
	Value  int32
	Length int // matched byte length, counted from the start of buf
}

// CommonPrefixSearch returns every trie key that is a prefix of buf,
// ordered by increasing matched length and truncated to at most maxResults
// entries (maxResults <= 0 means unlimited), per §4.1.
func (d *DAT) CommonPrefixSearch(buf []byte, maxResults int) []Match {
	var matches []Match
	state := d.Root
	for i, b := range buf {
		next, ok := d.Transition(state, encodeLabel(b))
		if !ok {
			break
		}
		state = next
		if int(state) < len(d.Leaf) && d.Leaf[state] != noValue {
			matches = append(matches, Match{Value: d.Leaf[state], Length: i + 1})
			if maxResults > 0 && len(matches) >= maxResults {
				break
			}
		}
	}
	return matches
}

// Stats reports capacity/density metrics for a built trie.
type Stats struct {
	UsedSlots  int
	TotalSlots int
	MaxStateID int
}

func (s Stats) FillRatio() float64 {
	if s.TotalSlots == 0 {
		return 0
	}
	return float64(s.UsedSlots) / float64(s.TotalSlots)
}

func (d *DAT) Stats() Stats {
	s := Stats{TotalSlots: d.NStates(), MaxStateID: int(d.Root)}
	if s.TotalSlots == 0 {
		return s
	}
	used := 0
	maxID := int(d.Root)
	for i, c := range d.Check {
		if uint32(i) == d.Root || c != 0 {
			used++
			if i > maxID {
				maxID = i
			}
		}
	}
	s.UsedSlots = used
	s.MaxStateID = maxID
	return s
}
