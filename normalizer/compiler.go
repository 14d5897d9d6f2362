// This file implements the rule compiler (C4): compiling a
// {source chars -> target chars} mapping into the (trie-blob, strings-blob)
// pair consumed by the normalizer (C3), per §4.3.
package normalizer

import (
	"sort"
	"unicode/utf8"

	"github.com/example/subword/dat"
	"github.com/npillmayer/schuko/tracing"
)

func compilerTracer() tracing.Trace {
	return tracing.Select("normalizer-compiler")
}

// Rule is one source-string -> replacement-string normalization rule,
// expressed as already-UTF-8-encoded strings.
type Rule struct {
	Source string
	Target string
}

// Compile builds a normalizer blob from a set of rules, following §4.3:
//  1. redundancy removal
//  2. sort by source
//  3. concatenate replacements into a \0-delimited table
//  4. build the trie over sources with table offsets as values
//  5. emit the length-prefixed blob
func Compile(rules map[string]string) ([]byte, error) {
	list := make([]Rule, 0, len(rules))
	for src, tgt := range rules {
		list = append(list, Rule{Source: src, Target: tgt})
	}
	list = removeRedundant(list)
	sort.Slice(list, func(i, j int) bool { return list[i].Source < list[j].Source })

	keys := make([][]byte, len(list))
	values := make([]int32, len(list))
	var table []byte
	for i, r := range list {
		keys[i] = []byte(r.Source)
		values[i] = int32(len(table))
		table = append(table, r.Target...)
		table = append(table, 0)
	}

	trie, err := dat.Build(keys, values)
	if err != nil {
		return nil, err
	}
	compilerTracer().Infof("compiled %d normalization rules (%d survived redundancy removal)", len(rules), len(list))
	return composeBlob(trie.Marshal(), table), nil
}

// Decompile recovers the {source -> target} rule set from a compiled blob,
// for round-trip testing (§4.3).
func Decompile(blob []byte) (map[string]string, error) {
	trieBlob, table, err := splitBlob(blob)
	if err != nil {
		return nil, err
	}
	trie, err := dat.Unmarshal(trieBlob)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, e := range trie.AllEntries() {
		out[string(e.Key)] = replacementAt(table, e.Value)
	}
	return out, nil
}

func replacementAt(table []byte, offset int32) string {
	end := offset
	for int(end) < len(table) && table[end] != 0 {
		end++
	}
	return string(table[offset:end])
}

// removeRedundant drops a rule ax->bx when a shorter surviving rule a->b
// already realizes it (bx == b + x), per §4.3 step 1. Rules are considered
// shortest-first so redundancy chains only through already-accepted rules.
func removeRedundant(rules []Rule) []Rule {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i].Source) != len(sorted[j].Source) {
			return len(sorted[i].Source) < len(sorted[j].Source)
		}
		return sorted[i].Source < sorted[j].Source
	})

	accepted := make(map[string]string, len(sorted))
	kept := make([]Rule, 0, len(sorted))
	for _, r := range sorted {
		if isRedundant(r, accepted) {
			continue
		}
		accepted[r.Source] = r.Target
		kept = append(kept, r)
	}
	return kept
}

func isRedundant(r Rule, accepted map[string]string) bool {
	for l := 1; l < len(r.Source); l++ {
		if !utf8.RuneStart(r.Source[l]) {
			continue
		}
		prefix := r.Source[:l]
		target, ok := accepted[prefix]
		if !ok {
			continue
		}
		suffix := r.Source[l:]
		if r.Target == target+suffix {
			return true
		}
	}
	return false
}
