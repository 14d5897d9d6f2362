package dat

import (
	"fmt"
	"sort"
)

// buildNode is the mutable trie representation used only during Build; it
// is discarded once the double array is frozen.
type buildNode struct {
	state    uint32
	terminal bool
	value    int32
	children map[uint16]*buildNode
}

// Build constructs a frozen double-array trie over the given byte-string
// keys and their values. keys must already be sorted lexicographically and
// free of duplicates, per §4.1 ("Build is offline: keys must be
// pre-sorted... duplicate keys are an error").
func Build(keys [][]byte, values []int32) (*DAT, error) {
	if len(keys) != len(values) {
		return nil, errNewf("keys and values length mismatch: %d vs %d", len(keys), len(values))
	}
	for i := 1; i < len(keys); i++ {
		if compareBytes(keys[i-1], keys[i]) >= 0 {
			return nil, errNewf("keys not strictly sorted or duplicate at index %d: %q >= %q", i, keys[i-1], keys[i])
		}
	}

	root := &buildNode{state: 1, children: make(map[uint16]*buildNode)}
	nextState := uint32(2)
	for i, key := range keys {
		n := root
		for _, b := range key {
			label := encodeLabel(b)
			child := n.children[label]
			if child == nil {
				child = &buildNode{state: nextState, children: make(map[uint16]*buildNode)}
				nextState++
				n.children[label] = child
			}
			n = child
		}
		n.terminal = true
		n.value = values[i]
	}

	d := &DAT{Root: 1}
	d.Base = make([]int32, 2)
	d.Check = make([]int32, 2)
	queue := []*buildNode{root}
	for q := 0; q < len(queue); q++ {
		n := queue[q]
		if len(n.children) == 0 {
			continue
		}
		labels := sortedLabels(n.children)
		base := findBase(d.Check, labels)
		ensureIndex(d, base+int(labels[len(labels)-1]))
		d.Base[n.state] = int32(base)
		for _, label := range labels {
			t := base + int(label)
			ensureIndex(d, t)
			child := n.children[label]
			child.state = uint32(t)
			d.Check[t] = int32(n.state)
			queue = append(queue, child)
		}
	}

	d.Leaf = make([]int32, len(d.Base))
	for i := range d.Leaf {
		d.Leaf[i] = noValue
	}
	d.Leaf[root.state] = leafOf(root)
	for _, n := range queue {
		d.Leaf[n.state] = leafOf(n)
	}
	tracer().Infof("dat build: keys=%d states=%d fill=%.3f", len(keys), d.NStates(), d.Stats().FillRatio())
	return d, nil
}

func leafOf(n *buildNode) int32 {
	if n.terminal {
		return n.value
	}
	return noValue
}

func sortedLabels(children map[uint16]*buildNode) []uint16 {
	labels := make([]uint16, 0, len(children))
	for label := range children {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

// findBase finds the smallest base > 0 such that base+label is free (Check
// == 0) for every label in labels. Linear scan; adequate for offline,
// non-performance-critical builds.
func findBase(check []int32, labels []uint16) int {
	for base := 1; ; base++ {
		ok := true
		for _, label := range labels {
			t := base + int(label)
			if t < len(check) && check[t] != 0 {
				ok = false
				break
			}
		}
		if ok {
			return base
		}
	}
}

func ensureIndex(d *DAT, idx int) {
	if idx < len(d.Base) {
		return
	}
	grow := idx + 1 - len(d.Base)
	d.Base = append(d.Base, make([]int32, grow)...)
	d.Check = append(d.Check, make([]int32, grow)...)
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}

func errNewf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
