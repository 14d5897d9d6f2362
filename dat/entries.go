package dat

// Entry is one decoded (key, value) pair recovered by AllEntries.
type Entry struct {
	Key   []byte
	Value int32
}

// AllEntries reconstructs every stored key by walking parent links back to
// Root for each terminal state. It exists to support round-trip
// decompilation of a compiled rule blob (§4.3 "Decompilation is the
// inverse for round-trip testing") and is not used on the hot inference
// path.
func (d *DAT) AllEntries() []Entry {
	n := d.NStates()
	parent := make([]int32, n)
	label := make([]byte, n)
	for t := 0; t < n; t++ {
		if uint32(t) == d.Root || d.Check[t] == 0 {
			parent[t] = -1
			continue
		}
		p := d.Check[t]
		parent[t] = p
		label[t] = byte(int32(t) - d.Base[p] - 1)
	}

	var entries []Entry
	for t := 0; t < n; t++ {
		if d.Leaf[t] == noValue {
			continue
		}
		var rev []byte
		s := int32(t)
		for s >= 0 && uint32(s) != d.Root {
			rev = append(rev, label[s])
			s = parent[s]
		}
		key := make([]byte, len(rev))
		for i, b := range rev {
			key[len(rev)-1-i] = b
		}
		entries = append(entries, Entry{Key: key, Value: d.Leaf[t]})
	}
	return entries
}
