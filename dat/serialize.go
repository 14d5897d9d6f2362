package dat

import (
	"encoding/binary"
	"fmt"
)

// Marshal encodes d as a self-contained, memory-mappable blob: a u32 state
// count followed by Root, then Base, Check, Leaf as little-endian int32
// arrays. This is the "trie_blob" referenced by §4.2/§4.3.
func (d *DAT) Marshal() []byte {
	n := d.NStates()
	buf := make([]byte, 8+4+n*4*3)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(n))
	binary.LittleEndian.PutUint32(buf[4:8], d.Root)
	off := 8
	for _, v := range d.Base {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(v))
		off += 4
	}
	for _, v := range d.Check {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(v))
		off += 4
	}
	for _, v := range d.Leaf {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(v))
		off += 4
	}
	return buf
}

// Unmarshal decodes a blob produced by Marshal.
func Unmarshal(buf []byte) (*DAT, error) {
	if len(buf) < 8 {
		return nil, fmt.Errorf("dat: blob too short: %d bytes", len(buf))
	}
	n := int(binary.LittleEndian.Uint32(buf[0:4]))
	root := binary.LittleEndian.Uint32(buf[4:8])
	want := 8 + n*4*3
	if len(buf) < want {
		return nil, fmt.Errorf("dat: blob truncated: have %d bytes, want %d", len(buf), want)
	}
	d := &DAT{Root: root, Base: make([]int32, n), Check: make([]int32, n), Leaf: make([]int32, n)}
	off := 8
	for i := 0; i < n; i++ {
		d.Base[i] = int32(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
	}
	for i := 0; i < n; i++ {
		d.Check[i] = int32(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
	}
	for i := 0; i < n; i++ {
		d.Leaf[i] = int32(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
	}
	return d, nil
}
