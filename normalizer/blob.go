package normalizer

import (
	"encoding/binary"
	"fmt"
)

// composeBlob lays out the normalizer blob per §6:
// u32 trie_blob_length (LE) || trie_blob || replacements.
func composeBlob(trieBlob []byte, replacements []byte) []byte {
	out := make([]byte, 4+len(trieBlob)+len(replacements))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(trieBlob)))
	copy(out[4:], trieBlob)
	copy(out[4+len(trieBlob):], replacements)
	return out
}

// splitBlob is the inverse of composeBlob.
func splitBlob(blob []byte) (trieBlob, replacements []byte, err error) {
	if len(blob) < 4 {
		return nil, nil, fmt.Errorf("normalizer blob too short: %d bytes", len(blob))
	}
	n := binary.LittleEndian.Uint32(blob[0:4])
	if uint32(len(blob)) < 4+n {
		return nil, nil, fmt.Errorf("normalizer blob truncated: have %d bytes, need %d", len(blob), 4+n)
	}
	return blob[4 : 4+n], blob[4+n:], nil
}
