package storage

import "encoding/binary"

// Key schema, mirroring the prefix-plus-big-endian-counter convention the
// consensus block store used for blocks/certs:
//
//	seq:<8-byte-be-sequence>   -> gob(LoggedAction)
//	snap:<8-byte-be-sequence>  -> canonical state snapshot bytes
//	meta:tip                   -> 32-byte hash chain tip
//	meta:sequence               -> 8-byte-be last committed sequence

const (
	prefixAction   = "seq:"
	prefixSnapshot = "snap:"
	keyTipHash     = "meta:tip"
	keySequence    = "meta:sequence"
)

func seqBytes(sequence uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], sequence)
	return b[:]
}

func actionKey(sequence uint64) []byte {
	return append([]byte(prefixAction), seqBytes(sequence)...)
}

func snapshotKey(sequence uint64) []byte {
	return append([]byte(prefixSnapshot), seqBytes(sequence)...)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
