package state

import (
	"crypto/sha256"
	"encoding/binary"
)

// genesisHashSeed seeds the chain before any step has been applied.
const genesisHashSeed = "spotbook:genesis:v1"

// Hasher chains per-step state digests: hash[n] = SHA-256(hash[n-1] ||
// sequence || snapshot-digest). This is additive to Snapshot()'s byte
// format — a host batching steps for a proof wants a running commitment
// over the sequence, not just the final flat snapshot.
type Hasher struct {
	prevHash [32]byte
}

// NewHasher returns a chain seeded at genesis.
func NewHasher() *Hasher {
	return &Hasher{prevHash: sha256.Sum256([]byte(genesisHashSeed))}
}

// Chain folds sequence and stateDigest into the chain and returns the new
// tip, which becomes prevHash for the next call.
func (h *Hasher) Chain(sequence uint64, stateDigest []byte) [32]byte {
	hasher := sha256.New()
	hasher.Write(h.prevHash[:])

	var seqBuf [8]byte
	binary.LittleEndian.PutUint64(seqBuf[:], sequence)
	hasher.Write(seqBuf[:])

	hasher.Write(stateDigest)

	var sum [32]byte
	copy(sum[:], hasher.Sum(nil))
	h.prevHash = sum
	return sum
}

// PrevHash returns the current chain tip.
func (h *Hasher) PrevHash() [32]byte { return h.prevHash }
