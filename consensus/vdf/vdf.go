// Package vdf implements the verifiable delay function used to time-gate
// block production. The compiled default is the sequential-hash family
// (see DESIGN.md Open Question (d)); Wesolowski is provided as an
// alternate Verifier in wesolowski.go for operators who rebuild with it
// selected, but the two are never both active on one network.
package vdf

import (
	"encoding/binary"

	"github.com/libsv/go-bt/v2/chainhash"
)

// Digest32 mirrors model.Digest32 without importing the model package, to
// keep this package free of a dependency on block/transaction types.
type Digest32 = chainhash.Hash

// Seed derives the VDF input from the parent block hash and the candidate
// slot: H(parent || slot_le). The little-endian slot encoding matches
// original_source's vdf.rs::evaluate exactly; it is an implementation
// detail invisible to callers as long as every node encodes it the same
// way, which this package guarantees by being the sole place slot is
// turned into bytes for VDF purposes.
func Seed(parent Digest32, slot uint64) Digest32 {
	var buf [40]byte
	copy(buf[:32], parent[:])
	binary.LittleEndian.PutUint64(buf[32:], slot)
	return chainhash.HashH(buf[:])
}

// Verifier checks a VDF proof for a given seed and iteration count.
type Verifier interface {
	// Evaluate computes the proof for seed over iterations sequential
	// steps. It is the slow path; only the miner calls it.
	Evaluate(seed Digest32, iterations uint64) []byte
	// Verify checks proof against seed and iterations. For the
	// sequential-hash family this costs the same as Evaluate — there is
	// no asymmetric shortcut, which is the point of this VDF family
	// choice: simplicity over succinct verification.
	Verify(seed Digest32, iterations uint64, proof []byte) bool
}

// SequentialHash is the protocol-default VDF: t sequential SHA-256
// applications starting from seed.
type SequentialHash struct{}

// Default returns the compiled-in VDF implementation.
func Default() Verifier { return SequentialHash{} }

func (SequentialHash) Evaluate(seed Digest32, iterations uint64) []byte {
	cur := seed
	for i := uint64(0); i < iterations; i++ {
		cur = chainhash.HashH(cur[:])
	}
	out := make([]byte, 32)
	copy(out, cur[:])
	return out
}

func (s SequentialHash) Verify(seed Digest32, iterations uint64, proof []byte) bool {
	if len(proof) != 32 {
		return false
	}
	want := s.Evaluate(seed, iterations)
	for i := range want {
		if want[i] != proof[i] {
			return false
		}
	}
	return true
}
