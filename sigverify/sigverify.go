// Package sigverify defines the boolean predicate seam the mempool and
// chain use to gate transaction admission on a valid sender signature.
// The real signing scheme (classical or post-quantum) is out of scope for
// this core; see DESIGN.md. Supplemented from original_source's
// crypto/quantum_signatures.rs, whose signature-predicate shape the
// distilled spec dropped but whose seam it still implies via
// Transaction.Signature.
package sigverify

import "github.com/bitcoin-sv/axiomd/model"

// Verifier checks that signature authorizes message on behalf of from.
// Implementations are swappable; the core only ever calls this interface.
type Verifier interface {
	Verify(from model.Address, message []byte, signature []byte) bool
}

// Default is the stand-in verifier used until a real signature backend is
// compiled in: it requires a non-empty signature and nothing more,
// matching the opaque-predicate contract spec.md describes for this seam.
type Default struct{}

func (Default) Verify(_ model.Address, _ []byte, signature []byte) bool {
	return len(signature) > 0
}
