package model

import (
	"github.com/bitcoin-sv/axiomd/errors"
	"github.com/libsv/go-bt/v2/chainhash"
)

// Digest32 is the 32-byte hash type used for block and transaction
// identifiers throughout axiomd. Reusing chainhash.Hash, rather than a bare
// [32]byte, gives canonical hex formatting and parsing for free.
type Digest32 = chainhash.Hash

var errInvalidAddressLength = errors.New(errors.ERR_INVALID_ARGUMENT, "address must be %d bytes", AddressSize)

// hashBytes returns the single SHA-256 digest of b, matching the hashing
// convention the rest of the chainhash-based codebase uses for content
// addressing (as opposed to chainhash.DoubleHashH's Bitcoin double-SHA256).
func hashBytes(b []byte) Digest32 {
	return chainhash.HashH(b)
}
