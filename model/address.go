package model

import "encoding/hex"

// AddressSize is the width, in bytes, of an account address.
const AddressSize = 20

// Address identifies an account in State. It carries no key material of its
// own; signature verification over an Address is delegated to the
// sigverify.Verifier seam.
type Address [AddressSize]byte

// ZeroAddress is the reserved coinbase-source address.
var ZeroAddress = Address{}

func (a Address) String() string { return hex.EncodeToString(a[:]) }

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool { return a == ZeroAddress }

// AddressFromHex parses a hex-encoded address.
func AddressFromHex(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, err
	}
	if len(b) != AddressSize {
		return a, errInvalidAddressLength
	}
	copy(a[:], b)
	return a, nil
}
