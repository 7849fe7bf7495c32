package model

import (
	"bytes"
	"encoding/binary"

	"github.com/bitcoin-sv/axiomd/errors"
)

// Transaction moves value from one account to another. Accounts are
// identified by address, not by UTXO reference: applying a transaction
// debits From, credits To, and advances From's nonce by one.
type Transaction struct {
	From      Address
	To        Address
	Amount    uint64
	Fee       uint64
	Nonce     uint64
	ZKProof   []byte
	Signature []byte
}

// Nullifier returns H(from || nonce), the value the mempool and block
// validation use to reject duplicate/replayed transactions from the same
// sender at the same nonce.
func (t *Transaction) Nullifier() Digest32 {
	buf := make([]byte, AddressSize+8)
	copy(buf, t.From[:])
	binary.BigEndian.PutUint64(buf[AddressSize:], t.Nonce)
	return hashBytes(buf)
}

// Bytes returns the canonical, deterministic serialization of t.
func (t *Transaction) Bytes() []byte {
	var buf bytes.Buffer
	buf.Write(t.From[:])
	buf.Write(t.To[:])
	writeUint64(&buf, t.Amount)
	writeUint64(&buf, t.Fee)
	writeUint64(&buf, t.Nonce)
	writeBytes(&buf, t.ZKProof)
	writeBytes(&buf, t.Signature)
	return buf.Bytes()
}

// Digest returns the content hash of t's canonical serialization.
func (t *Transaction) Digest() Digest32 { return hashBytes(t.Bytes()) }

// NewTransactionFromBytes parses a transaction previously produced by Bytes.
func NewTransactionFromBytes(b []byte) (*Transaction, error) {
	r := bytes.NewReader(b)
	t := &Transaction{}

	if _, err := readFull(r, t.From[:]); err != nil {
		return nil, errors.New(errors.ERR_SERIALIZATION, "reading tx.From", err)
	}
	if _, err := readFull(r, t.To[:]); err != nil {
		return nil, errors.New(errors.ERR_SERIALIZATION, "reading tx.To", err)
	}

	var err error
	if t.Amount, err = readUint64(r); err != nil {
		return nil, errors.New(errors.ERR_SERIALIZATION, "reading tx.Amount", err)
	}
	if t.Fee, err = readUint64(r); err != nil {
		return nil, errors.New(errors.ERR_SERIALIZATION, "reading tx.Fee", err)
	}
	if t.Nonce, err = readUint64(r); err != nil {
		return nil, errors.New(errors.ERR_SERIALIZATION, "reading tx.Nonce", err)
	}
	if t.ZKProof, err = readBytes(r); err != nil {
		return nil, errors.New(errors.ERR_SERIALIZATION, "reading tx.ZKProof", err)
	}
	if t.Signature, err = readBytes(r); err != nil {
		return nil, errors.New(errors.ERR_SERIALIZATION, "reading tx.Signature", err)
	}

	return t, nil
}
