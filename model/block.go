package model

import (
	"bytes"

	"github.com/bitcoin-sv/axiomd/errors"
)

// Block is one link in the chain. Height is implicit: it is genesis's
// height (0) plus the number of parents walked, not a field of Block
// itself — Slot instead records the VDF seed input and is expected, but
// not required, to track height 1:1 on the canonical chain.
type Block struct {
	Parent       Digest32
	Slot         uint64
	Timestamp    uint64 // unix seconds, wall-clock claim of the miner
	Miner        Address
	Transactions []*Transaction
	VDFProof     []byte
	ZKProof      []byte
	Nonce        uint64
}

// Bytes returns the canonical, deterministic serialization of b. It covers
// every field, including Transactions — unlike the upstream reference
// implementation's calculate_hash, which omits transactions from the block
// digest. See DESIGN.md for why that omission is not carried over here.
func (b *Block) Bytes() []byte {
	var buf bytes.Buffer
	buf.Write(b.Parent[:])
	writeUint64(&buf, b.Slot)
	writeUint64(&buf, b.Timestamp)
	buf.Write(b.Miner[:])

	writeUint32(&buf, uint32(len(b.Transactions)))
	for _, tx := range b.Transactions {
		writeBytes(&buf, tx.Bytes())
	}

	writeBytes(&buf, b.VDFProof)
	writeBytes(&buf, b.ZKProof)
	writeUint64(&buf, b.Nonce)

	return buf.Bytes()
}

// Hash returns the block digest: the SHA-256 of Bytes(). Proof-of-work is
// checked by comparing this digest, interpreted as a big-endian integer,
// against the LWMA target.
func (b *Block) Hash() Digest32 { return hashBytes(b.Bytes()) }

// NewBlockFromBytes parses a block previously produced by Bytes.
func NewBlockFromBytes(data []byte) (*Block, error) {
	r := bytes.NewReader(data)
	b := &Block{}

	if _, err := readFull(r, b.Parent[:]); err != nil {
		return nil, errors.New(errors.ERR_SERIALIZATION, "reading block.Parent", err)
	}

	var err error
	if b.Slot, err = readUint64(r); err != nil {
		return nil, errors.New(errors.ERR_SERIALIZATION, "reading block.Slot", err)
	}
	if b.Timestamp, err = readUint64(r); err != nil {
		return nil, errors.New(errors.ERR_SERIALIZATION, "reading block.Timestamp", err)
	}
	if _, err := readFull(r, b.Miner[:]); err != nil {
		return nil, errors.New(errors.ERR_SERIALIZATION, "reading block.Miner", err)
	}

	txCount, err := readUint32(r)
	if err != nil {
		return nil, errors.New(errors.ERR_SERIALIZATION, "reading block.Transactions count", err)
	}
	b.Transactions = make([]*Transaction, 0, txCount)
	for i := uint32(0); i < txCount; i++ {
		txBytes, err := readBytes(r)
		if err != nil {
			return nil, errors.New(errors.ERR_SERIALIZATION, "reading block.Transactions[%d]", err, i)
		}
		tx, err := NewTransactionFromBytes(txBytes)
		if err != nil {
			return nil, err
		}
		b.Transactions = append(b.Transactions, tx)
	}

	if b.VDFProof, err = readBytes(r); err != nil {
		return nil, errors.New(errors.ERR_SERIALIZATION, "reading block.VDFProof", err)
	}
	if b.ZKProof, err = readBytes(r); err != nil {
		return nil, errors.New(errors.ERR_SERIALIZATION, "reading block.ZKProof", err)
	}
	if b.Nonce, err = readUint64(r); err != nil {
		return nil, errors.New(errors.ERR_SERIALIZATION, "reading block.Nonce", err)
	}

	return b, nil
}

// Work returns this block's contribution to cumulative chain work, per
// spec.md's documented (not redesigned) metric: max(nonce, 1). See
// DESIGN.md Open Question (a).
func (b *Block) Work() uint64 {
	if b.Nonce == 0 {
		return 1
	}
	return b.Nonce
}
