package model

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/bitcoin-sv/axiomd/errors"
)

// EncodeBlocks serializes blocks as a length-prefixed sequence of canonical
// Bytes(), the same deterministic binary encoding the on-disk chain file
// uses (see persistence.Store), so gossiped chain suffixes and the
// persisted chain are byte-for-byte interchangeable.
func EncodeBlocks(blocks []*Block) []byte {
	var buf bytes.Buffer
	for _, b := range blocks {
		body := b.Bytes()
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
		buf.Write(lenBuf[:])
		buf.Write(body)
	}
	return buf.Bytes()
}

// DecodeBlocks parses a sequence of blocks previously produced by
// EncodeBlocks.
func DecodeBlocks(data []byte) ([]*Block, error) {
	r := bytes.NewReader(data)
	var blocks []*Block
	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.New(errors.ERR_SERIALIZATION, "reading gossiped block length", err)
		}
		n := binary.BigEndian.Uint32(lenBuf[:])

		body := make([]byte, n)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, errors.New(errors.ERR_SERIALIZATION, "reading gossiped block body", err)
		}

		b, err := NewBlockFromBytes(body)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}
