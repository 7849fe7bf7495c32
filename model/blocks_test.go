package model_test

import (
	"testing"

	"github.com/bitcoin-sv/axiomd/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeBlocksRoundTrip(t *testing.T) {
	b1 := &model.Block{Parent: model.GenesisHash, Slot: 1, Miner: model.Address{1}, VDFProof: []byte("p1"), ZKProof: []byte("z1")}
	b2 := &model.Block{Parent: b1.Hash(), Slot: 2, Miner: model.Address{2}, VDFProof: []byte("p2"), ZKProof: []byte("z2")}

	encoded := model.EncodeBlocks([]*model.Block{b1, b2})
	decoded, err := model.DecodeBlocks(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, b1.Hash(), decoded[0].Hash())
	assert.Equal(t, b2.Hash(), decoded[1].Hash())
}

func TestDecodeBlocksEmpty(t *testing.T) {
	decoded, err := model.DecodeBlocks(nil)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}
