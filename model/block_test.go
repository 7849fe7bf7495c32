package model_test

import (
	"testing"

	"github.com/bitcoin-sv/axiomd/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionRoundTrip(t *testing.T) {
	from := model.Address{1}
	to := model.Address{2}

	tx := &model.Transaction{
		From:      from,
		To:        to,
		Amount:    1_000,
		Fee:       10,
		Nonce:     3,
		ZKProof:   []byte("zkproof"),
		Signature: []byte("sig"),
	}

	decoded, err := model.NewTransactionFromBytes(tx.Bytes())
	require.NoError(t, err)
	assert.Equal(t, tx, decoded)
	assert.Equal(t, tx.Digest(), decoded.Digest())
}

func TestTransactionNullifierIsStableAcrossFieldsThatDontMatter(t *testing.T) {
	from := model.Address{1}
	tx1 := &model.Transaction{From: from, To: model.Address{2}, Amount: 1, Fee: 1, Nonce: 5}
	tx2 := &model.Transaction{From: from, To: model.Address{9}, Amount: 999, Fee: 0, Nonce: 5}

	assert.Equal(t, tx1.Nullifier(), tx2.Nullifier(), "nullifier depends only on (from, nonce)")

	tx3 := &model.Transaction{From: from, To: model.Address{2}, Amount: 1, Fee: 1, Nonce: 6}
	assert.NotEqual(t, tx1.Nullifier(), tx3.Nullifier())
}

func TestBlockRoundTrip(t *testing.T) {
	tx := &model.Transaction{From: model.Address{1}, To: model.Address{2}, Amount: 5, Fee: 1, Nonce: 0}

	b := &model.Block{
		Parent:       model.GenesisHash,
		Slot:         42,
		Timestamp:    1_700_000_000,
		Miner:        model.Address{7},
		Transactions: []*model.Transaction{tx},
		VDFProof:     []byte("proof"),
		ZKProof:      make([]byte, 128),
		Nonce:        12345,
	}

	decoded, err := model.NewBlockFromBytes(b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, b.Hash(), decoded.Hash())
	assert.Equal(t, b.Transactions[0].Digest(), decoded.Transactions[0].Digest())
}

func TestBlockHashCoversTransactions(t *testing.T) {
	base := &model.Block{Parent: model.GenesisHash, Slot: 1, Miner: model.Address{1}}
	withTx := &model.Block{
		Parent: model.GenesisHash,
		Slot:   1,
		Miner:  model.Address{1},
		Transactions: []*model.Transaction{
			{From: model.Address{1}, To: model.Address{2}, Amount: 1, Nonce: 0},
		},
	}

	assert.NotEqual(t, base.Hash(), withTx.Hash(),
		"block digest must change when transactions change, unlike the reference implementation's calculate_hash")
}

func TestBlockWork(t *testing.T) {
	assert.Equal(t, uint64(1), (&model.Block{Nonce: 0}).Work())
	assert.Equal(t, uint64(7), (&model.Block{Nonce: 7}).Work())
}

func TestGenesisAnchorIsDeterministic(t *testing.T) {
	a := model.GenesisAnchor()
	b := model.GenesisAnchor()
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Equal(t, model.GenesisHash, a.Hash())
}

func TestAddressFromHexRejectsWrongLength(t *testing.T) {
	_, err := model.AddressFromHex("abcd")
	assert.Error(t, err)
}
