package state_test

import (
	"testing"

	"github.com/bitcoin-sv/axiomd/errors"
	"github.com/bitcoin-sv/axiomd/model"
	"github.com/bitcoin-sv/axiomd/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyTxDebitsAndCredits(t *testing.T) {
	s := state.New()
	alice := model.Address{1}
	bob := model.Address{2}
	s.Credit(alice, 1_000)

	tx := &model.Transaction{From: alice, To: bob, Amount: 100, Fee: 5, Nonce: 0}
	require.NoError(t, s.ApplyTx(tx))

	assert.Equal(t, uint64(895), s.Balance(alice))
	assert.Equal(t, uint64(100), s.Balance(bob))
	assert.Equal(t, uint64(1), s.Nonce(alice))
}

func TestApplyTxRejectsInsufficientBalance(t *testing.T) {
	s := state.New()
	alice := model.Address{1}
	tx := &model.Transaction{From: alice, To: model.Address{2}, Amount: 100, Fee: 0, Nonce: 0}

	err := s.ApplyTx(tx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientBalance))
}

func TestApplyTxRejectsWrongNonce(t *testing.T) {
	s := state.New()
	alice := model.Address{1}
	s.Credit(alice, 1_000)

	tx := &model.Transaction{From: alice, To: model.Address{2}, Amount: 10, Nonce: 5}
	err := s.ApplyTx(tx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidNonce))
}

func TestSnapshotRollback(t *testing.T) {
	s := state.New()
	alice := model.Address{1}
	s.Credit(alice, 1_000)

	snap := s.Snapshot()
	require.NoError(t, s.ApplyTx(&model.Transaction{From: alice, To: model.Address{2}, Amount: 500, Nonce: 0}))
	assert.Equal(t, uint64(500), s.Balance(alice))

	s.Rollback(snap)
	assert.Equal(t, uint64(1_000), s.Balance(alice))
	assert.Equal(t, uint64(0), s.Nonce(alice))
}

func TestCloneIsIndependentOfOriginal(t *testing.T) {
	s := state.New()
	alice := model.Address{1}
	s.Credit(alice, 1_000)

	clone := s.Clone()
	require.NoError(t, clone.ApplyTx(&model.Transaction{From: alice, To: model.Address{2}, Amount: 500, Nonce: 0}))

	assert.Equal(t, uint64(1_000), s.Balance(alice), "mutating the clone must not affect the original")
	assert.Equal(t, uint64(500), clone.Balance(alice))
}

func TestRebuildReplaysBlocksAndCreditsReward(t *testing.T) {
	miner := model.Address{9}
	alice := model.Address{1}

	genesis := model.GenesisAnchor()
	b1 := &model.Block{Parent: genesis.Hash(), Miner: miner}

	rewardAt := func(height uint64) uint64 {
		if height == 1 {
			return 5_000
		}
		return 0
	}

	s := state.Rebuild([]*model.Block{genesis, b1}, rewardAt)
	assert.Equal(t, uint64(5_000), s.Balance(miner))
	assert.Equal(t, uint64(0), s.Balance(alice))
	assert.Equal(t, uint64(5_000), s.TotalIssued())
}
