// Package state implements the account-based ledger: balances, nonces, and
// total issuance, grounded on original_source's state.rs.
package state

import (
	"github.com/bitcoin-sv/axiomd/errors"
	"github.com/bitcoin-sv/axiomd/model"
)

// State is the mutable account ledger shared by the whole node. Callers
// outside the node orchestrator must not hold a State across goroutine
// boundaries without external synchronization — see SPEC_FULL.md §5.
type State struct {
	balances    map[model.Address]uint64
	nonces      map[model.Address]uint64
	totalIssued uint64
}

// New returns an empty ledger.
func New() *State {
	return &State{
		balances: make(map[model.Address]uint64),
		nonces:   make(map[model.Address]uint64),
	}
}

// Balance returns addr's balance, zero if the account has never been
// touched.
func (s *State) Balance(addr model.Address) uint64 { return s.balances[addr] }

// Nonce returns addr's next expected transaction nonce.
func (s *State) Nonce(addr model.Address) uint64 { return s.nonces[addr] }

// TotalIssued returns the cumulative supply minted so far.
func (s *State) TotalIssued() uint64 { return s.totalIssued }

// Credit mints amount into addr's balance and advances total issuance,
// used for block rewards. It does not check the supply cap; callers
// (chain.Chain.AddBlock and its rewardFunc) must clamp the reward via
// economics.CapReward first.
func (s *State) Credit(addr model.Address, amount uint64) {
	s.balances[addr] += amount
	s.totalIssued += amount
}

// ApplyTx debits From, credits To, and advances From's nonce, failing
// closed on insufficient balance or a nonce that does not match the
// account's current expected value.
func (s *State) ApplyTx(tx *model.Transaction) error {
	if tx.Nonce != s.nonces[tx.From] {
		return errors.New(errors.ERR_INVALID_NONCE,
			"expected nonce %d for %s, got %d", s.nonces[tx.From], tx.From, tx.Nonce)
	}

	total := tx.Amount + tx.Fee
	if s.balances[tx.From] < total {
		return errors.New(errors.ERR_INSUFFICIENT_BALANCE,
			"%s has %d, needs %d", tx.From, s.balances[tx.From], total)
	}

	s.balances[tx.From] -= total
	s.balances[tx.To] += tx.Amount
	s.nonces[tx.From]++

	return nil
}

// Clone returns an independent copy of the ledger, used to speculatively
// apply transactions (e.g. miner candidate revalidation) without risking
// mutation of the live state.
func (s *State) Clone() *State {
	clone := &State{
		balances:    make(map[model.Address]uint64, len(s.balances)),
		nonces:      make(map[model.Address]uint64, len(s.nonces)),
		totalIssued: s.totalIssued,
	}
	for k, v := range s.balances {
		clone.balances[k] = v
	}
	for k, v := range s.nonces {
		clone.nonces[k] = v
	}
	return clone
}

// Snapshot is a point-in-time copy of the ledger, used to roll back a
// speculative batch of transactions (e.g. a candidate block's transactions
// in chain.Chain.AddBlock) if any of them fails to apply.
type Snapshot struct {
	balances    map[model.Address]uint64
	nonces      map[model.Address]uint64
	totalIssued uint64
}

// Snapshot captures the current ledger contents.
func (s *State) Snapshot() *Snapshot {
	snap := &Snapshot{
		balances:    make(map[model.Address]uint64, len(s.balances)),
		nonces:      make(map[model.Address]uint64, len(s.nonces)),
		totalIssued: s.totalIssued,
	}
	for k, v := range s.balances {
		snap.balances[k] = v
	}
	for k, v := range s.nonces {
		snap.nonces[k] = v
	}
	return snap
}

// Rollback restores the ledger to a previously captured Snapshot.
func (s *State) Rollback(snap *Snapshot) {
	s.balances = snap.balances
	s.nonces = snap.nonces
	s.totalIssued = snap.totalIssued
}

// Rebuild replays blocks from genesis into a fresh ledger, returning the
// resulting state. Used on startup after loading the chain from disk, and
// by fork-choice reorg to recompute state along the new best chain.
func Rebuild(blocks []*model.Block, rewardAt func(height uint64) uint64) *State {
	s := New()
	for height, b := range blocks {
		for _, tx := range b.Transactions {
			_ = s.ApplyTx(tx)
		}
		if rewardAt != nil {
			s.Credit(b.Miner, rewardAt(uint64(height)))
		}
	}
	return s
}
