package chain_test

import (
	"testing"

	"github.com/bitcoin-sv/axiomd/chain"
	"github.com/bitcoin-sv/axiomd/consensus/lwma"
	"github.com/bitcoin-sv/axiomd/consensus/vdf"
	"github.com/bitcoin-sv/axiomd/errors"
	"github.com/bitcoin-sv/axiomd/mempool"
	"github.com/bitcoin-sv/axiomd/model"
	"github.com/bitcoin-sv/axiomd/sigverify"
	"github.com/bitcoin-sv/axiomd/zkverify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIterations = 4

func newTestChain(t *testing.T) *chain.Chain {
	t.Helper()
	c, err := chain.New(chain.Deps{
		VDFVerifier:   vdf.Default(),
		ZKVerifier:    zkverify.Default{},
		SigVerifier:   sigverify.Default{},
		VDFIterations: testIterations,
		Mempool:       mempool.New(),
	}, nil)
	require.NoError(t, err)
	return c
}

// mineValidBlock brute-forces a nonce so the resulting block hash meets the
// given difficulty, fills in a correct VDF proof and a shape-valid ZK
// proof, mirroring what miner.Miner does at a much smaller iteration count.
func mineValidBlock(t *testing.T, c *chain.Chain, slot uint64, miner model.Address, txs []*model.Transaction) *model.Block {
	t.Helper()
	parentHash := c.Tip()
	parent, ok := c.GetBlock(parentHash)
	require.True(t, ok)

	seed := vdf.Seed(parent.Hash(), slot)
	proof := vdf.Default().Evaluate(seed, testIterations)
	difficulty := c.Difficulty()

	b := &model.Block{
		Parent:       parentHash,
		Slot:         slot,
		Timestamp:    parent.Timestamp + lwma.TargetBlockTime,
		Miner:        miner,
		Transactions: txs,
		VDFProof:     proof,
		ZKProof:      make([]byte, 128),
	}

	for nonce := uint64(1); ; nonce++ {
		b.Nonce = nonce
		if lwma.MeetsDifficulty(b.Hash().CloneBytes(), difficulty) {
			return b
		}
		require.Less(t, nonce, uint64(10_000_000), "failed to mine a block within the test budget")
	}
}

func TestNewChainSeedsGenesis(t *testing.T) {
	c := newTestChain(t)
	assert.Equal(t, model.GenesisHash, c.Tip())
	assert.Equal(t, uint64(0), c.Height())
}

func TestNewRejectsMismatchedPersistedGenesis(t *testing.T) {
	bogus := &model.Block{Slot: 1}
	_, err := chain.New(chain.Deps{VDFIterations: testIterations}, []*model.Block{bogus})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrGenesisAnchorMismatch))
}

func TestAddBlockHappyPath(t *testing.T) {
	c := newTestChain(t)
	miner := model.Address{1}

	b := mineValidBlock(t, c, 1, miner, nil)
	require.NoError(t, c.AddBlock(b))

	assert.Equal(t, b.Hash(), c.Tip())
	assert.Equal(t, uint64(1), c.Height())
	assert.Greater(t, c.State().Balance(miner), uint64(0), "miner should have been credited the block reward")
}

func TestAddBlockRejectsDuplicateBlock(t *testing.T) {
	c := newTestChain(t)
	b := mineValidBlock(t, c, 1, model.Address{1}, nil)
	require.NoError(t, c.AddBlock(b))

	err := c.AddBlock(b)
	assert.True(t, errors.Is(err, errors.ErrDuplicateBlock))
}

func TestAddBlockRejectsUnknownParent(t *testing.T) {
	c := newTestChain(t)
	b := mineValidBlock(t, c, 1, model.Address{1}, nil)
	b.Parent = model.Digest32{0xde, 0xad}
	err := c.AddBlock(b)
	assert.True(t, errors.Is(err, errors.ErrInvalidParent))
}

func TestAddBlockRejectsBadVDFProof(t *testing.T) {
	c := newTestChain(t)
	b := mineValidBlock(t, c, 1, model.Address{1}, nil)
	b.VDFProof = []byte("not a valid proof")
	err := c.AddBlock(b)
	assert.True(t, errors.Is(err, errors.ErrInvalidVDF))
}

func TestAddBlockRejectsBlockWithUnfundedTransaction(t *testing.T) {
	c := newTestChain(t)
	miner := model.Address{1}

	b1 := mineValidBlock(t, c, 1, miner, nil)
	require.NoError(t, c.AddBlock(b1))

	alice := model.Address{2}
	bob := model.Address{3}
	aliceBalanceBefore := c.State().Balance(alice)
	assert.Equal(t, uint64(0), aliceBalanceBefore)

	// alice has no balance yet, so a transaction spending from her must
	// cause the whole block to be rejected, atomically.
	badTx := &model.Transaction{From: alice, To: bob, Amount: 10, Nonce: 0, Signature: []byte("sig")}
	b2 := mineValidBlock(t, c, 2, miner, []*model.Transaction{badTx})
	err := c.AddBlock(b2)
	assert.Error(t, err)
	assert.Equal(t, uint64(1), c.Height(), "rejected block must not advance the chain")
}

func TestAddBlockRejectsTooManyTransactions(t *testing.T) {
	c, err := chain.New(chain.Deps{
		VDFVerifier:             vdf.Default(),
		ZKVerifier:              zkverify.Default{},
		SigVerifier:             sigverify.Default{},
		VDFIterations:           testIterations,
		Mempool:                 mempool.New(),
		MaxTransactionsPerBlock: 1,
	}, nil)
	require.NoError(t, err)

	miner := model.Address{1}
	txs := []*model.Transaction{
		{From: model.Address{2}, To: model.Address{3}, Nonce: 0, Signature: []byte("sig")},
		{From: model.Address{4}, To: model.Address{3}, Nonce: 0, Signature: []byte("sig")},
	}
	b := mineValidBlock(t, c, 1, miner, txs)
	err = c.AddBlock(b)
	assert.True(t, errors.Is(err, errors.ErrTooManyTransactions))
}

func TestAddBlockRejectsOversizedBlock(t *testing.T) {
	c, err := chain.New(chain.Deps{
		VDFVerifier:   vdf.Default(),
		ZKVerifier:    zkverify.Default{},
		SigVerifier:   sigverify.Default{},
		VDFIterations: testIterations,
		Mempool:       mempool.New(),
		MaxBlockSize:  1,
	}, nil)
	require.NoError(t, err)

	b := mineValidBlock(t, c, 1, model.Address{1}, nil)
	err = c.AddBlock(b)
	assert.True(t, errors.Is(err, errors.ErrBlockTooLarge))
}

func TestAddBlockAdvancesTipOnLongerChain(t *testing.T) {
	c := newTestChain(t)
	miner := model.Address{1}

	a1 := mineValidBlock(t, c, 1, miner, nil)
	require.NoError(t, c.AddBlock(a1))
	firstTip := c.Tip()

	// Extend a1 with a second block: the added work moves the tip to a2.
	// mineValidBlock always builds on the current tip, so no competing
	// fork is built here.
	a2 := mineValidBlock(t, c, 2, miner, nil)
	require.NoError(t, c.AddBlock(a2))

	assert.NotEqual(t, firstTip, c.Tip())
	assert.Equal(t, uint64(2), c.Height())
}
