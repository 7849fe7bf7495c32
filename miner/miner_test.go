package miner

import (
	"testing"

	"github.com/bitcoin-sv/axiomd/chain"
	"github.com/bitcoin-sv/axiomd/consensus/lwma"
	"github.com/bitcoin-sv/axiomd/consensus/vdf"
	"github.com/bitcoin-sv/axiomd/mempool"
	"github.com/bitcoin-sv/axiomd/model"
	"github.com/bitcoin-sv/axiomd/sigverify"
	"github.com/bitcoin-sv/axiomd/ulogger"
	"github.com/bitcoin-sv/axiomd/zkverify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyAdvisoryDecrementOnlyKicksInAfterThreshold(t *testing.T) {
	m := &Miner{logger: ulogger.TestLogger("miner-test")}

	assert.Equal(t, uint64(10_000), m.applyAdvisoryDecrement(10_000))

	m.consecutiveTimeouts = emergencyDecrementAfter
	assert.Equal(t, uint64(5_000), m.applyAdvisoryDecrement(10_000))
}

func TestApplyAdvisoryDecrementNeverGoesBelowFloor(t *testing.T) {
	m := &Miner{logger: ulogger.TestLogger("miner-test"), consecutiveTimeouts: emergencyDecrementAfter}
	assert.Equal(t, uint64(lwma.MinDifficulty), m.applyAdvisoryDecrement(lwma.MinDifficulty+1))
}

func TestRevalidateDropsTransactionsThatNoLongerApply(t *testing.T) {
	c, err := chain.New(chain.Deps{
		VDFVerifier:   vdf.Default(),
		ZKVerifier:    zkverify.Default{},
		SigVerifier:   sigverify.Default{},
		VDFIterations: 4,
		Mempool:       mempool.New(),
	}, nil)
	require.NoError(t, err)

	bob := model.Address{2}

	m := &Miner{logger: ulogger.TestLogger("miner-test"), chain: c}

	// Nothing has a balance on a fresh chain, so even a well-formed
	// candidate transaction must be dropped by revalidation.
	stale := &model.Transaction{From: model.Address{1}, To: bob, Amount: 1_000_000, Fee: 1, Nonce: 0, Signature: []byte("sig")}

	out := m.revalidate([]*model.Transaction{stale})
	assert.Len(t, out, 0, "sender has no balance, so the candidate tx can't apply against current state")
}
