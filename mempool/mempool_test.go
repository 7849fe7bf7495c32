package mempool_test

import (
	"testing"

	"github.com/bitcoin-sv/axiomd/errors"
	"github.com/bitcoin-sv/axiomd/mempool"
	"github.com/bitcoin-sv/axiomd/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(from byte, nonce, fee uint64) *model.Transaction {
	return &model.Transaction{
		From: model.Address{from}, To: model.Address{0xff}, Amount: 1, Fee: fee, Nonce: nonce,
		Signature: []byte("sig"),
	}
}

func TestAddRejectsUnsignedTransaction(t *testing.T) {
	m := mempool.New()
	unsigned := tx(1, 0, 10)
	unsigned.Signature = nil
	err := m.Add(unsigned)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidSignature))
}

func TestAddAndGet(t *testing.T) {
	m := mempool.New()
	transaction := tx(1, 0, 10)
	require.NoError(t, m.Add(transaction))

	got, ok := m.Get(transaction.Digest())
	require.True(t, ok)
	assert.Equal(t, transaction, got)
	assert.Equal(t, 1, m.Len())
}

func TestAddRejectsDuplicateNullifierByDefault(t *testing.T) {
	m := mempool.New()
	require.NoError(t, m.Add(tx(1, 0, 10)))

	err := m.Add(tx(1, 0, 999))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDuplicateNullifier))
}

func TestAddReplaceByFeeRequiresStrictlyHigherFee(t *testing.T) {
	m := mempool.New(mempool.WithReplaceByFee(true))
	require.NoError(t, m.Add(tx(1, 0, 10)))

	err := m.Add(tx(1, 0, 10))
	assert.Error(t, err, "equal fee must not replace")

	require.NoError(t, m.Add(tx(1, 0, 20)))
	assert.Equal(t, 1, m.Len())
}

func TestAddEvictsLowestFeeWhenFull(t *testing.T) {
	m := mempool.New(mempool.WithMaxSize(2))
	require.NoError(t, m.Add(tx(1, 0, 10)))
	require.NoError(t, m.Add(tx(2, 0, 20)))

	err := m.Add(tx(3, 0, 5))
	assert.Error(t, err, "fee too low to evict anything")

	require.NoError(t, m.Add(tx(3, 0, 30)))
	assert.Equal(t, 2, m.Len())
	assert.False(t, m.Contains(tx(1, 0, 10).Digest()), "lowest-fee entry should have been evicted")
}

func TestGetForMiningOrdersByDescendingFee(t *testing.T) {
	m := mempool.New()
	require.NoError(t, m.Add(tx(1, 0, 5)))
	require.NoError(t, m.Add(tx(2, 0, 50)))
	require.NoError(t, m.Add(tx(3, 0, 25)))

	ordered := m.GetForMining(10)
	require.Len(t, ordered, 3)
	assert.Equal(t, uint64(50), ordered[0].Fee)
	assert.Equal(t, uint64(25), ordered[1].Fee)
	assert.Equal(t, uint64(5), ordered[2].Fee)
}

func TestRemoveBatch(t *testing.T) {
	m := mempool.New()
	t1 := tx(1, 0, 10)
	t2 := tx(2, 0, 20)
	require.NoError(t, m.Add(t1))
	require.NoError(t, m.Add(t2))

	m.RemoveBatch([]model.Digest32{t1.Digest()})
	assert.Equal(t, 1, m.Len())
	assert.False(t, m.Contains(t1.Digest()))
	assert.True(t, m.Contains(t2.Digest()))
}

func TestAddRejectsOversizedTransaction(t *testing.T) {
	m := mempool.New(mempool.WithMaxTxSize(10))
	err := m.Add(tx(1, 0, 10))
	assert.Error(t, err)
}
