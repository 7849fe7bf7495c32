package persistence_test

import (
	"testing"

	"github.com/bitcoin-sv/axiomd/model"
	"github.com/bitcoin-sv/axiomd/persistence"
	"github.com/bitcoin-sv/axiomd/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOnFreshDataDirReturnsNoBlocks(t *testing.T) {
	s, err := persistence.New(t.TempDir(), ulogger.TestLogger("persistence-test"))
	require.NoError(t, err)

	blocks, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestAppendThenLoadRoundTrips(t *testing.T) {
	s, err := persistence.New(t.TempDir(), ulogger.TestLogger("persistence-test"))
	require.NoError(t, err)

	genesis := model.GenesisAnchor()
	b1 := &model.Block{Parent: genesis.Hash(), Slot: 1, Miner: model.Address{1}}

	require.NoError(t, s.Append(genesis))
	require.NoError(t, s.Append(b1))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, genesis.Hash(), loaded[0].Hash())
	assert.Equal(t, b1.Hash(), loaded[1].Hash())
}

func TestRewriteReplacesContentsAtomically(t *testing.T) {
	s, err := persistence.New(t.TempDir(), ulogger.TestLogger("persistence-test"))
	require.NoError(t, err)

	genesis := model.GenesisAnchor()
	require.NoError(t, s.Append(genesis))
	require.NoError(t, s.Append(&model.Block{Parent: genesis.Hash(), Slot: 1}))

	onlyGenesis := []*model.Block{genesis}
	require.NoError(t, s.Rewrite(onlyGenesis))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, genesis.Hash(), loaded[0].Hash())
}
