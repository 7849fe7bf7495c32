package economics_test

import (
	"testing"

	"github.com/bitcoin-sv/axiomd/economics"
	"github.com/stretchr/testify/assert"
)

func TestRewardAtHalving(t *testing.T) {
	assert.Equal(t, economics.InitialReward, economics.RewardAt(0))
	assert.Equal(t, economics.InitialReward, economics.RewardAt(economics.HalvingInterval-1))
	assert.Equal(t, economics.InitialReward/2, economics.RewardAt(economics.HalvingInterval))
	assert.Equal(t, economics.InitialReward/4, economics.RewardAt(2*economics.HalvingInterval))
}

func TestRewardAtExhaustedHalvings(t *testing.T) {
	assert.Equal(t, uint64(0), economics.RewardAt(64*economics.HalvingInterval))
}

func TestCapRewardClampsToRemainingSupply(t *testing.T) {
	almostAll := economics.TotalSupply - 100
	assert.Equal(t, uint64(100), economics.CapReward(1_000, almostAll))
	assert.Equal(t, uint64(500), economics.CapReward(500, almostAll))
}

func TestFormatAXM(t *testing.T) {
	assert.Equal(t, "1.00000000", economics.FormatAXM(economics.SmallestUnit))
	assert.Equal(t, "0.50000000", economics.FormatAXM(economics.SmallestUnit/2))
	assert.Equal(t, "0.00000000", economics.FormatAXM(0))
}
