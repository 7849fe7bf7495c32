// Package economics implements the fixed issuance schedule: initial block
// reward, halving interval, and the hard supply cap, grounded on
// original_source's economics.rs constants (which match spec.md exactly).
package economics

// Protocol-fixed monetary constants. These are compiled-in, not
// configurable: changing them changes the network.
const (
	SmallestUnit    uint64 = 100_000_000
	InitialReward   uint64 = 5_000_000_000
	HalvingInterval uint64 = 1_240_000
	TotalSupply     uint64 = 12_400_000_000_000_000
	BlockTimeSeconds uint64 = 1800
)

// RewardAt returns the block subsidy at the given height, halving every
// HalvingInterval blocks and floored at zero once enough halvings have
// elapsed that the reward would otherwise round to nothing.
func RewardAt(height uint64) uint64 {
	halvings := height / HalvingInterval
	if halvings >= 64 {
		return 0
	}
	return InitialReward >> halvings
}

// CapReward clamps a reward so total issuance never exceeds TotalSupply.
func CapReward(reward, totalIssued uint64) uint64 {
	remaining := TotalSupply - totalIssued
	if reward > remaining {
		return remaining
	}
	return reward
}

// FormatAXM renders smallest-unit amounts in whole-coin notation, matching
// original_source's format_axm helper.
func FormatAXM(amount uint64) string {
	whole := amount / SmallestUnit
	frac := amount % SmallestUnit
	return formatFixed(whole, frac, SmallestUnit)
}

func formatFixed(whole, frac, unit uint64) string {
	digits := 0
	for u := unit; u > 1; u /= 10 {
		digits++
	}
	s := make([]byte, 0, 24)
	s = appendUint(s, whole)
	s = append(s, '.')
	fracStr := appendUint(nil, frac)
	for len(fracStr) < digits {
		fracStr = append([]byte{'0'}, fracStr...)
	}
	s = append(s, fracStr...)
	return string(s)
}

func appendUint(dst []byte, v uint64) []byte {
	if v == 0 {
		return append(dst, '0')
	}
	var tmp [20]byte
	i := len(tmp)
	for v > 0 {
		i--
		tmp[i] = byte('0' + v%10)
		v /= 10
	}
	return append(dst, tmp[i:]...)
}
