// Package lwma implements the linear weighted moving average difficulty
// controller: the sole consensus-critical difficulty function (see
// DESIGN.md Open Question (c) — any local emergency adjustment elsewhere
// in the system is advisory-only and never flows back through here).
//
// Grounded on original_source's consensus/lwma.rs and on
// EXCCoin-exccd/blockchain/difficulty.go's math/big target arithmetic.
package lwma

import "math/big"

const (
	// TargetBlockTime is the desired seconds between blocks.
	TargetBlockTime = 1800
	// Window is the number of preceding blocks the average is taken over.
	Window = 60
	// MinDifficulty is the protocol floor; NextDifficulty never returns
	// less than this.
	MinDifficulty = 1000
	// MaxAdjustmentFactor bounds how much difficulty can move in one
	// step, in either direction.
	MaxAdjustmentFactor = 3.0
	// MinAdjustmentFactor is the reciprocal bound (1/3), hardcoded to
	// avoid floating-point drift between 1/MaxAdjustmentFactor and this
	// constant, matching original_source's own hardcoded 0.33.
	MinAdjustmentFactor = 0.33
)

// BlockTimestamps is the minimal per-block data LWMA needs: the slot's
// claimed wall-clock time and the difficulty that block was mined at.
type BlockTimestamps struct {
	Timestamp  uint64
	Difficulty uint64
}

// NextDifficulty computes the difficulty for the block following history,
// where history is ordered oldest-first and contains at most Window
// entries (the caller is responsible for windowing; passing more than
// Window entries uses only the most recent Window of them).
func NextDifficulty(history []BlockTimestamps) uint64 {
	if len(history) < 2 {
		return MinDifficulty
	}

	if len(history) > Window {
		history = history[len(history)-Window:]
	}

	n := len(history)

	var weightedTimeSum float64
	var weightSum float64
	var difficultySum float64

	for i := 1; i < n; i++ {
		solveTime := float64(history[i].Timestamp) - float64(history[i-1].Timestamp)
		if solveTime < 1 {
			solveTime = 1
		}
		maxSolveTime := float64(6 * TargetBlockTime)
		if solveTime > maxSolveTime {
			solveTime = maxSolveTime
		}

		weight := float64(i)
		weightedTimeSum += solveTime * weight
		weightSum += weight
		difficultySum += float64(history[i].Difficulty)
	}

	avgDifficulty := difficultySum / float64(n-1)
	if weightedTimeSum <= 0 {
		weightedTimeSum = 1
	}

	adjusted := avgDifficulty * float64(TargetBlockTime) * weightSum / weightedTimeSum

	last := float64(history[n-1].Difficulty)
	if adjusted > last*MaxAdjustmentFactor {
		adjusted = last * MaxAdjustmentFactor
	}
	if adjusted < last*MinAdjustmentFactor {
		adjusted = last * MinAdjustmentFactor
	}

	next := uint64(adjusted)
	if next < MinDifficulty {
		next = MinDifficulty
	}
	return next
}

// maxTarget is (2^256 - 1), the target at difficulty 1.
var maxTarget = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// DifficultyToTarget maps a difficulty value to the PoW target threshold:
// target = (2^256-1) / difficulty.
func DifficultyToTarget(difficulty uint64) *big.Int {
	if difficulty == 0 {
		difficulty = 1
	}
	return new(big.Int).Div(maxTarget, new(big.Int).SetUint64(difficulty))
}

// MeetsDifficulty reports whether digest, read as a big-endian integer,
// is less than or equal to the target implied by difficulty.
func MeetsDifficulty(digest []byte, difficulty uint64) bool {
	target := DifficultyToTarget(difficulty)
	value := new(big.Int).SetBytes(digest)
	return value.Cmp(target) <= 0
}

// EstimateHashrate converts a difficulty/solve-time pair into an
// approximate network hashrate in hashes/second.
func EstimateHashrate(difficulty uint64, avgSolveTimeSeconds float64) float64 {
	if avgSolveTimeSeconds <= 0 {
		return 0
	}
	return float64(difficulty) / avgSolveTimeSeconds
}

// DetectFlashMining flags an advisory-only anomaly when recent solve times
// are far faster than target, suggesting a hashrate spike LWMA hasn't
// caught up to yet. It never invalidates a block; callers only log it.
func DetectFlashMining(history []BlockTimestamps) bool {
	if len(history) < 3 {
		return false
	}
	recent := history[len(history)-3:]
	var total float64
	for i := 1; i < len(recent); i++ {
		total += float64(recent[i].Timestamp) - float64(recent[i-1].Timestamp)
	}
	avg := total / float64(len(recent)-1)
	return avg > 0 && avg < TargetBlockTime*0.1
}
