package p2p

import (
	"testing"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
)

func testPeerID(t *testing.T, seed byte) peer.ID {
	t.Helper()
	return peer.ID([]byte{seed, seed, seed})
}

func TestPeerLimiterAllowsBurstThenThrottles(t *testing.T) {
	l := newPeerLimiter(60) // 1/sec, burst 60
	pid := testPeerID(t, 1)

	for i := 0; i < 60; i++ {
		assert.True(t, l.allow(pid), "burst capacity should admit message %d", i)
	}
	assert.False(t, l.allow(pid), "limiter should throttle once the burst is exhausted")
}

func TestPeerLimiterIsPerPeer(t *testing.T) {
	l := newPeerLimiter(1)
	a := testPeerID(t, 1)
	b := testPeerID(t, 2)

	assert.True(t, l.allow(a))
	assert.True(t, l.allow(b), "a different peer must have its own budget")
}

func TestTrustGateScoreDropsAfterPenalties(t *testing.T) {
	g := newTrustGate()
	pid := testPeerID(t, 3)
	g.observeConnection(pid)

	before := g.score(pid)
	for i := 0; i < 10; i++ {
		g.penalize(pid)
	}
	after := g.score(pid)

	assert.Less(t, after, before, "repeated penalties should reduce trust score")
}

func TestTrustGateScoreStaysAboveDropThresholdForReconnectingPeer(t *testing.T) {
	g := newTrustGate()
	pid := testPeerID(t, 4)

	for i := 0; i < 5; i++ {
		g.observeConnection(pid)
	}
	score := g.score(pid)

	assert.Greater(t, score, trustDropThreshold)
}
