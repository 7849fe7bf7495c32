package p2p

import (
	"fmt"
	"net"
	"testing"

	"github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
)

func TestProbeReachableSucceedsAgainstOpenPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skip("loopback TCP listener unavailable in this sandbox")
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	maddr := multiaddr.StringCast(fmt.Sprintf("/ip4/127.0.0.1/tcp/%d", port))

	n := &Node{logger: nil}
	assert.True(t, n.probeReachable(maddr))
}

func TestProbeReachableFailsAgainstClosedPort(t *testing.T) {
	maddr := multiaddr.StringCast("/ip4/127.0.0.1/tcp/1")
	n := &Node{logger: nil}
	assert.False(t, n.probeReachable(maddr))
}

func TestProbeReachableOptimisticForNonTCPTransport(t *testing.T) {
	maddr := multiaddr.StringCast("/ip4/127.0.0.1/udp/1234")
	n := &Node{logger: nil}
	assert.True(t, n.probeReachable(maddr))
}
