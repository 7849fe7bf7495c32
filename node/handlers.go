package node

import (
	"bytes"
	"context"

	"github.com/bitcoin-sv/axiomd/model"
	"github.com/bitcoin-sv/axiomd/p2p"
	"github.com/libp2p/go-libp2p/core/peer"
)

// reqChainCommand is the ASCII command string broadcast on the requests
// gossip topic to ask every listening peer for a chain suffix. This topic
// carries a bare command, not a parameterized JSON request: the point-to-
// point chain-sync stream protocol (p2p.Node.RequestChain) is what answers
// "from what height", directly, peer by peer.
var reqChainCommand = []byte("REQ_CHAIN")

// onGossipBlock and onGossipTx run on the p2p subscription goroutine; they
// only decode and enqueue, never touch Chain/Mempool directly, so the
// event loop remains the single mutator per SPEC_FULL.md §5.
func (n *Node) onGossipBlock(_ context.Context, _ peer.ID, data []byte) {
	b, err := model.NewBlockFromBytes(data)
	if err != nil {
		n.logger.Debugf("[node] dropping malformed gossiped block: %v", err)
		return
	}
	select {
	case n.inboundBlocks <- inboundBlock{block: b}:
	default:
		n.logger.Warnf("[node] inbound block queue full, dropping %s", b.Hash())
	}
}

func (n *Node) onGossipTx(_ context.Context, _ peer.ID, data []byte) {
	tx, err := model.NewTransactionFromBytes(data)
	if err != nil {
		n.logger.Debugf("[node] dropping malformed gossiped transaction: %v", err)
		return
	}
	select {
	case n.inboundTxs <- inboundTx{tx: tx}:
	default:
		n.logger.Warnf("[node] inbound tx queue full, dropping %s", tx.Digest())
	}
}

// onGossipSyncRequest answers a peer's broadcast "send me your chain" by
// publishing this node's full best chain, canonically encoded, on
// TopicChain. Targeted catch-up from a specific height goes over the
// point-to-point chain-sync stream instead (p2p.Node.RequestChain); this
// path only serves the periodic background broadcast from periodicSyncLoop.
func (n *Node) onGossipSyncRequest(ctx context.Context, _ peer.ID, data []byte) {
	if !bytes.Equal(data, reqChainCommand) {
		n.logger.Debugf("[node] dropping unrecognized chain request command")
		return
	}
	n.broadcastChain(ctx)
}

// onGossipChainResponse decodes a peer's broadcast chain, using the same
// deterministic binary encoding as the on-disk chain file, and enqueues
// each block through the normal inbound-block path; malformed or already-
// known blocks are rejected the same as any other gossiped block.
func (n *Node) onGossipChainResponse(_ context.Context, _ peer.ID, data []byte) {
	blocks, err := model.DecodeBlocks(data)
	if err != nil {
		n.logger.Debugf("[node] dropping malformed chain broadcast: %v", err)
		return
	}
	for _, b := range blocks {
		select {
		case n.inboundBlocks <- inboundBlock{block: b}:
		default:
			n.logger.Warnf("[node] inbound block queue full, dropping synced block %s", b.Hash())
		}
	}
}

// broadcastChain publishes this node's full best chain on TopicChain, the
// "assist lagging peers" half of periodic sync (SPEC_FULL.md §4.J).
func (n *Node) broadcastChain(ctx context.Context) {
	blocks := n.bestChainBlocks()
	if len(blocks) == 0 {
		return
	}
	if err := n.P2P.Publish(ctx, p2p.TopicChain, model.EncodeBlocks(blocks)); err != nil {
		n.logger.Debugf("[node] failed to publish chain broadcast: %v", err)
	}
}
