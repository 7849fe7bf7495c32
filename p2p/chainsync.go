package p2p

import (
	"context"
	"time"

	"github.com/bitcoin-sv/axiomd/errors"
	"github.com/bitcoin-sv/axiomd/model"
	jsoniter "github.com/json-iterator/go"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ChainRequest asks a peer for every block from StartHeight to its tip,
// the wire shape used over the chain-sync protocol. Mirrors
// original_source's network.rs::ChainRequest.
type ChainRequest struct {
	StartHeight uint64 `json:"start_height"`
}

// ChainResponse carries the canonical bytes of the requested blocks, in
// height order.
type ChainResponse struct {
	Blocks [][]byte `json:"blocks"`
}

// ChainSyncHandler answers a chain-sync request with the blocks this node
// has from req.StartHeight onward. Supplied by the node orchestrator,
// which is the only thing that knows the chain's current contents.
type ChainSyncHandler func(req ChainRequest) ChainResponse

func (n *Node) streamHandler(s network.Stream) {
	defer s.Close()

	s.SetDeadline(time.Now().Add(30 * time.Second))

	var req ChainRequest
	dec := json.NewDecoder(s)
	if err := dec.Decode(&req); err != nil {
		n.logger.Debugf("[p2p] chain-sync request decode failed from %s: %v", s.Conn().RemotePeer(), err)
		return
	}

	if n.ChainSyncHandler == nil {
		return
	}
	resp := n.ChainSyncHandler(req)

	enc := json.NewEncoder(s)
	if err := enc.Encode(resp); err != nil {
		n.logger.Debugf("[p2p] chain-sync response encode failed to %s: %v", s.Conn().RemotePeer(), err)
	}
}

// RequestChain opens a chain-sync stream to pid asking for blocks starting
// at startHeight, decoding and parsing the response's canonical blocks.
func (n *Node) RequestChain(ctx context.Context, pid peer.ID, startHeight uint64) ([]*model.Block, error) {
	s, err := n.host.NewStream(ctx, pid, n.chainSyncProtocol)
	if err != nil {
		return nil, errors.New(errors.ERR_UNKNOWN, "opening chain-sync stream to %s", err, pid)
	}
	defer s.Close()

	s.SetDeadline(time.Now().Add(30 * time.Second))

	if err := json.NewEncoder(s).Encode(ChainRequest{StartHeight: startHeight}); err != nil {
		return nil, errors.New(errors.ERR_UNKNOWN, "sending chain-sync request", err)
	}

	var resp ChainResponse
	if err := json.NewDecoder(s).Decode(&resp); err != nil {
		return nil, errors.New(errors.ERR_UNKNOWN, "decoding chain-sync response", err)
	}

	blocks := make([]*model.Block, 0, len(resp.Blocks))
	for _, raw := range resp.Blocks {
		b, err := model.NewBlockFromBytes(raw)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}
