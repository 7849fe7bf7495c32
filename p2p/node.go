// Package p2p implements gossip and chain sync over libp2p, grounded on
// the teacher's util/p2p/P2PNode.go (host/pubsub/DHT wiring) and on
// original_source's network.rs (protocol id, bootstrap resolution, JSON
// request/response codec).
package p2p

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"time"

	"github.com/bitcoin-sv/axiomd/errors"
	"github.com/bitcoin-sv/axiomd/ulogger"
	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
)

// bootstrapProbeTimeout bounds the raw TCP reachability check that precedes
// every bootstrap dial, matching original_source's network.rs 2-second
// TcpStream::connect probe.
const bootstrapProbeTimeout = 2 * time.Second

// Topic names gossiped between nodes, per SPEC_FULL.md §4.J.
const (
	TopicBlocks       = "blocks"
	TopicTransactions = "transactions"
	TopicRequests     = "requests"
	TopicChain        = "chain"
)

var defaultTopics = []string{TopicBlocks, TopicTransactions, TopicRequests, TopicChain}

// Handler processes one gossiped message from peer pid.
type Handler func(ctx context.Context, pid peer.ID, msg []byte)

// Config configures a Node.
type Config struct {
	ListenAddress   string
	ProtocolPrefix  string
	BootstrapPeers  []string
	EnableMDNS      bool
	EnableKademlia  bool
	RateLimitPerMin int
}

// Node wraps a libp2p host with gossipsub topics, Kademlia peer discovery,
// mDNS local discovery, and the chain-sync request/response protocol.
type Node struct {
	logger ulogger.Logger
	cfg    Config

	host   host.Host
	pubsub *pubsub.PubSub
	topics map[string]*pubsub.Topic
	subs   map[string]*pubsub.Subscription

	dht *dht.IpfsDHT

	chainSyncProtocol protocol.ID

	limiter *peerLimiter
	trust   *trustGate

	ChainSyncHandler ChainSyncHandler
}

// New constructs the libp2p host and gossipsub instance but does not yet
// join topics or start discovery; call Start for that.
func New(logger ulogger.Logger, cfg Config) (*Node, error) {
	if logger == nil {
		logger = ulogger.TestLogger("p2p")
	}
	if cfg.ProtocolPrefix == "" {
		cfg.ProtocolPrefix = "axiom"
	}
	if cfg.RateLimitPerMin == 0 {
		cfg.RateLimitPerMin = 100
	}

	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, errors.New(errors.ERR_UNKNOWN, "generating node identity key", err)
	}

	listen := cfg.ListenAddress
	if listen == "" {
		listen = "/ip4/0.0.0.0/tcp/9909"
	}

	h, err := libp2p.New(
		libp2p.ListenAddrStrings(listen),
		libp2p.Identity(priv),
	)
	if err != nil {
		return nil, errors.New(errors.ERR_UNKNOWN, "creating libp2p host", err)
	}

	n := &Node{
		logger:            logger,
		cfg:               cfg,
		host:              h,
		topics:            make(map[string]*pubsub.Topic),
		subs:              make(map[string]*pubsub.Subscription),
		chainSyncProtocol: protocol.ID(fmt.Sprintf("/%s/chain-sync/1.0.0", cfg.ProtocolPrefix)),
		limiter:           newPeerLimiter(cfg.RateLimitPerMin),
		trust:             newTrustGate(),
	}

	return n, nil
}

// HostID returns this node's peer ID.
func (n *Node) HostID() peer.ID { return n.host.ID() }

// ConnectedPeers returns the peer IDs this node currently has an open
// libp2p connection to, used by the node orchestrator's periodic sync to
// target direct chain-sync requests.
func (n *Node) ConnectedPeers() []peer.ID { return n.host.Network().Peers() }

// Addrs returns this node's listen multiaddrs.
func (n *Node) Addrs() []multiaddr.Multiaddr { return n.host.Addrs() }

// Start joins the four gossip topics, registers the chain-sync stream
// handler, and kicks off peer discovery (static bootstrap, plus Kademlia
// and mDNS each when enabled in Config).
func (n *Node) Start(ctx context.Context) error {
	ps, err := pubsub.NewGossipSub(ctx, n.host)
	if err != nil {
		return errors.New(errors.ERR_UNKNOWN, "starting gossipsub", err)
	}
	n.pubsub = ps

	for _, name := range defaultTopics {
		topic, err := ps.Join(name)
		if err != nil {
			return errors.New(errors.ERR_UNKNOWN, "joining topic %s", err, name)
		}
		n.topics[name] = topic
	}

	n.host.SetStreamHandler(n.chainSyncProtocol, n.streamHandler)

	n.connectBootstrapPeers(ctx)

	if n.cfg.EnableKademlia {
		if err := n.startDHT(ctx); err != nil {
			n.logger.Warnf("[p2p] DHT discovery unavailable: %v", err)
		}
	}

	if n.cfg.EnableMDNS {
		n.startMDNS()
	}

	go n.clearThrottleLoop(ctx)

	return nil
}

// Stop tears down the host and all subscriptions.
func (n *Node) Stop(ctx context.Context) error {
	for _, sub := range n.subs {
		sub.Cancel()
	}
	if n.dht != nil {
		_ = n.dht.Close()
	}
	return n.host.Close()
}

// Subscribe registers handler to receive every message published on
// topicName, after the per-peer rate limiter and trust gate pass it.
func (n *Node) Subscribe(ctx context.Context, topicName string, handler Handler) error {
	topic, ok := n.topics[topicName]
	if !ok {
		return errors.New(errors.ERR_INVALID_ARGUMENT, "unknown topic %s", topicName)
	}

	sub, err := topic.Subscribe()
	if err != nil {
		return errors.New(errors.ERR_UNKNOWN, "subscribing to topic %s", err, topicName)
	}
	n.subs[topicName] = sub

	go func() {
		for {
			m, err := sub.Next(ctx)
			if err != nil {
				return // context canceled or subscription closed
			}
			if m.ReceivedFrom == n.host.ID() {
				continue
			}
			if !n.limiter.allow(m.ReceivedFrom) {
				n.trust.penalize(m.ReceivedFrom)
				continue
			}
			if n.trust.score(m.ReceivedFrom) < trustDropThreshold {
				continue
			}
			handler(ctx, m.ReceivedFrom, m.Data)
		}
	}()

	return nil
}

// Publish broadcasts msg on topicName.
func (n *Node) Publish(ctx context.Context, topicName string, msg []byte) error {
	topic, ok := n.topics[topicName]
	if !ok {
		return errors.New(errors.ERR_INVALID_ARGUMENT, "unknown topic %s", topicName)
	}
	return topic.Publish(ctx, msg)
}

func (n *Node) connectBootstrapPeers(ctx context.Context) {
	for _, addr := range n.cfg.BootstrapPeers {
		maddr := multiaddr.StringCast(addr)
		info, err := peer.AddrInfoFromP2pAddr(maddr)
		if err != nil {
			n.logger.Warnf("[p2p] bad bootstrap address %s: %v", addr, err)
			continue
		}

		if !n.probeReachable(maddr) {
			n.logger.Warnf("[p2p] bootstrap peer %s not TCP-reachable, skipping dial", addr)
			continue
		}

		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = n.host.Connect(dialCtx, *info)
		cancel()
		if err != nil {
			n.logger.Warnf("[p2p] could not connect to bootstrap peer %s: %v", addr, err)
			continue
		}
		n.trust.observeConnection(info.ID)
	}
}

// probeReachable performs a raw TCP dial against a bootstrap candidate's
// address before the (heavier) libp2p handshake is attempted, so a dead
// candidate fails fast. Candidates using a transport other than TCP (e.g. a
// bare /p2p-circuit relay address) are optimistically treated as reachable
// and left to the libp2p dial itself.
func (n *Node) probeReachable(maddr multiaddr.Multiaddr) bool {
	network, hostport, err := manet.DialArgs(maddr)
	if err != nil || network != "tcp" {
		return true
	}
	conn, err := net.DialTimeout("tcp", hostport, bootstrapProbeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (n *Node) startDHT(ctx context.Context) error {
	kademliaDHT, err := dht.New(ctx, n.host, dht.Mode(dht.ModeAutoServer), dht.ProtocolPrefix(protocol.ID("/"+n.cfg.ProtocolPrefix)))
	if err != nil {
		return err
	}
	if err := kademliaDHT.Bootstrap(ctx); err != nil {
		return err
	}
	n.dht = kademliaDHT
	return nil
}

func (n *Node) startMDNS() {
	svc := mdns.NewMdnsService(n.host, n.cfg.ProtocolPrefix, mdnsNotifee{n})
	if err := svc.Start(); err != nil {
		n.logger.Warnf("[p2p] mDNS discovery failed to start: %v", err)
	}
}

type mdnsNotifee struct{ n *Node }

func (m mdnsNotifee) HandlePeerFound(pi peer.AddrInfo) {
	if pi.ID == m.n.host.ID() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.n.host.Connect(ctx, pi); err != nil {
		m.n.logger.Debugf("[p2p] mDNS peer %s unreachable: %v", pi.ID, err)
		return
	}
	m.n.trust.observeConnection(pi.ID)
}

func (n *Node) clearThrottleLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.limiter.clear()
		}
	}
}

var _ network.StreamHandler = (*Node)(nil).streamHandler
