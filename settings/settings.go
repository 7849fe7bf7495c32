// Package settings holds the flattened configuration surface for axiomd,
// read through github.com/ordishs/gocore the same way the upstream chain
// node configures every service.
package settings

import (
	"os"
	"strings"
	"time"

	"github.com/ordishs/gocore"
)

// Settings is the fully-resolved configuration for one node process.
type Settings struct {
	NodeName string
	NodeType string
	DataDir  string
	LogLevel string
	Pretty   bool

	Network   NetworkSettings
	Consensus ConsensusSettings
	Mining    MiningSettings
	Mempool   MempoolSettings
	Storage   StorageSettings
}

type NetworkSettings struct {
	ListenAddress   string
	BootstrapPeers  []string
	EnableMDNS      bool
	EnableKademlia  bool
	ProtocolPrefix  string
	RateLimitPerMin int
	SyncInterval    time.Duration
	MaxPeers        int
	NetworkID       string
}

type ConsensusSettings struct {
	VDFIterations           uint64
	LWMAWindow              int
	TargetBlockTime         time.Duration
	MinDifficulty           uint64
	InitialDifficulty       uint64
	MaxBlockSize            int
	MaxTransactionsPerBlock int
	MinTransactionFee       uint64
}

type MiningSettings struct {
	Enabled        bool
	MinerAddress   string
	MinPeersToMine int
}

type MempoolSettings struct {
	MaxSize      int
	MaxTxSize    int
	ReplaceByFee bool
}

// StorageSettings configures the on-disk chain file. Pruning is off by
// default: this core keeps the full chain history, matching the teacher's
// own default of archival rather than pruned storage.
type StorageSettings struct {
	Pruning bool
}

// Load resolves Settings from gocore.Config(), falling back to the
// documented defaults from spec.md §6 for anything unset.
func Load() *Settings {
	cfg := gocore.Config()

	s := &Settings{
		NodeName: getString(cfg, "node_name", "axiomd"),
		NodeType: getString(cfg, "node_type", "full"),
		DataDir:  getString(cfg, "node_dataDir", "./data"),
		LogLevel: getString(cfg, "node_logLevel", "info"),
		Pretty:   cfg.GetBool("node_prettyLogs", true),

		Network: NetworkSettings{
			ListenAddress:   getString(cfg, "network_listenAddress", "/ip4/0.0.0.0/tcp/9909"),
			BootstrapPeers:  bootstrapPeers(cfg),
			EnableMDNS:      cfg.GetBool("network_enableMDNS", true),
			EnableKademlia:  cfg.GetBool("network_enableKademlia", true),
			ProtocolPrefix:  getString(cfg, "network_protocolPrefix", "axiom"),
			RateLimitPerMin: cfg.GetInt("network_rateLimitPerMin", 100),
			SyncInterval:    time.Duration(cfg.GetInt("network_syncIntervalSeconds", 300)) * time.Second,
			MaxPeers:        cfg.GetInt("network_maxPeers", 50),
			NetworkID:       getString(cfg, "network_networkID", "axiom-mainnet"),
		},
		Consensus: ConsensusSettings{
			VDFIterations:           uint64(cfg.GetInt("consensus_vdfIterations", 100_000)),
			LWMAWindow:              cfg.GetInt("consensus_lwmaWindow", 60),
			TargetBlockTime:         time.Duration(cfg.GetInt("consensus_targetBlockTimeSeconds", 1800)) * time.Second,
			MinDifficulty:           uint64(cfg.GetInt("consensus_minDifficulty", 1000)),
			InitialDifficulty:       uint64(cfg.GetInt("consensus_initialDifficulty", 1000)),
			MaxBlockSize:            cfg.GetInt("consensus_maxBlockSize", 1_000_000),
			MaxTransactionsPerBlock: cfg.GetInt("consensus_maxTransactionsPerBlock", 10_000),
			MinTransactionFee:       uint64(cfg.GetInt("consensus_minTransactionFee", 1)),
		},
		Mining: MiningSettings{
			Enabled:        cfg.GetBool("mining_enabled", false),
			MinerAddress:   getString(cfg, "mining_address", ""),
			MinPeersToMine: cfg.GetInt("mining_minPeersToMine", 0),
		},
		Mempool: MempoolSettings{
			MaxSize:      cfg.GetInt("mempool_maxSize", 100_000),
			MaxTxSize:    cfg.GetInt("mempool_maxTxSizeBytes", 100_000),
			ReplaceByFee: cfg.GetBool("mempool_replaceByFee", false),
		},
		Storage: StorageSettings{
			Pruning: cfg.GetBool("storage_pruning", false),
		},
	}

	if dir := os.Getenv("AXIOM_DATA_DIR"); dir != "" {
		s.DataDir = dir
	}
	if level := os.Getenv("AXIOM_LOG_LEVEL"); level != "" {
		s.LogLevel = level
	}

	return s
}

func getString(cfg *gocore.ConfigStruct, key, def string) string {
	v, _ := cfg.Get(key, def)
	return v
}

// bootstrapPeers resolves AXIOM_BOOTSTRAP_PEERS (comma separated multiaddrs)
// first, then the gocore-configured key, matching original_source's
// environment-then-config-file resolution order.
func bootstrapPeers(cfg *gocore.ConfigStruct) []string {
	if env := os.Getenv("AXIOM_BOOTSTRAP_PEERS"); env != "" {
		return splitAndTrim(env)
	}
	v, _ := cfg.Get("network_bootstrapPeers", "")
	if v == "" {
		return nil
	}
	return splitAndTrim(v)
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
