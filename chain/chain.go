// Package chain implements block validation, the linear chain, and
// longest-work fork choice, grounded on original_source's chain.rs
// (add_block pipeline, genesis-anchor panic) and on the teacher's
// model.Block validation-step naming idiom.
package chain

import (
	"sync"

	"github.com/bitcoin-sv/axiomd/consensus/lwma"
	"github.com/bitcoin-sv/axiomd/consensus/vdf"
	"github.com/bitcoin-sv/axiomd/errors"
	"github.com/bitcoin-sv/axiomd/mempool"
	"github.com/bitcoin-sv/axiomd/model"
	"github.com/bitcoin-sv/axiomd/sigverify"
	"github.com/bitcoin-sv/axiomd/state"
	"github.com/bitcoin-sv/axiomd/ulogger"
	"github.com/bitcoin-sv/axiomd/zkverify"
)

// Chain owns the set of known blocks, the best (longest-work) tip, and the
// ledger state rebuilt along that tip. Per SPEC_FULL.md §5, exactly one
// goroutine — the node orchestrator — is meant to call into a Chain; it is
// internally locked only to make that contract safe to violate under test.
type Chain struct {
	mu sync.Mutex

	logger ulogger.Logger

	vdfVerifier vdf.Verifier
	zkVerifier  zkverify.Verifier
	sigVerifier sigverify.Verifier

	vdfIterations uint64

	maxBlockSize            int
	maxTransactionsPerBlock int

	blocksByHash map[model.Digest32]*model.Block
	heightOf     map[model.Digest32]uint64
	workOf       map[model.Digest32]uint64
	seenHashes   map[model.Digest32]struct{}

	tip   model.Digest32
	state *state.State

	mp *mempool.Mempool
}

// Deps bundles Chain's external collaborators.
type Deps struct {
	Logger        ulogger.Logger
	VDFVerifier   vdf.Verifier
	ZKVerifier    zkverify.Verifier
	SigVerifier   sigverify.Verifier
	VDFIterations uint64
	Mempool       *mempool.Mempool

	// MaxBlockSize and MaxTransactionsPerBlock cap a candidate block's
	// canonical byte size and transaction count. Zero means "use the
	// protocol default" (DefaultMaxBlockSize / DefaultMaxTransactionsPerBlock).
	MaxBlockSize            int
	MaxTransactionsPerBlock int
}

// Protocol-default resource limits, per spec.md §5, overridable via
// settings.ConsensusSettings and threaded in through Deps.
const (
	DefaultMaxBlockSize            = 1_000_000
	DefaultMaxTransactionsPerBlock = 10_000
)

// New constructs a Chain seeded with genesis. If persisted is non-nil it
// is the chain loaded from disk; its first block must match
// model.GenesisAnchor() exactly, or New fails fatally — a persisted chain
// for a different network must never be silently accepted.
func New(deps Deps, persisted []*model.Block) (*Chain, error) {
	if deps.Logger == nil {
		deps.Logger = ulogger.TestLogger("chain")
	}
	if deps.VDFVerifier == nil {
		deps.VDFVerifier = vdf.Default()
	}
	if deps.ZKVerifier == nil {
		deps.ZKVerifier = zkverify.Default{}
	}
	if deps.SigVerifier == nil {
		deps.SigVerifier = sigverify.Default{}
	}
	if deps.MaxBlockSize == 0 {
		deps.MaxBlockSize = DefaultMaxBlockSize
	}
	if deps.MaxTransactionsPerBlock == 0 {
		deps.MaxTransactionsPerBlock = DefaultMaxTransactionsPerBlock
	}

	c := &Chain{
		logger:                  deps.Logger,
		vdfVerifier:             deps.VDFVerifier,
		zkVerifier:              deps.ZKVerifier,
		sigVerifier:             deps.SigVerifier,
		vdfIterations:           deps.VDFIterations,
		maxBlockSize:            deps.MaxBlockSize,
		maxTransactionsPerBlock: deps.MaxTransactionsPerBlock,
		blocksByHash:            make(map[model.Digest32]*model.Block),
		heightOf:      make(map[model.Digest32]uint64),
		workOf:        make(map[model.Digest32]uint64),
		seenHashes:    make(map[model.Digest32]struct{}),
		state:         state.New(),
		mp:            deps.Mempool,
	}

	genesis := model.GenesisAnchor()
	genesisHash := genesis.Hash()

	if len(persisted) > 0 {
		if persisted[0].Hash() != genesisHash {
			return nil, errors.New(errors.ERR_GENESIS_ANCHOR_MISMATCH,
				"persisted chain's first block does not match the protocol genesis anchor")
		}
	}

	c.insert(genesis, genesisHash, 0, genesis.Work())
	c.tip = genesisHash

	for i := 1; i < len(persisted); i++ {
		if err := c.AddBlock(persisted[i]); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Chain) insert(b *model.Block, hash model.Digest32, height, work uint64) {
	c.blocksByHash[hash] = b
	c.heightOf[hash] = height
	c.workOf[hash] = work
	c.seenHashes[hash] = struct{}{}
}

// Tip returns the current best block's hash.
func (c *Chain) Tip() model.Digest32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tip
}

// TipBlock returns the current best block.
func (c *Chain) TipBlock() *model.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocksByHash[c.tip]
}

// Height returns the current best chain's height.
func (c *Chain) Height() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.heightOf[c.tip]
}

// State exposes the ledger rebuilt along the current best chain. Callers
// must not mutate it outside the node orchestrator's single-writer loop.
func (c *Chain) State() *state.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// GetBlock returns the block with the given hash, if known (on the best
// chain or any tracked fork).
func (c *Chain) GetBlock(hash model.Digest32) (*model.Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.blocksByHash[hash]
	return b, ok
}

// HasSeen reports whether hash has already been validated and stored,
// letting gossip handlers short-circuit re-validation of known blocks.
func (c *Chain) HasSeen(hash model.Digest32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seenHashes[hash]
	return ok
}

// Difficulty returns the difficulty the next block on the best chain must
// satisfy, computed by LWMA over the trailing window ending at the tip.
func (c *Chain) Difficulty() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.difficultyForParentLocked(c.tip)
}

func (c *Chain) difficultyForParentLocked(parentHash model.Digest32) uint64 {
	history := c.lwmaHistoryLocked(parentHash)
	return lwma.NextDifficulty(history)
}

// lwmaHistoryLocked walks back from parentHash collecting up to
// lwma.Window+1 (timestamp, difficulty) pairs oldest-first. Each block's
// difficulty is recomputed by running lwma.NextDifficulty over the entries
// before it in this same window; the oldest entry (genesis, while the chain
// is shorter than the window) is seeded at lwma.MinDifficulty.
func (c *Chain) lwmaHistoryLocked(parentHash model.Digest32) []lwma.BlockTimestamps {
	chainBlocks := c.ancestryLocked(parentHash, lwma.Window+1)

	out := make([]lwma.BlockTimestamps, 0, len(chainBlocks))
	for i, b := range chainBlocks {
		diff := uint64(lwma.MinDifficulty)
		if i > 0 {
			diff = lwma.NextDifficulty(out[:i])
		}
		out = append(out, lwma.BlockTimestamps{Timestamp: b.Timestamp, Difficulty: diff})
	}
	return out
}

// ancestryLocked returns up to limit blocks ending at hash, oldest first.
func (c *Chain) ancestryLocked(hash model.Digest32, limit int) []*model.Block {
	var rev []*model.Block
	cur := hash
	for {
		b, ok := c.blocksByHash[cur]
		if !ok {
			break
		}
		rev = append(rev, b)
		if len(rev) >= limit {
			break
		}
		if cur == model.GenesisHash {
			break
		}
		cur = b.Parent
	}
	out := make([]*model.Block, len(rev))
	for i, b := range rev {
		out[len(rev)-1-i] = b
	}
	return out
}

// chainToGenesisLocked returns every block from genesis to hash, oldest
// first, used to rebuild ledger state along a (possibly new) best chain.
func (c *Chain) chainToGenesisLocked(hash model.Digest32) []*model.Block {
	return c.ancestryLocked(hash, 1<<31)
}
