// Package mempool implements the fee-ranked, nullifier-protected pending
// transaction pool, grounded on original_source's mempool.rs.
package mempool

import (
	"container/heap"
	"sync"

	"github.com/bitcoin-sv/axiomd/errors"
	"github.com/bitcoin-sv/axiomd/model"
	"github.com/bitcoin-sv/axiomd/sigverify"
	"github.com/dolthub/swiss"
)

const (
	DefaultMaxSize   = 100_000
	DefaultMaxTxSize = 100_000
)

// Mempool holds transactions awaiting inclusion in a block. Admission is
// fee-ranked: once full, a new transaction may only enter by outbidding
// (and evicting) the current lowest-fee entry.
type Mempool struct {
	mu sync.Mutex

	byDigest *swiss.Map[model.Digest32, *model.Transaction]
	bySender map[model.Address][]model.Digest32
	byFee    *feeHeap
	nullifiers map[model.Digest32]model.Digest32 // nullifier -> tx digest

	maxSize      int
	maxTxSize    int
	replaceByFee bool
	sigVerifier  sigverify.Verifier

	totalFees uint64
}

// Option configures a Mempool at construction.
type Option func(*Mempool)

// WithMaxSize overrides DefaultMaxSize.
func WithMaxSize(n int) Option { return func(m *Mempool) { m.maxSize = n } }

// WithMaxTxSize overrides DefaultMaxTxSize.
func WithMaxTxSize(n int) Option { return func(m *Mempool) { m.maxTxSize = n } }

// WithReplaceByFee enables replace-by-fee admission for a transaction
// reusing an already-queued sender/nonce pair, per DESIGN.md Open
// Question (b). Default is reject.
func WithReplaceByFee(enabled bool) Option {
	return func(m *Mempool) { m.replaceByFee = enabled }
}

// WithSigVerifier sets the predicate that gates admission on a valid sender
// signature. Defaults to sigverify.Default{} if never set.
func WithSigVerifier(v sigverify.Verifier) Option {
	return func(m *Mempool) { m.sigVerifier = v }
}

// New builds an empty mempool.
func New(opts ...Option) *Mempool {
	m := &Mempool{
		byDigest:    swiss.NewMap[model.Digest32, *model.Transaction](1024),
		bySender:    make(map[model.Address][]model.Digest32),
		byFee:       newFeeHeap(),
		nullifiers:  make(map[model.Digest32]model.Digest32),
		maxSize:     DefaultMaxSize,
		maxTxSize:   DefaultMaxTxSize,
		sigVerifier: sigverify.Default{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add admits tx into the pool. It rejects oversized transactions,
// duplicate nullifiers (unless ReplaceByFee is enabled and the new fee is
// strictly higher), and — once the pool is at capacity — any transaction
// whose fee does not exceed the current lowest queued fee.
func (m *Mempool) Add(tx *model.Transaction) error {
	if len(tx.Bytes()) > m.maxTxSize {
		return errors.New(errors.ERR_INVALID_TRANSACTION, "transaction exceeds max size %d", m.maxTxSize)
	}
	if !m.sigVerifier.Verify(tx.From, tx.Bytes(), tx.Signature) {
		return errors.ErrInvalidSignature
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	digest := tx.Digest()
	nullifier := tx.Nullifier()

	if existingDigest, dup := m.nullifiers[nullifier]; dup {
		existing, ok := m.byDigest.Get(existingDigest)
		if !ok {
			delete(m.nullifiers, nullifier)
		} else if !m.replaceByFee || tx.Fee <= existing.Fee {
			return errors.ErrDuplicateNullifier
		} else {
			m.removeLocked(existingDigest)
		}
	}

	if _, exists := m.byDigest.Get(digest); exists {
		return errors.ErrDuplicateBlock // reusing the "already have it" semantics for tx dedup
	}

	if m.byDigest.Count() >= m.maxSize {
		lowest := m.byFee.peekLowest()
		for lowest != nil {
			if _, live := m.byDigest.Get(lowest.digest); live {
				break
			}
			heap.Pop(m.byFee)
			lowest = m.byFee.peekLowest()
		}
		if lowest == nil || tx.Fee <= lowest.fee {
			return errors.ErrFeeTooLow
		}
		m.evictLowestLocked()
	}

	m.byDigest.Put(digest, tx)
	m.nullifiers[nullifier] = digest
	m.bySender[tx.From] = append(m.bySender[tx.From], digest)
	heap.Push(m.byFee, &feeEntry{digest: digest, fee: tx.Fee})
	m.totalFees += tx.Fee

	return nil
}

// Get returns the transaction with the given digest, if present.
func (m *Mempool) Get(digest model.Digest32) (*model.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byDigest.Get(digest)
}

// Contains reports whether digest is queued.
func (m *Mempool) Contains(digest model.Digest32) bool {
	_, ok := m.Get(digest)
	return ok
}

// Remove drops a single transaction from the pool (e.g. because it was
// just included in a block).
func (m *Mempool) Remove(digest model.Digest32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(digest)
}

// RemoveBatch removes every digest in digests, used after a block lands.
func (m *Mempool) RemoveBatch(digests []model.Digest32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range digests {
		m.removeLocked(d)
	}
}

func (m *Mempool) removeLocked(digest model.Digest32) {
	tx, ok := m.byDigest.Get(digest)
	if !ok {
		return
	}
	m.byDigest.Delete(digest)
	delete(m.nullifiers, tx.Nullifier())
	m.totalFees -= tx.Fee

	senderTxs := m.bySender[tx.From]
	for i, d := range senderTxs {
		if d == digest {
			m.bySender[tx.From] = append(senderTxs[:i], senderTxs[i+1:]...)
			break
		}
	}
	if len(m.bySender[tx.From]) == 0 {
		delete(m.bySender, tx.From)
	}
	// The fee-heap entry is left in place and skipped lazily on pop/peek
	// (see feeHeap.prune), since container/heap has no O(log n) arbitrary
	// delete without tracking heap indices per entry.
}

func (m *Mempool) evictLowestLocked() {
	for m.byFee.Len() > 0 {
		entry := heap.Pop(m.byFee).(*feeEntry)
		if _, ok := m.byDigest.Get(entry.digest); ok {
			m.removeLocked(entry.digest)
			return
		}
	}
}

// GetBySender returns all queued transactions from addr.
func (m *Mempool) GetBySender(addr model.Address) []*model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	digests := m.bySender[addr]
	out := make([]*model.Transaction, 0, len(digests))
	for _, d := range digests {
		if tx, ok := m.byDigest.Get(d); ok {
			out = append(out, tx)
		}
	}
	return out
}

// GetForMining returns up to limit transactions ordered by descending fee,
// the selection a miner assembles a candidate block from.
func (m *Mempool) GetForMining(limit int) []*model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byFee.prune(m.byDigest)
	ordered := m.byFee.sortedDescending()

	out := make([]*model.Transaction, 0, limit)
	for _, entry := range ordered {
		if len(out) >= limit {
			break
		}
		if tx, ok := m.byDigest.Get(entry.digest); ok {
			out = append(out, tx)
		}
	}
	return out
}

// Len returns the number of queued transactions.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byDigest.Count()
}

// IsEmpty reports whether the pool has no queued transactions.
func (m *Mempool) IsEmpty() bool { return m.Len() == 0 }

// TotalFees returns the sum of fees across all queued transactions.
func (m *Mempool) TotalFees() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalFees
}

// Clear empties the pool.
func (m *Mempool) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byDigest = swiss.NewMap[model.Digest32, *model.Transaction](1024)
	m.bySender = make(map[model.Address][]model.Digest32)
	m.byFee = newFeeHeap()
	m.nullifiers = make(map[model.Digest32]model.Digest32)
	m.totalFees = 0
}

// Stats summarizes pool occupancy for diagnostics and gossip status lines.
type Stats struct {
	Count     int
	TotalFees uint64
	MaxSize   int
}

func (m *Mempool) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Count: m.byDigest.Count(), TotalFees: m.totalFees, MaxSize: m.maxSize}
}
