package mempool

import (
	"container/heap"
	"sort"

	"github.com/bitcoin-sv/axiomd/model"
	"github.com/dolthub/swiss"
)

// feeEntry is one (digest, fee) pair tracked by the fee-ranked index. The
// index is a min-heap on fee so evicting the lowest-fee transaction is
// O(log n); entries for already-removed transactions are left in place and
// skipped lazily, since container/heap offers no O(log n) delete-by-key.
type feeEntry struct {
	digest model.Digest32
	fee    uint64
}

type feeHeap struct {
	entries []*feeEntry
}

func newFeeHeap() *feeHeap { return &feeHeap{} }

func (h *feeHeap) Len() int { return len(h.entries) }
func (h *feeHeap) Less(i, j int) bool { return h.entries[i].fee < h.entries[j].fee }
func (h *feeHeap) Swap(i, j int)      { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *feeHeap) Push(x any) { h.entries = append(h.entries, x.(*feeEntry)) }

func (h *feeHeap) Pop() any {
	n := len(h.entries)
	e := h.entries[n-1]
	h.entries = h.entries[:n-1]
	return e
}

// peekLowest returns the current minimum-fee entry without popping it and
// without mutating the heap. The entry may be stale (its transaction already
// removed); Mempool.Add pops stale entries off the top before relying on it.
func (h *feeHeap) peekLowest() *feeEntry {
	if len(h.entries) == 0 {
		return nil
	}
	return h.entries[0]
}

// prune drops entries whose transaction is no longer present in live,
// rebuilding the heap invariant afterward. Called before a full scan
// (GetForMining) where stale entries would otherwise distort ordering.
func (h *feeHeap) prune(live *swiss.Map[model.Digest32, *model.Transaction]) {
	kept := h.entries[:0]
	for _, e := range h.entries {
		if _, ok := live.Get(e.digest); ok {
			kept = append(kept, e)
		}
	}
	h.entries = kept
	heap.Init(h)
}

// sortedDescending returns a fee-descending snapshot of the current
// entries, used by GetForMining's candidate selection.
func (h *feeHeap) sortedDescending() []*feeEntry {
	out := make([]*feeEntry, len(h.entries))
	copy(out, h.entries)
	sort.Slice(out, func(i, j int) bool { return out[i].fee > out[j].fee })
	return out
}
