// Package derived implements the cross-tree views of C5 (§4.5): a
// largest-files top-N view, a hash-keyed duplicate-file detector, and a
// regex/glob name search. Every view holds node.WeakRef handles rather
// than plain pointers, per invariant 1 (§3.2.1): the primary tree is the
// single owner, and these views must re-validate on every use.
package derived

import (
	"sort"
	"sync"

	"github.com/briarlane/duscape/internal/node"
)

// TopN maintains the N largest files seen so far, ordered by physical
// size descending. Insertion is O(log n) via binary search into a small
// slice; N is expected to be small (tens to low hundreds), so a slice
// beats a heap for cache locality and simplicity, matching the spec's
// "ordered set of capacity N" framing (§5 Backpressure).
type TopN struct {
	mu    sync.Mutex
	cap   int
	items []topEntry
}

type topEntry struct {
	ref  node.WeakRef
	size int64
}

// NewTopN creates a view bounded to capacity n (n must be >= 1).
func NewTopN(n int) *TopN {
	if n < 1 {
		n = 1
	}
	return &TopN{cap: n}
}

// Offer considers f for inclusion; f must be a File-kind (or hardlink
// ref) leaf. Returns true if it was inserted (possibly evicting the
// current smallest entry).
func (t *TopN) Offer(f *node.Node) bool {
	size := f.SizePhysical()
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.items) >= t.cap && size <= t.items[len(t.items)-1].size {
		return false
	}

	idx := sort.Search(len(t.items), func(i int) bool { return t.items[i].size <= size })
	t.items = append(t.items, topEntry{})
	copy(t.items[idx+1:], t.items[idx:])
	t.items[idx] = topEntry{ref: node.NewWeakRef(f), size: size}

	if len(t.items) > t.cap {
		t.items = t.items[:t.cap]
	}
	return true
}

// Snapshot returns the currently live entries, dropping any whose
// backing node was removed since it was offered (re-validated via
// node.WeakRef per use, invariant 1).
func (t *TopN) Snapshot() []*node.Node {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*node.Node, 0, len(t.items))
	live := t.items[:0]
	for _, e := range t.items {
		n, ok := e.ref.Get()
		if !ok {
			continue
		}
		live = append(live, e)
		out = append(out, n)
	}
	t.items = live
	return out
}

// Remove drops n from the view if present; called by the hint bus on
// NodeRemoved so a freshly-stale entry doesn't linger until the next
// Snapshot (§4.5 Search, same detachment discipline applies to top-N).
func (t *TopN) Remove(target *node.Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.items[:0]
	for _, e := range t.items {
		if n, ok := e.ref.Get(); ok && n != target {
			kept = append(kept, e)
		}
	}
	t.items = kept
}
