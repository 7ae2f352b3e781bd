// Package node implements the tagged tree model (C1): nodes carrying
// aggregated size/count/time statistics under the ownership and
// concurrency discipline described by the scanner and aggregator.
package node

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// Kind tags the variant a Node represents. There is no inheritance
// hierarchy: every node is the same struct, and Kind selects which
// fields are meaningful.
type Kind uint8

const (
	KindMyComputer Kind = iota
	KindDrive
	KindDirectory
	KindFile
	KindFreeSpace
	KindUnknown
	KindHardlinksRoot
	KindHardlinkIndexSet
	KindHardlinkIndex
	KindHardlinkFileRef
)

func (k Kind) IsLeaf() bool {
	switch k {
	case KindFile, KindFreeSpace, KindUnknown, KindHardlinkFileRef:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	switch k {
	case KindMyComputer:
		return "MyComputer"
	case KindDrive:
		return "Drive"
	case KindDirectory:
		return "Directory"
	case KindFile:
		return "File"
	case KindFreeSpace:
		return "FreeSpace"
	case KindUnknown:
		return "Unknown"
	case KindHardlinksRoot:
		return "HardlinksRoot"
	case KindHardlinkIndexSet:
		return "HardlinkIndexSet"
	case KindHardlinkIndex:
		return "HardlinkIndex"
	case KindHardlinkFileRef:
		return "HardlinkFileRef"
	default:
		return "Unknown"
	}
}

// Flag holds boolean attributes that don't warrant their own field.
type Flag uint16

const (
	FlagNone Flag = 0
	// FlagIsHardlink marks a File whose physical bytes were moved to a
	// HardlinkIndex node; see the aggregator's hardlink adjustment.
	FlagIsHardlink Flag = 1 << iota
	FlagSymlink
	FlagJunction
	FlagMountPoint
	FlagAccessDenied
	FlagUsageEstimated
)

// ErrInvariantViolation is returned by AddChild when the caller tries to
// attach a child under a leaf kind.
type ErrInvariantViolation struct {
	Op     string
	Parent Kind
}

func (e *ErrInvariantViolation) Error() string {
	return "node: invariant violation: " + e.Op + " on leaf kind " + e.Parent.String()
}

// Node is the tagged tree node. Every numeric aggregate field is updated
// with atomics so upward_add/upward_subtract from concurrent scanner
// workers never race with a reader.
type Node struct {
	Kind Kind
	Name string

	// FullPath is only populated for roots, hardlink refs, and anything
	// else that needs it independent of walking Parent; it is
	// reconstructed on demand elsewhere via Path().
	FullPath string

	mu       sync.RWMutex
	parent   *Node // weak: lookup only, never implies lifetime
	children []*Node

	sizeLogical  int64
	sizePhysical int64
	itemsCount   int64
	filesCount   int64
	foldersCount int64
	lastChangeNS int64 // UnixNano, atomic

	Attributes uint32
	Owner      string // SID or empty
	FileIndex  uint64 // 0 if unavailable
	Extension  string // lowercase, leading dot

	GraphColor string // palette entry key, or "" for unassigned

	flags    atomic.Uint32
	done     atomic.Bool
	readJobs atomic.Int64

	Rect Rect // assigned by the treemap layout pass

	generation uint64 // bumped on destroy; weak refs check this
}

// New constructs a bare node of the given kind, not yet attached to a
// parent. Callers set Name/Attributes/etc before AddChild.
func New(kind Kind, name string) *Node {
	return &Node{Kind: kind, Name: name}
}

func (n *Node) Flags() Flag        { return Flag(n.flags.Load()) }
func (n *Node) SetFlag(f Flag)     { n.flags.Store(uint32(Flag(n.flags.Load()) | f)) }
func (n *Node) ClearFlag(f Flag)   { n.flags.Store(uint32(Flag(n.flags.Load()) &^ f)) }
func (n *Node) HasFlag(f Flag) bool { return Flag(n.flags.Load())&f != 0 }

func (n *Node) SizeLogical() int64  { return atomic.LoadInt64(&n.sizeLogical) }
func (n *Node) SizePhysical() int64 { return atomic.LoadInt64(&n.sizePhysical) }
func (n *Node) ItemsCount() int64   { return atomic.LoadInt64(&n.itemsCount) }
func (n *Node) FilesCount() int64   { return atomic.LoadInt64(&n.filesCount) }
func (n *Node) FoldersCount() int64 { return atomic.LoadInt64(&n.foldersCount) }

func (n *Node) LastChange() time.Time {
	ns := atomic.LoadInt64(&n.lastChangeNS)
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (n *Node) SetLastChange(t time.Time) {
	atomic.StoreInt64(&n.lastChangeNS, t.UnixNano())
}

// Parent returns the weak back-reference. Never assume it keeps the
// parent alive; it is for lookups and path reconstruction only.
func (n *Node) Parent() *Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.parent
}

// Generation is the liveness token weak holders (hardlink index,
// duplicate sets, search results, top-N) must capture and re-check.
func (n *Node) Generation() uint64 { return atomic.LoadUint64(&n.generation) }

// WeakRef is a non-owning handle into the primary tree (invariant 1,
// §3.2.1): cross-structures such as duplicate sets, top-N, and search
// results hold these instead of plain *Node pointers, so a removal
// anywhere in the tree is detectable without the holder scanning the
// tree itself.
type WeakRef struct {
	target *Node
	gen    uint64
}

// NewWeakRef captures n's current generation.
func NewWeakRef(n *Node) WeakRef {
	if n == nil {
		return WeakRef{}
	}
	return WeakRef{target: n, gen: n.Generation()}
}

// Get re-validates the reference, returning (nil, false) if the node (or
// any ancestor) was destroyed since the reference was taken.
func (w WeakRef) Get() (*Node, bool) {
	if w.target == nil || w.target.Generation() != w.gen {
		return nil, false
	}
	return w.target, true
}

// Children returns a snapshot of the ordered child sequence.
func (n *Node) Children() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	cp := make([]*Node, len(n.children))
	copy(cp, n.children)
	return cp
}

// ReadJobs reports the count of descendant directories (including this
// one, if it is such a directory) not yet fully enumerated.
func (n *Node) ReadJobs() int64 { return n.readJobs.Load() }

// Done reports whether every descendant has completed enumeration and
// been aggregated (invariant 3, §3.2).
func (n *Node) Done() bool { return n.done.Load() }

// MarkEnumerating sets read_jobs=1 on a freshly created directory node,
// the initial state before its task is popped off the work queue.
func (n *Node) MarkEnumerating() {
	n.readJobs.Store(1)
	n.done.Store(false)
}

// AddPendingChild records that a subdirectory task has just been queued
// under n: read_jobs is incremented so n (and, once its own listing
// finishes, its ancestors via CompleteDirectory) won't be marked done
// until that child's subtree has too. Call this once per queued child,
// on the parent the child was attached to.
func (n *Node) AddPendingChild() {
	n.readJobs.Add(1)
}

// MarkDoneLeaf marks a freshly built leaf (file, synthetic child, ...)
// done immediately; leaves have no read_jobs of their own.
func (n *Node) MarkDoneLeaf() {
	n.done.Store(true)
}

// MarkDone marks any node (including synthetic non-leaf containers like
// HardlinksRoot/HardlinkIndexSet, built directly by the aggregator rather
// than through the scanner's read_jobs machinery) as fully aggregated.
func (n *Node) MarkDone() {
	n.done.Store(true)
}

// ZeroPhysical clears the physical-size contribution of a node whose
// bytes were moved elsewhere (the hardlink billing adjustment, §4.3(c)).
// Logical size is left untouched.
func (n *Node) ZeroPhysical() {
	atomic.StoreInt64(&n.sizePhysical, 0)
}

// SeedLeafSize sets a freshly created leaf's own size before it is
// attached with AddChild (which reads these fields to compute the
// upward delta). Only valid before the node has a parent.
func (n *Node) SeedLeafSize(logical, physical int64) {
	atomic.StoreInt64(&n.sizeLogical, logical)
	atomic.StoreInt64(&n.sizePhysical, physical)
}

// AddChild appends child under parent. If propagate is true the child's
// current aggregate is folded into parent and all of parent's ancestors.
// AddChild leaves every node's done flag unchanged. Returns
// ErrInvariantViolation if parent is a leaf kind.
func AddChild(parent, child *Node, propagate bool) error {
	if parent.Kind.IsLeaf() {
		return &ErrInvariantViolation{Op: "add_child", Parent: parent.Kind}
	}
	parent.mu.Lock()
	child.mu.Lock()
	child.parent = parent
	parent.children = append(parent.children, child)
	child.mu.Unlock()
	parent.mu.Unlock()

	if propagate {
		upwardAdd(parent, child.SizeLogical(), child.SizePhysical(),
			childItemDelta(child), childFileDelta(child), childFolderDelta(child),
			child.LastChange())
	}
	return nil
}

func childItemDelta(c *Node) int64 {
	// A directory contributes its own recursive item count plus itself;
	// a leaf contributes exactly one item.
	if !c.Kind.IsLeaf() {
		return c.ItemsCount() + 1
	}
	return 1
}

func childFileDelta(c *Node) int64 {
	if c.Kind == KindFile || c.Kind == KindHardlinkFileRef {
		return c.FilesCount() + 1
	}
	return c.FilesCount()
}

func childFolderDelta(c *Node) int64 {
	if !c.Kind.IsLeaf() {
		return c.FoldersCount() + 1
	}
	return c.FoldersCount()
}

// RemoveChild detaches child from parent's sequence, subtracts its
// aggregate from every ancestor, and destroys the subtree (invalidating
// weak holders via the generation counter).
func RemoveChild(parent, child *Node) bool {
	parent.mu.Lock()
	found := -1
	for i, c := range parent.children {
		if c == child {
			found = i
			break
		}
	}
	if found == -1 {
		parent.mu.Unlock()
		return false
	}
	parent.children = append(parent.children[:found], parent.children[found+1:]...)
	parent.mu.Unlock()

	upwardSubtract(parent, child.SizeLogical(), child.SizePhysical(),
		childItemDelta(child), childFileDelta(child), childFolderDelta(child))

	destroy(child)
	return true
}

// destroy invalidates child and everything beneath it so weak holders
// (hardlink index, duplicate sets, search results, top-N) detect staleness
// via Generation() on their next dereference.
func destroy(n *Node) {
	atomic.AddUint64(&n.generation, 1)
	for _, c := range n.Children() {
		destroy(c)
	}
}

// upwardAdd applies (delta_logical, delta_physical, delta_items,
// delta_files, delta_folders, delta_last_change_max) atomically at every
// node from start up through the root. Each node's numeric fields are
// updated with atomic fetch-add; last_change takes the max.
func upwardAdd(start *Node, dLogical, dPhysical, dItems, dFiles, dFolders int64, lastChange time.Time) {
	for node := start; node != nil; node = node.Parent() {
		atomic.AddInt64(&node.sizeLogical, dLogical)
		atomic.AddInt64(&node.sizePhysical, dPhysical)
		atomic.AddInt64(&node.itemsCount, dItems)
		atomic.AddInt64(&node.filesCount, dFiles)
		atomic.AddInt64(&node.foldersCount, dFolders)
		bumpLastChange(node, lastChange)
	}
}

func upwardSubtract(start *Node, dLogical, dPhysical, dItems, dFiles, dFolders int64) {
	upwardAdd(start, -dLogical, -dPhysical, -dItems, -dFiles, -dFolders, time.Time{})
}

// UpwardAdjust is the public entry point used by the aggregator for
// arbitrary deltas that don't correspond to a whole child (free/unknown
// synthesis, hardlink billing adjustments, watcher diffs).
func UpwardAdjust(start *Node, dLogical, dPhysical, dItems, dFiles, dFolders int64, lastChange time.Time) {
	upwardAdd(start, dLogical, dPhysical, dItems, dFiles, dFolders, lastChange)
}

func bumpLastChange(n *Node, t time.Time) {
	if t.IsZero() {
		return
	}
	ns := t.UnixNano()
	for {
		cur := atomic.LoadInt64(&n.lastChangeNS)
		if ns <= cur {
			return
		}
		if atomic.CompareAndSwapInt64(&n.lastChangeNS, cur, ns) {
			return
		}
	}
}

// CompleteDirectory decrements read_jobs along the parent chain starting
// at dir (the directory whose enumeration just finished); when a node's
// counter reaches zero it is marked Done and the decrement continues to
// its parent, per the causal completion rule: a parent's done observation
// strictly follows every child's done observation.
func CompleteDirectory(dir *Node) {
	for node := dir; node != nil; node = node.Parent() {
		remaining := node.readJobs.Add(-1)
		if remaining > 0 {
			return
		}
		node.done.Store(true)
	}
}

// Path reconstructs the full path by walking the parent chain. Only
// roots carry FullPath directly; everything else is computed on demand.
func (n *Node) Path() string {
	if n.FullPath != "" {
		return n.FullPath
	}
	parent := n.Parent()
	if parent == nil {
		return n.Name
	}
	depth := 0
	for p := parent; p != nil; p = p.Parent() {
		depth++
	}
	parts := make([]string, depth+1)
	parts[depth] = n.Name
	i := depth - 1
	for p := parent; p != nil; p = p.Parent() {
		if p.FullPath != "" && i == 0 {
			return filepath.Join(p.FullPath, filepath.Join(parts[1:]...))
		}
		parts[i] = p.Name
		i--
	}
	return filepath.Join(parts...)
}

// Rect is the rectangle the treemap layout assigns to a node. The
// sentinel ZeroSizeRect marks a child dropped from drawing because its
// row ran out of space (§4.7).
type Rect struct {
	X, Y, W, H int
}

var ZeroSizeRect = Rect{X: -1, Y: -1, W: -1, H: -1}

func (r Rect) IsDrawable() bool { return r.W > 0 && r.H > 0 }

// Contains reports whether sub lies entirely within r (invariant 6).
func (r Rect) Contains(sub Rect) bool {
	if !sub.IsDrawable() {
		return true
	}
	return sub.X >= r.X && sub.Y >= r.Y &&
		sub.X+sub.W <= r.X+r.W && sub.Y+sub.H <= r.Y+r.H
}
