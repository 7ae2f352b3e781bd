// Package engine ties the core collaborators together (§5): the
// scanner, the two aggregator duties not already inline in node
// (free/unknown synthesis, hardlink billing), the watcher, the
// per-extension summary, the derived cross-tree views, and the hint
// bus. It is the single place that enforces the single-writer lock
// discipline: scan/refresh/aggregate mutations take the write lock,
// every reader (presenters, layout, renderer, report export) takes the
// read lock, and derived views keep their own internal locking so they
// are never held across a call into another collaborator.
package engine

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/briarlane/duscape/internal/aggregate"
	"github.com/briarlane/duscape/internal/derived"
	"github.com/briarlane/duscape/internal/extsummary"
	"github.com/briarlane/duscape/internal/fsiface"
	"github.com/briarlane/duscape/internal/hintbus"
	"github.com/briarlane/duscape/internal/node"
	"github.com/briarlane/duscape/internal/report"
	"github.com/briarlane/duscape/internal/scanner"
	"github.com/briarlane/duscape/internal/watcher"
)

// Config wires in the collaborators and tunables an Engine needs at
// construction time. Enumerator and ChangeStream are swapped out
// wholesale for remote (SFTP) targets; everything downstream (scanner,
// watcher, refresher) stays the same.
type Config struct {
	Enumerator   fsiface.Enumerator
	ChangeStream fsiface.ChangeStream // nil disables StartWatch
	Options      scanner.Options

	TopNCapacity  int  // 0 uses a built-in default
	ExtensionTopK int  // 0 uses a built-in default
	UsePhysical   bool // size field used for the extension summary; top-N always ranks by physical size
}

const (
	defaultTopNCapacity  = 50
	defaultExtensionTopK = 12
)

// rootBinding pairs a node in the tree with the absolute path it was
// scanned from, the unit the watcher and per-drive aggregation operate
// on.
type rootBinding struct {
	node *node.Node
	path string
}

// Engine owns the primary tree and every collaborator that reads or
// mutates it. The zero value is not usable; construct with New.
type Engine struct {
	mu sync.RWMutex

	enum   fsiface.Enumerator
	opts   scanner.Options
	stream fsiface.ChangeStream
	refr   *dirRefresher

	root        *node.Node
	rootBinds   []rootBinding
	usePhysical bool
	extTopK     int
	topNCap     int

	bus      *hintbus.Bus
	topN     *derived.TopN
	dupIndex *derived.DuplicateIndex
	extSum   extsummary.Summary

	sc *scanner.Scanner

	watchMu     sync.Mutex
	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// New constructs an Engine from cfg. It holds no tree until Scan (or
// Adopt, for callers driving their own progress UI) is called.
func New(cfg Config) *Engine {
	topNCap := cfg.TopNCapacity
	if topNCap <= 0 {
		topNCap = defaultTopNCapacity
	}
	extTopK := cfg.ExtensionTopK
	if extTopK <= 0 {
		extTopK = defaultExtensionTopK
	}
	return &Engine{
		enum:        cfg.Enumerator,
		opts:        cfg.Options,
		stream:      cfg.ChangeStream,
		refr:        newDirRefresher(cfg.Enumerator, cfg.Options),
		usePhysical: cfg.UsePhysical,
		extTopK:     extTopK,
		topNCap:     topNCap,
		bus:         hintbus.New(),
		topN:        derived.NewTopN(topNCap),
		dupIndex:    derived.NewDuplicateIndex(),
	}
}

// Bus returns the hint-bus subscribers register against.
func (e *Engine) Bus() *hintbus.Bus { return e.bus }

// NewScanner builds a fresh scanner.Scanner bound to this Engine's
// enumerator/options, for a caller (e.g. progressui.RunScan) that wants
// to drive Scan/Suspend/Resume/Cancel directly while rendering its own
// progress display. Call Adopt with the result once it returns.
func (e *Engine) NewScanner() *scanner.Scanner {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sc = scanner.New(e.enum, e.opts)
	return e.sc
}

// Scan runs a headless scan (no progress UI) and adopts the result.
// scanErr from the underlying scanner.Scan (a CancelReason, ctx.Err, or
// ErrRootUnavailable) is returned unchanged after Adopt runs, so a
// partial tree is still usable even on error.
func (e *Engine) Scan(ctx context.Context, roots []string) error {
	sc := e.NewScanner()
	root, err := sc.Scan(ctx, roots)
	e.Adopt(root, roots)
	return err
}

// Adopt takes ownership of a tree built by a scan this Engine kicked off
// via NewScanner (typically run through progressui.RunScan), runs the
// post-scan aggregate passes (§4.3(b)/(c)), (re)builds the derived views
// and extension summary, and publishes hintbus.NewRoot.
func (e *Engine) Adopt(root *node.Node, roots []string) {
	if root == nil {
		return
	}
	e.mu.Lock()

	e.root = root
	e.rootBinds = bindRoots(root, roots)

	for _, rb := range e.rootBinds {
		if rb.node.Kind != node.KindDrive {
			continue
		}
		aggregate.RemoveSynthetic(rb.node)
		// AdjustHardlinks changes the drive's own SizePhysical() (it
		// removes the double-billed bytes of every hardlink group and
		// bills back one representative contribution), so it must run
		// before SynthesizeFreeUnknown snapshots "tallied" — otherwise
		// Unknown is computed from a pre-dedup total and the drive's
		// closure (total = tallied + free + unknown) no longer holds.
		aggregate.AdjustHardlinks(rb.node)
		if info, err := e.enum.Stat(rb.path); err == nil {
			aggregate.SynthesizeFreeUnknown(rb.node, info)
		}
	}

	e.rebuildDerivedLocked()
	e.rebuildExtensionSummaryLocked()

	e.mu.Unlock()
	e.bus.Publish(hintbus.Event{Kind: hintbus.NewRoot})
}

// bindRoots pairs root's per-scan-root nodes with the path each was
// scanned from: root itself when there was exactly one, or root's
// children in the order Scan attached them when it synthesized a
// My Computer container for multiple roots.
func bindRoots(root *node.Node, roots []string) []rootBinding {
	if len(roots) == 0 {
		return nil
	}
	if root.Kind != node.KindMyComputer {
		return []rootBinding{{node: root, path: roots[0]}}
	}
	children := root.Children()
	out := make([]rootBinding, 0, len(children))
	for i, c := range children {
		if i >= len(roots) {
			break
		}
		out = append(out, rootBinding{node: c, path: roots[i]})
	}
	return out
}

func (e *Engine) rebuildDerivedLocked() {
	e.topN = derived.NewTopN(e.topNCap)
	e.dupIndex = derived.NewDuplicateIndex()
	var walk func(*node.Node)
	walk = func(n *node.Node) {
		if n.Kind == node.KindFile || n.Kind == node.KindHardlinkFileRef {
			e.topN.Offer(n)
			if e.opts.ScanForDuplicates {
				e.dupIndex.Observe(n)
			}
			return
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(e.root)
	if e.opts.ScanForDuplicates {
		e.dupIndex.Resolve(derived.FingerprintFile)
	}
}

func (e *Engine) rebuildExtensionSummaryLocked() {
	e.extSum = extsummary.Build(e.root, e.extTopK, e.usePhysical)
}

// Root returns the current tree root and a release function; the caller
// must call release when done reading (§5 rule 2: readers take a shared
// lock, never the exclusive one).
func (e *Engine) Root() (root *node.Node, release func()) {
	e.mu.RLock()
	return e.root, e.mu.RUnlock
}

// ExtensionSummary returns the current per-extension breakdown (§4.6),
// rebuilt wholesale after every scan/refresh.
func (e *Engine) ExtensionSummary() extsummary.Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.extSum
}

// TopN returns the largest-files view (§4.5).
func (e *Engine) TopN() *derived.TopN { return e.topN }

// Duplicates returns the duplicate-file index (§4.5).
func (e *Engine) Duplicates() *derived.DuplicateIndex { return e.dupIndex }

// Search runs a name search over the live tree (§4.5).
func (e *Engine) Search(m derived.Matcher) *derived.SearchResults {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.root == nil {
		return &derived.SearchResults{}
	}
	return derived.Search(e.root, m)
}

// Suspend/Resume/Cancel delegate to the Scanner created by NewScanner,
// for a headless caller that isn't going through progressui.
func (e *Engine) Suspend() {
	if e.sc != nil {
		e.sc.Suspend()
	}
}

func (e *Engine) Resume() {
	if e.sc != nil {
		e.sc.Resume()
	}
}

func (e *Engine) Cancel(reason error) {
	if e.sc != nil {
		e.sc.Cancel(reason)
	}
}

// StartWatch begins watching every bound scan root via the configured
// ChangeStream, applying each change under the exclusive write lock and
// republishing the hint bus and derived views/extension summary
// afterward. It is a no-op if ChangeStream is nil (e.g. a remote target
// with no live notification support).
func (e *Engine) StartWatch(ctx context.Context) error {
	if e.stream == nil {
		return nil
	}
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	if e.watchCancel != nil {
		return fmt.Errorf("engine: watch already running")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	e.watchCancel = cancel
	e.watchDone = make(chan struct{})

	e.mu.RLock()
	binds := append([]rootBinding(nil), e.rootBinds...)
	e.mu.RUnlock()

	var wg sync.WaitGroup
	for _, rb := range binds {
		ch, err := e.stream.Watch(watchCtx, rb.path)
		if err != nil {
			continue
		}
		wg.Add(1)
		go func(rb rootBinding, ch <-chan fsiface.ChangeEvent) {
			defer wg.Done()
			for ev := range ch {
				e.applyChange(rb, ev)
			}
		}(rb, ch)
	}

	go func() {
		wg.Wait()
		close(e.watchDone)
	}()
	return nil
}

// StopWatch cancels every active watch goroutine and waits for them to
// drain.
func (e *Engine) StopWatch() {
	e.watchMu.Lock()
	cancel := e.watchCancel
	done := e.watchDone
	e.watchCancel = nil
	e.watchDone = nil
	e.watchMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
}

func (e *Engine) applyChange(rb rootBinding, ev fsiface.ChangeEvent) {
	e.mu.Lock()
	watcher.Apply(rb.node, rb.path, ev, e.enum, e.refr)
	e.rebuildDerivedLocked()
	e.rebuildExtensionSummaryLocked()
	e.mu.Unlock()

	e.bus.Publish(hintbus.Event{Kind: hintbus.NewRoot})
}

// ExportNCDU writes the current tree to path in ncdu JSON-export format
// (§4.8).
func (e *Engine) ExportNCDU(path, version string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.root == nil {
		return fmt.Errorf("engine: no tree to export")
	}
	return report.WriteSnapshot(e.root, path, version)
}

// ExportText writes the text report of the current tree to w: a header
// line, then one depth-indented row per node in pre-order (§4.8).
func (e *Engine) ExportText(w io.Writer) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.root == nil {
		return fmt.Errorf("engine: no tree to export")
	}
	return report.WriteText(w, e.root, e.usePhysical)
}

// ImportSnapshot replaces the current tree with one read back from an
// ncdu JSON export, rebuilding derived views and the extension summary
// the same way a scan's Adopt does. The imported tree has no live watch
// roots (ncdu imports are always a static point-in-time snapshot).
func (e *Engine) ImportSnapshot(path string) error {
	root, err := report.ReadSnapshot(path)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.root = root
	e.rootBinds = nil
	e.rebuildDerivedLocked()
	e.rebuildExtensionSummaryLocked()
	e.mu.Unlock()
	e.bus.Publish(hintbus.Event{Kind: hintbus.NewRoot})
	return nil
}

// RefreshPath re-enumerates a single directory named by an absolute
// path under one of the bound scan roots, as if a watcher overflow had
// fired for it — useful for an explicit `refresh <path>` CLI command
// (§6.3) even when no live ChangeStream is running.
func (e *Engine) RefreshPath(path string) error {
	e.mu.Lock()
	if e.root == nil {
		e.mu.Unlock()
		return fmt.Errorf("engine: no tree loaded")
	}

	var refreshErr error
	found := false
	for _, rb := range e.rootBinds {
		target, parent, ok := watcher.Resolve(rb.node, rb.path, path)
		if !ok {
			continue
		}
		dir := target
		if dir == nil || dir.Kind.IsLeaf() {
			dir = parent
		}
		if dir == nil {
			continue
		}
		found = true
		refreshErr = e.refr.Refresh(dir, dir.Path())
		if refreshErr == nil {
			e.rebuildDerivedLocked()
			e.rebuildExtensionSummaryLocked()
		}
		break
	}
	e.mu.Unlock()

	if !found {
		return fmt.Errorf("engine: path %q not under any scanned root", path)
	}
	if refreshErr != nil {
		return refreshErr
	}
	e.bus.Publish(hintbus.Event{Kind: hintbus.NewRoot})
	return nil
}
