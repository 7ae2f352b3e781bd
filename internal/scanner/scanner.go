package scanner

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/briarlane/duscape/internal/fsiface"
	"github.com/briarlane/duscape/internal/node"
)

// CancelReason is returned by Scan when Cancel was called.
type CancelReason struct{ Reason error }

func (c *CancelReason) Error() string { return "scanner: cancelled: " + c.Reason.Error() }

// ErrRootUnavailable is returned when a scan root cannot be opened at
// all (§7 RootUnavailable).
var ErrRootUnavailable = errors.New("scanner: root unavailable")

// Scanner runs one scan to completion (or cancellation) per instance;
// suspend/resume/cancel are idempotent; Suspend and Resume are
// serialized via controlMu, Cancel via cancelOnce.
type Scanner struct {
	enum fsiface.Enumerator
	opts Options

	q       *queue
	workers sync.WaitGroup

	counters progressCounters

	controlMu  sync.Mutex
	cancelled  atomic.Bool
	cancelErr  error
	cancelOnce sync.Once
	stopCh     chan struct{}

	retryMu sync.Mutex
}

func New(enum fsiface.Enumerator, opts Options) *Scanner {
	return &Scanner{
		enum:   enum,
		opts:   opts,
		q:      newQueue(),
		stopCh: make(chan struct{}),
	}
}

// Scan builds a tree rooted at a synthetic MyComputer node when more than
// one root is given, or a single Drive/Directory node otherwise (§3.1).
// It returns once every worker has joined. A cancelled scan, or a
// single-root scan whose root cannot be stat'ed, still returns the
// (possibly partial) tree plus an error; an unavailable root among
// several, and directories that cannot be opened, are only flagged in
// the tree.
func (s *Scanner) Scan(ctx context.Context, roots []string) (*node.Node, error) {
	var top *node.Node
	multi := len(roots) > 1
	if multi {
		top = node.New(node.KindMyComputer, "My Computer")
	}

	var rootErr error
	var rootNodes []*node.Node

	for _, r := range roots {
		info, err := s.enum.Stat(r)
		kind := node.KindDirectory
		if info.IsDrive {
			kind = node.KindDrive
		}
		rn := node.New(kind, filepath.Base(r))
		rn.FullPath = r
		if err != nil {
			rn.SetFlag(node.FlagAccessDenied)
			rn.MarkDoneLeaf()
			rootErr = ErrRootUnavailable
			rootNodes = append(rootNodes, rn)
			continue
		}

		rn.MarkEnumerating()
		s.counters.estimatedTotal.Add(int64(info.TotalBytes - info.FreeBytes))
		rootNodes = append(rootNodes, rn)

		s.q.addPending(1)
		s.q.push(task{dirPath: r, dirNode: rn})
	}

	if multi {
		for _, rn := range rootNodes {
			_ = node.AddChild(top, rn, true)
		}
	} else if len(rootNodes) == 1 {
		top = rootNodes[0]
	}

	concurrency := s.opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	for i := 0; i < concurrency; i++ {
		s.workers.Add(1)
		go s.work(ctx)
	}
	s.workers.Wait()

	if s.cancelled.Load() {
		return top, &CancelReason{Reason: s.cancelErr}
	}
	if ctx.Err() != nil {
		return top, ctx.Err()
	}
	if rootErr != nil && len(roots) == 1 {
		return top, rootErr
	}
	return top, nil
}

// Progress returns the current (tallied, estimated_total) snapshot plus
// the denied_dirs/retried_entries counters exposed per §7.
func (s *Scanner) Progress() Progress { return s.counters.snapshot() }

// Suspend blocks new task pops; in-flight workers finish their current
// directory/chunk before observing suspension at the next boundary.
func (s *Scanner) Suspend() {
	s.controlMu.Lock()
	defer s.controlMu.Unlock()
	s.q.suspend()
}

// Resume unblocks workers parked in Suspend.
func (s *Scanner) Resume() {
	s.controlMu.Lock()
	defer s.controlMu.Unlock()
	s.q.resume()
}

// Cancel drains the queue, wakes blocked workers, and records reason for
// Scan's return value. Idempotent.
func (s *Scanner) Cancel(reason error) {
	s.cancelOnce.Do(func() {
		s.cancelled.Store(true)
		s.cancelErr = reason
		s.q.resume() // don't leave workers parked on suspend forever
		s.q.closeQueue()
		close(s.stopCh)
	})
}

func (s *Scanner) work(ctx context.Context) {
	defer s.workers.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		t, ok := s.q.pop()
		if !ok {
			return
		}
		s.runTask(ctx, t)
		s.q.done()
	}
}

// runTask enumerates one directory. Opening it is retried up to twice
// with a 50ms backoff on a transient failure (§7 EntryTransient); a
// directory that still cannot be opened is flagged AccessDenied. An
// error from handle.Next is counted in retriedEntries and the entry is
// not read again. A catastrophic per-entry failure never aborts the
// scan (§4.2 Failure semantics).
func (s *Scanner) runTask(ctx context.Context, t task) {
	handle, err := s.openWithRetry(t.dirPath)
	if err != nil {
		t.dirNode.SetFlag(node.FlagAccessDenied)
		s.counters.deniedDirs.Add(1)
		node.CompleteDirectory(t.dirNode)
		return
	}
	defer handle.Close()

	for {
		select {
		case <-ctx.Done():
			node.CompleteDirectory(t.dirNode)
			return
		case <-s.stopCh:
			node.CompleteDirectory(t.dirNode)
			return
		default:
		}

		entry, ok, err := handle.Next()
		if err != nil {
			s.counters.retriedEntries.Add(1)
		}
		if !ok {
			break
		}
		s.handleEntry(ctx, t.dirPath, t.dirNode, entry)
	}

	node.CompleteDirectory(t.dirNode)
}

func (s *Scanner) openWithRetry(path string) (fsiface.DirHandle, error) {
	const maxRetries = 2
	const backoff = 50 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		h, err := s.enum.OpenDir(path)
		if err == nil {
			return h, nil
		}
		lastErr = err
		if !isTransient(err) {
			return nil, err
		}
		s.counters.retriedEntries.Add(1)
		time.Sleep(backoff)
	}
	return nil, lastErr
}

func isTransient(err error) bool {
	return errors.Is(err, fsiface.ErrNotReady) || errors.Is(err, fsiface.ErrIoError)
}

func (s *Scanner) handleEntry(ctx context.Context, parentPath string, parent *node.Node, e fsiface.Entry) {
	fullPath := filepath.Join(parentPath, e.Name)

	if e.IsDirectory {
		s.handleDirEntry(ctx, fullPath, parent, e)
		return
	}

	s.handleFileEntry(parent, e)
}

func (s *Scanner) handleDirEntry(ctx context.Context, fullPath string, parent *node.Node, e fsiface.Entry) {
	follow := true
	switch e.ReparseKind {
	case fsiface.ReparseJunction:
		follow = s.opts.FollowJunctions
	case fsiface.ReparseMountPoint:
		follow = s.opts.FollowMountPoints
	case fsiface.ReparseSymlink:
		follow = s.opts.FollowSymlinks
	}

	child := node.New(node.KindDirectory, e.Name)
	child.SetLastChange(e.LastChange)
	if e.ReparseKind == fsiface.ReparseSymlink {
		child.SetFlag(node.FlagSymlink)
	} else if e.ReparseKind == fsiface.ReparseJunction {
		child.SetFlag(node.FlagJunction)
	} else if e.ReparseKind == fsiface.ReparseMountPoint {
		child.SetFlag(node.FlagMountPoint)
	}

	if !follow && e.ReparseKind != fsiface.ReparseNone {
		// Treated as a leaf: done immediately, no descent.
		child.MarkDoneLeaf()
		_ = node.AddChild(parent, child, true)
		return
	}

	child.MarkEnumerating()
	_ = node.AddChild(parent, child, false)
	// Count the directory itself in its ancestors' item and folder
	// totals; its sizes reach them as its own entries are added.
	node.UpwardAdjust(parent, 0, 0, 1, 0, 1, child.LastChange())
	parent.AddPendingChild()

	s.q.addPending(1)
	s.q.push(task{dirPath: fullPath, dirNode: child})
}

func (s *Scanner) handleFileEntry(parent *node.Node, e fsiface.Entry) {
	f := node.New(node.KindFile, e.Name)
	f.SetLastChange(e.LastChange)
	f.Attributes = e.Attributes
	f.Extension = extensionOf(e.Name)
	f.FileIndex = e.FileIndex
	if e.ReparseKind == fsiface.ReparseSymlink {
		f.SetFlag(node.FlagSymlink)
	}
	if e.HasOwner {
		f.Owner = e.Owner
	} else if s.opts.ComputeOwner {
		if owner, err := s.enum.ComputeOwner(filepath.Join(parent.Path(), e.Name)); err == nil {
			f.Owner = owner
		}
	}
	f.MarkDoneLeaf()
	f.SeedLeafSize(int64(e.SizeLogical), int64(e.SizePhysical))
	_ = node.AddChild(parent, f, true)

	s.counters.tallied.Add(int64(e.SizePhysical))
}

func extensionOf(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return toLower(name[i:])
		}
		if name[i] == '/' {
			break
		}
	}
	return ""
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
