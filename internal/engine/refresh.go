package engine

import (
	"path/filepath"

	"github.com/briarlane/duscape/internal/fsiface"
	"github.com/briarlane/duscape/internal/node"
	"github.com/briarlane/duscape/internal/scanner"
)

// dirRefresher implements watcher.Refresher by re-enumerating a single
// directory from scratch, single-threaded. It mirrors the entry-handling
// rules scanner.Scanner applies during a full scan (reparse-kind follow
// rules, extension/owner computation) so a watcher-triggered refresh
// produces a node identical to what a fresh scan would have built, but
// without spinning up the worker pool a whole-tree scan needs: a refresh
// is always scoped to one directory and its descendants, never the
// concurrent many-roots case Scan handles.
type dirRefresher struct {
	enum fsiface.Enumerator
	opts scanner.Options
}

func newDirRefresher(enum fsiface.Enumerator, opts scanner.Options) *dirRefresher {
	return &dirRefresher{enum: enum, opts: opts}
}

// Refresh discards dir's current children and rebuilds them from a fresh
// directory listing at path, recursing into subdirectories per the same
// follow rules the scanner uses. Callers must hold the tree's
// single-writer lock (§5); Refresh itself does no locking.
func (r *dirRefresher) Refresh(dir *node.Node, path string) error {
	if dir == nil {
		return nil
	}
	for _, c := range dir.Children() {
		node.RemoveChild(dir, c)
	}

	handle, err := r.enum.OpenDir(path)
	if err != nil {
		dir.SetFlag(node.FlagAccessDenied)
		dir.MarkDone()
		return err
	}
	defer handle.Close()

	for {
		entry, ok, err := handle.Next()
		if err != nil {
			continue
		}
		if !ok {
			break
		}
		r.handleEntry(path, dir, entry)
	}

	dir.MarkDone()
	return nil
}

func (r *dirRefresher) handleEntry(parentPath string, parent *node.Node, e fsiface.Entry) {
	fullPath := filepath.Join(parentPath, e.Name)
	if e.IsDirectory {
		r.handleDirEntry(fullPath, parent, e)
		return
	}
	r.handleFileEntry(parent, e)
}

func (r *dirRefresher) handleDirEntry(fullPath string, parent *node.Node, e fsiface.Entry) {
	follow := true
	switch e.ReparseKind {
	case fsiface.ReparseJunction:
		follow = r.opts.FollowJunctions
	case fsiface.ReparseMountPoint:
		follow = r.opts.FollowMountPoints
	case fsiface.ReparseSymlink:
		follow = r.opts.FollowSymlinks
	}

	child := node.New(node.KindDirectory, e.Name)
	child.SetLastChange(e.LastChange)
	switch e.ReparseKind {
	case fsiface.ReparseSymlink:
		child.SetFlag(node.FlagSymlink)
	case fsiface.ReparseJunction:
		child.SetFlag(node.FlagJunction)
	case fsiface.ReparseMountPoint:
		child.SetFlag(node.FlagMountPoint)
	}

	if !follow && e.ReparseKind != fsiface.ReparseNone {
		child.MarkDoneLeaf()
		_ = node.AddChild(parent, child, true)
		return
	}

	// Build the subtree on the detached child first, so the single
	// AddChild call below folds its now-complete aggregate upward in
	// one step (the scanner instead attaches a directory before
	// enumerating it and lets each entry propagate as it is added).
	r.fillDir(fullPath, child)
	_ = node.AddChild(parent, child, true)
}

// fillDir populates a not-yet-attached directory node by listing path
// and recursing into its own subdirectories the same way.
func (r *dirRefresher) fillDir(path string, dir *node.Node) {
	handle, err := r.enum.OpenDir(path)
	if err != nil {
		dir.SetFlag(node.FlagAccessDenied)
		dir.MarkDone()
		return
	}
	defer handle.Close()

	for {
		entry, ok, err := handle.Next()
		if err != nil {
			continue
		}
		if !ok {
			break
		}
		r.handleEntry(path, dir, entry)
	}
	dir.MarkDone()
}

func (r *dirRefresher) handleFileEntry(parent *node.Node, e fsiface.Entry) {
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
	} else if r.opts.ComputeOwner {
		if owner, err := r.enum.ComputeOwner(filepath.Join(parent.Path(), e.Name)); err == nil {
			f.Owner = owner
		}
	}
	f.MarkDoneLeaf()
	f.SeedLeafSize(int64(e.SizeLogical), int64(e.SizePhysical))
	_ = node.AddChild(parent, f, true)
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
