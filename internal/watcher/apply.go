package watcher

import (
	"path/filepath"

	"github.com/briarlane/duscape/internal/fsiface"
	"github.com/briarlane/duscape/internal/node"
)

// Refresher re-enumerates a single directory from scratch; it is how
// Apply handles ActionAdded (by re-enumerating the new entry's parent)
// and Overflow (§4.4, §6.2).
type Refresher interface {
	Refresh(parent *node.Node, path string) error
}

// Apply mutates the tree rooted at root (whose absolute path is
// rootPath) in response to one change-stream event, per §4.4. Callers
// must hold the tree's single-writer lock (§5) for the duration of the
// call; Apply itself does no locking.
func Apply(root *node.Node, rootPath string, ev fsiface.ChangeEvent, enum fsiface.Enumerator, refresher Refresher) {
	switch ev.Action {
	case fsiface.ActionAdded:
		applyAdded(root, rootPath, ev.Path, enum, refresher)
	case fsiface.ActionRemoved:
		applyRemoved(root, rootPath, ev.Path)
	case fsiface.ActionModified:
		applyModified(root, rootPath, ev.Path, enum)
	case fsiface.ActionRenamed:
		applyRemoved(root, rootPath, ev.OldPath)
		applyAdded(root, rootPath, ev.Path, enum, refresher)
	case fsiface.ActionOverflow:
		if refresher != nil {
			target, parent, ok := Resolve(root, rootPath, ev.Path)
			// A path not yet in the tree resolves to nothing; walk up to
			// the nearest ancestor that is, so overflowTarget falls back
			// to it.
			for p := ev.Path; !ok && filepath.Dir(p) != p; {
				p = filepath.Dir(p)
				parent, _, ok = Resolve(root, rootPath, p)
			}
			if ok {
				dir := overflowTarget(target, parent)
				_ = refresher.Refresh(dir, targetPath(target, parent))
			}
		}
	}
}

// overflowTarget picks the directory node to re-enumerate on
// ActionOverflow: target itself if the overflowing path resolved to an
// existing node (refresh its own children from scratch), or parent if
// the path wasn't found (refresh the nearest known ancestor instead).
func overflowTarget(target, parent *node.Node) *node.Node {
	if target != nil {
		return target
	}
	return parent
}

func targetPath(target, parent *node.Node) string {
	if target != nil {
		return target.Path()
	}
	if parent != nil {
		return parent.Path()
	}
	return ""
}

func applyAdded(root *node.Node, rootPath, path string, enum fsiface.Enumerator, refresher Refresher) {
	parentPath := filepath.Dir(path)
	name := filepath.Base(path)

	parent, _, ok := Resolve(root, rootPath, parentPath)
	if !ok {
		return
	}
	if findChildByName(parent, name) != nil {
		// Duplicate add notification (coalesced by the OS); ignore.
		return
	}

	if _, err := enum.StatEntry(path); err != nil {
		return
	}

	// Re-enumerate the parent directory rather than hand-building one
	// node, so the scanner's own entry-building logic (reparse kinds,
	// hardlink detection, size accounting) stays the single source of
	// truth for what a freshly added entry looks like.
	if refresher != nil {
		_ = refresher.Refresh(parent, parent.Path())
	}
}

func applyRemoved(root *node.Node, rootPath, path string) {
	target, parent, ok := Resolve(root, rootPath, path)
	if !ok || parent == nil {
		return
	}
	node.RemoveChild(parent, target)
}

func applyModified(root *node.Node, rootPath, path string, enum fsiface.Enumerator) {
	target, _, ok := Resolve(root, rootPath, path)
	if !ok {
		return
	}
	if !target.Kind.IsLeaf() {
		// Directory modifications surface independently through their
		// own children's events; ignored here per §4.4.
		return
	}

	entry, err := enum.StatEntry(path)
	if err != nil {
		return
	}
	deltaLogical := int64(entry.SizeLogical) - target.SizeLogical()
	deltaPhysical := int64(entry.SizePhysical) - target.SizePhysical()
	if deltaLogical == 0 && deltaPhysical == 0 && entry.LastChange.Equal(target.LastChange()) {
		return
	}
	if parent := target.Parent(); parent != nil {
		node.UpwardAdjust(parent, deltaLogical, deltaPhysical, 0, 0, 0, entry.LastChange)
	}
	target.SeedLeafSize(target.SizeLogical()+deltaLogical, target.SizePhysical()+deltaPhysical)
	target.SetLastChange(entry.LastChange)
	target.Attributes = entry.Attributes
}
