package engine

import (
	"testing"

	"github.com/briarlane/duscape/internal/fsiface"
	"github.com/briarlane/duscape/internal/node"
	"github.com/briarlane/duscape/internal/scanner"
)

type fakeHandle struct {
	entries []fsiface.Entry
	idx     int
}

func (h *fakeHandle) Next() (fsiface.Entry, bool, error) {
	if h.idx >= len(h.entries) {
		return fsiface.Entry{}, false, nil
	}
	e := h.entries[h.idx]
	h.idx++
	return e, true, nil
}

func (h *fakeHandle) Close() error { return nil }

type fakeFS struct {
	dirs map[string][]fsiface.Entry
	root fsiface.RootInfo
}

func (f *fakeFS) OpenDir(path string) (fsiface.DirHandle, error) {
	entries, ok := f.dirs[path]
	if !ok {
		return nil, fsiface.ErrNotFound
	}
	return &fakeHandle{entries: entries}, nil
}

func (f *fakeFS) Stat(path string) (fsiface.RootInfo, error) { return f.root, nil }
func (f *fakeFS) StatEntry(path string) (fsiface.Entry, error) {
	return fsiface.Entry{}, fsiface.ErrNotFound
}
func (f *fakeFS) ComputeOwner(path string) (string, error) { return "", nil }

func TestRefreshRebuildsDirectoryFromScratch(t *testing.T) {
	fs := &fakeFS{
		dirs: map[string][]fsiface.Entry{
			"/root": {
				{Name: "a.txt", SizeLogical: 100, SizePhysical: 100},
				{Name: "sub", IsDirectory: true},
			},
			"/root/sub": {
				{Name: "b.txt", SizeLogical: 50, SizePhysical: 50},
			},
		},
	}

	root := node.New(node.KindDirectory, "root")
	root.FullPath = "/root"
	stale := node.New(node.KindFile, "stale.txt")
	stale.SeedLeafSize(999, 999)
	stale.MarkDoneLeaf()
	if err := node.AddChild(root, stale, true); err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	r := newDirRefresher(fs, scanner.Options{})
	if err := r.Refresh(root, "/root"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if got := root.SizePhysical(); got != 150 {
		t.Fatalf("root.SizePhysical() = %d, want 150", got)
	}
	if got := root.FilesCount(); got != 2 {
		t.Fatalf("root.FilesCount() = %d, want 2", got)
	}
	names := map[string]bool{}
	for _, c := range root.Children() {
		names[c.Name] = true
	}
	if names["stale.txt"] {
		t.Fatal("expected stale.txt to be gone after refresh")
	}
	if !names["a.txt"] || !names["sub"] {
		t.Fatalf("expected a.txt and sub children, got %+v", names)
	}
}

func TestRefreshFollowsSymlinkOnlyWhenEnabled(t *testing.T) {
	fs := &fakeFS{
		dirs: map[string][]fsiface.Entry{
			"/root": {
				{Name: "link", IsDirectory: true, ReparseKind: fsiface.ReparseSymlink},
			},
			"/root/link": {
				{Name: "inner.txt", SizeLogical: 10, SizePhysical: 10},
			},
		},
	}

	root := node.New(node.KindDirectory, "root")
	root.FullPath = "/root"

	r := newDirRefresher(fs, scanner.Options{FollowSymlinks: false})
	if err := r.Refresh(root, "/root"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if root.SizePhysical() != 0 {
		t.Fatalf("expected symlink not followed, root.SizePhysical() = %d", root.SizePhysical())
	}

	rFollow := newDirRefresher(fs, scanner.Options{FollowSymlinks: true})
	if err := rFollow.Refresh(root, "/root"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if root.SizePhysical() != 10 {
		t.Fatalf("expected symlink followed, root.SizePhysical() = %d, want 10", root.SizePhysical())
	}
}
