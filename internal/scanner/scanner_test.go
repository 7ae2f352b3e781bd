package scanner

import (
	"context"
	"testing"

	"github.com/briarlane/duscape/internal/fsiface"
)

// fakeFS is a tiny in-memory fsiface.Enumerator: a map from directory
// path to its entries, used the way the teacher's tests build a real
// temp-dir tree, but without touching the filesystem.
type fakeFS struct {
	dirs map[string][]fsiface.Entry
	root fsiface.RootInfo
}

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

func TestScanBuildsTreeAndAggregates(t *testing.T) {
	fs := &fakeFS{
		root: fsiface.RootInfo{TotalBytes: 1000, FreeBytes: 400},
		dirs: map[string][]fsiface.Entry{
			"/root": {
				{Name: "a.txt", SizeLogical: 100, SizePhysical: 100},
				{Name: "sub", IsDirectory: true},
			},
			"/root/sub": {
				{Name: "b.txt", SizeLogical: 200, SizePhysical: 200},
				{Name: "c.txt", SizeLogical: 300, SizePhysical: 300},
			},
		},
	}

	s := New(fs, Options{Concurrency: 2})
	root, err := s.Scan(context.Background(), []string{"/root"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !root.Done() {
		t.Fatal("root should be done after scan completes")
	}
	if got := root.SizePhysical(); got != 600 {
		t.Fatalf("root.SizePhysical() = %d, want 600", got)
	}
	if got := root.FilesCount(); got != 3 {
		t.Fatalf("root.FilesCount() = %d, want 3", got)
	}
}

func TestScanDeniedDirectoryIsLocalFailure(t *testing.T) {
	fs := &fakeFS{
		dirs: map[string][]fsiface.Entry{
			"/root": {
				{Name: "ok.txt", SizeLogical: 10, SizePhysical: 10},
				{Name: "denied", IsDirectory: true},
			},
			// "/root/denied" intentionally absent -> OpenDir fails
		},
	}

	s := New(fs, Options{Concurrency: 1})
	root, err := s.Scan(context.Background(), []string{"/root"})
	if err != nil {
		t.Fatalf("Scan should not fail the whole tree on one denied dir: %v", err)
	}
	if root.FilesCount() != 1 {
		t.Fatalf("root.FilesCount() = %d, want 1", root.FilesCount())
	}
	if p := s.Progress(); p.DeniedDirs < 1 {
		t.Fatalf("expected at least one denied dir, got %d", p.DeniedDirs)
	}
}

func TestScanCancelReturnsPromptly(t *testing.T) {
	fs := &fakeFS{dirs: map[string][]fsiface.Entry{"/root": {}}}
	s := New(fs, Options{Concurrency: 1})

	ctx := context.Background()
	s.Cancel(context.Canceled)
	_, err := s.Scan(ctx, []string{"/root"})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}
