package remote

import (
	"context"
	"io"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/pkg/sftp"

	"github.com/briarlane/duscape/internal/fsiface"
)

type fakeFileInfo struct {
	name  string
	size  int64
	mode  os.FileMode
	mtime time.Time
}

func (f fakeFileInfo) Name() string       { return f.name }
func (f fakeFileInfo) Size() int64        { return f.size }
func (f fakeFileInfo) Mode() os.FileMode  { return f.mode }
func (f fakeFileInfo) ModTime() time.Time { return f.mtime }
func (f fakeFileInfo) IsDir() bool        { return f.mode.IsDir() }
func (f fakeFileInfo) Sys() interface{}   { return nil }

type fakeNode struct {
	mode     os.FileMode
	size     int64
	children []string
	target   string
}

type fakeSFTP struct {
	nodes map[string]fakeNode
}

func newFakeSFTP(nodes map[string]fakeNode) *fakeSFTP {
	return &fakeSFTP{nodes: nodes}
}

func (c *fakeSFTP) infoFor(path string) (os.FileInfo, error) {
	n, ok := c.nodes[path]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: os.ErrNotExist}
	}
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			base = path[i+1:]
			break
		}
	}
	return fakeFileInfo{name: base, size: n.size, mode: n.mode}, nil
}

func (c *fakeSFTP) ReadDir(path string) ([]os.FileInfo, error) {
	n, ok := c.nodes[path]
	if !ok || !n.mode.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: os.ErrNotExist}
	}
	infos := make([]os.FileInfo, 0, len(n.children))
	for _, name := range n.children {
		child, ok := c.nodes[path+"/"+name]
		if !ok {
			continue
		}
		infos = append(infos, fakeFileInfo{name: name, size: child.size, mode: child.mode})
	}
	return infos, nil
}

func (c *fakeSFTP) Stat(path string) (os.FileInfo, error) {
	n, ok := c.nodes[path]
	if ok && n.mode&os.ModeSymlink != 0 {
		return c.Stat(n.target)
	}
	return c.infoFor(path)
}

func (c *fakeSFTP) Lstat(path string) (os.FileInfo, error) {
	return c.infoFor(path)
}

func (c *fakeSFTP) ReadLink(path string) (string, error) {
	n, ok := c.nodes[path]
	if !ok || n.mode&os.ModeSymlink == 0 {
		return "", &fs.PathError{Op: "readlink", Path: path, Err: os.ErrInvalid}
	}
	return n.target, nil
}

func (c *fakeSFTP) RealPath(path string) (string, error) { return path, nil }

func (c *fakeSFTP) StatVFS(path string) (*sftp.StatVFS, error) {
	return nil, os.ErrInvalid // extension unsupported, exercised by Stat's fallback
}

func fakeDial(client sftpClient) func(context.Context, Config) (sftpClient, io.Closer, error) {
	return func(context.Context, Config) (sftpClient, io.Closer, error) {
		return client, io.NopCloser(nil), nil
	}
}

func newTestEnumerator(client sftpClient) *Enumerator {
	e := New(Config{Target: "user@host", Port: 22})
	e.dial = fakeDial(client)
	return e
}

func collect(t *testing.T, h fsiface.DirHandle) []fsiface.Entry {
	t.Helper()
	var out []fsiface.Entry
	for {
		entry, ok, err := h.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		out = append(out, entry)
	}
	return out
}

func TestOpenDirListsChildrenAndFollowsSymlinks(t *testing.T) {
	client := newFakeSFTP(map[string]fakeNode{
		"/root":          {mode: os.ModeDir, children: []string{"dir", "file.txt", "link"}},
		"/root/dir":      {mode: os.ModeDir, children: nil},
		"/root/file.txt": {mode: 0, size: 42},
		"/root/link":     {mode: os.ModeSymlink, target: "/root/file.txt"},
	})

	e := newTestEnumerator(client)
	h, err := e.OpenDir("/root")
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	entries := collect(t, h)

	byName := map[string]fsiface.Entry{}
	for _, en := range entries {
		byName[en.Name] = en
	}

	if !byName["dir"].IsDirectory {
		t.Fatal("expected dir to be a directory entry")
	}
	file, ok := byName["file.txt"]
	if !ok || file.SizeLogical != 42 {
		t.Fatalf("unexpected file.txt entry: %+v", file)
	}
	link, ok := byName["link"]
	if !ok {
		t.Fatal("expected link entry")
	}
	if link.ReparseKind != fsiface.ReparseSymlink {
		t.Fatalf("expected symlink reparse kind, got %v", link.ReparseKind)
	}
	if link.SizeLogical != 42 {
		t.Fatalf("expected resolved symlink size 42, got %d", link.SizeLogical)
	}
}

func TestOpenDirKeepsBrokenSymlinkAsPlaceholder(t *testing.T) {
	client := newFakeSFTP(map[string]fakeNode{
		"/root":        {mode: os.ModeDir, children: []string{"broken"}},
		"/root/broken": {mode: os.ModeSymlink, target: "/root/missing"},
	})

	e := newTestEnumerator(client)
	h, err := e.OpenDir("/root")
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	entries := collect(t, h)
	if len(entries) != 1 || entries[0].Name != "broken" {
		t.Fatalf("expected broken placeholder entry, got %+v", entries)
	}
	if entries[0].SizeLogical != 0 {
		t.Fatalf("expected zero-size placeholder, got %d", entries[0].SizeLogical)
	}
}

func TestStatFallsBackWhenStatVFSUnsupported(t *testing.T) {
	client := newFakeSFTP(map[string]fakeNode{"/root": {mode: os.ModeDir}})
	e := newTestEnumerator(client)

	info, err := e.Stat("/root")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.IsDrive {
		t.Fatal("expected IsDrive=false when statvfs extension is unavailable")
	}
}

func TestStatEntryTranslatesNotFound(t *testing.T) {
	client := newFakeSFTP(map[string]fakeNode{})
	e := newTestEnumerator(client)

	_, err := e.StatEntry("/does/not/exist")
	if err != fsiface.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
