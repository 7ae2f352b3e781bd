package watcher

import (
	"testing"
	"time"

	"github.com/briarlane/duscape/internal/fsiface"
	"github.com/briarlane/duscape/internal/node"
)

type fakeEnum struct {
	entries map[string]fsiface.Entry
}

func (f *fakeEnum) OpenDir(path string) (fsiface.DirHandle, error) { return nil, fsiface.ErrNotFound }
func (f *fakeEnum) Stat(path string) (fsiface.RootInfo, error)     { return fsiface.RootInfo{}, nil }
func (f *fakeEnum) StatEntry(path string) (fsiface.Entry, error) {
	e, ok := f.entries[path]
	if !ok {
		return fsiface.Entry{}, fsiface.ErrNotFound
	}
	return e, nil
}
func (f *fakeEnum) ComputeOwner(path string) (string, error) { return "", nil }

type fakeRefresher struct {
	calls []string
}

func (r *fakeRefresher) Refresh(parent *node.Node, path string) error {
	r.calls = append(r.calls, path)
	return nil
}

func buildTree(t *testing.T) (*node.Node, *node.Node) {
	t.Helper()
	root := node.New(node.KindDirectory, "root")
	root.FullPath = "/root"
	file := node.New(node.KindFile, "a.txt")
	file.SeedLeafSize(100, 100)
	if err := node.AddChild(root, file, true); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	return root, file
}

func TestResolveFindsNestedChild(t *testing.T) {
	root, file := buildTree(t)
	target, parent, ok := Resolve(root, "/root", "/root/a.txt")
	if !ok || target != file || parent != root {
		t.Fatalf("Resolve mismatch: target=%v parent=%v ok=%v", target, parent, ok)
	}
}

func TestResolveRejectsEscapedPath(t *testing.T) {
	root, _ := buildTree(t)
	_, _, ok := Resolve(root, "/root", "/elsewhere/x")
	if ok {
		t.Fatal("expected escaped path to fail resolution")
	}
}

func TestApplyRemovedDetachesChild(t *testing.T) {
	root, _ := buildTree(t)
	Apply(root, "/root", fsiface.ChangeEvent{Path: "/root/a.txt", Action: fsiface.ActionRemoved}, nil, nil)
	if len(root.Children()) != 0 {
		t.Fatalf("expected child removed, got %d children", len(root.Children()))
	}
	if root.SizePhysical() != 0 {
		t.Fatalf("expected aggregate subtracted, got %d", root.SizePhysical())
	}
}

func TestApplyModifiedUpdatesSizeAndPropagates(t *testing.T) {
	root, file := buildTree(t)
	enum := &fakeEnum{entries: map[string]fsiface.Entry{
		"/root/a.txt": {SizeLogical: 250, SizePhysical: 250, LastChange: time.Unix(1000, 0).UTC()},
	}}
	applyModified(root, "/root", "/root/a.txt", enum)
	if file.SizePhysical() != 250 {
		t.Fatalf("file.SizePhysical() = %d, want 250", file.SizePhysical())
	}
	if root.SizePhysical() != 250 {
		t.Fatalf("root.SizePhysical() = %d, want 250", root.SizePhysical())
	}
}

func TestApplyAddedTriggersRefresh(t *testing.T) {
	root, _ := buildTree(t)
	enum := &fakeEnum{entries: map[string]fsiface.Entry{
		"/root/new.txt": {SizeLogical: 5, SizePhysical: 5},
	}}
	ref := &fakeRefresher{}
	Apply(root, "/root", fsiface.ChangeEvent{Path: "/root/new.txt", Action: fsiface.ActionAdded}, enum, ref)
	if len(ref.calls) != 1 {
		t.Fatalf("expected one refresh call, got %d", len(ref.calls))
	}
}

func TestApplyAddedIgnoresDuplicate(t *testing.T) {
	root, _ := buildTree(t)
	enum := &fakeEnum{entries: map[string]fsiface.Entry{
		"/root/a.txt": {SizeLogical: 100, SizePhysical: 100},
	}}
	ref := &fakeRefresher{}
	Apply(root, "/root", fsiface.ChangeEvent{Path: "/root/a.txt", Action: fsiface.ActionAdded}, enum, ref)
	if len(ref.calls) != 0 {
		t.Fatal("expected no refresh for an already-known child")
	}
}
