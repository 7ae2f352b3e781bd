package derived

import (
	"testing"

	"github.com/briarlane/duscape/internal/node"
)

func newFile(name string, size int64) *node.Node {
	n := node.New(node.KindFile, name)
	n.SeedLeafSize(size, size)
	n.MarkDoneLeaf()
	return n
}

func TestTopNKeepsLargestAndEvicts(t *testing.T) {
	top := NewTopN(2)
	a := newFile("a", 10)
	b := newFile("b", 30)
	c := newFile("c", 20)

	top.Offer(a)
	top.Offer(b)
	top.Offer(c)

	snap := top.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len(snap) = %d, want 2", len(snap))
	}
	if snap[0] != b || snap[1] != c {
		t.Fatalf("unexpected order: %v", snap)
	}
}

func TestTopNRemoveDetachesDestroyedNode(t *testing.T) {
	top := NewTopN(5)
	root := node.New(node.KindDirectory, "root")
	f := newFile("f", 100)
	if err := node.AddChild(root, f, true); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	top.Offer(f)

	node.RemoveChild(root, f)

	snap := top.Snapshot()
	if len(snap) != 0 {
		t.Fatalf("expected destroyed node dropped from snapshot, got %d", len(snap))
	}
}

func TestDuplicateIndexGroupsBySizeThenFingerprint(t *testing.T) {
	idx := NewDuplicateIndex()
	a := newFile("a", 100)
	b := newFile("b", 100)
	c := newFile("c", 100) // same size, different content
	d := newFile("d", 200) // different size entirely

	idx.Observe(a)
	idx.Observe(b)
	idx.Observe(c)
	idx.Observe(d)

	fakeFingerprint := func(path string) (fingerprint, error) {
		var fp fingerprint
		switch path {
		case a.Name, b.Name:
			fp[0] = 1
		case c.Name:
			fp[0] = 2
		}
		return fp, nil
	}

	groups := idx.Resolve(fakeFingerprint)
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}
	if groups[0].Size != 100 || len(groups[0].Files) != 2 {
		t.Fatalf("unexpected group: %+v", groups[0])
	}
}

func TestDuplicateIndexRemoveShrinksGroup(t *testing.T) {
	idx := NewDuplicateIndex()
	a := newFile("a", 100)
	b := newFile("b", 100)
	idx.Observe(a)
	idx.Observe(b)

	fp := func(path string) (fingerprint, error) { return fingerprint{}, nil }
	groups := idx.Resolve(fp)
	if len(groups) != 1 {
		t.Fatalf("expected one group before removal")
	}

	idx.Remove(a)
	groups = idx.Groups()
	if len(groups) != 0 {
		t.Fatalf("expected group to drop below 2 members after removal, got %+v", groups)
	}
}

func TestSearchGlobMatchesAndRemoveDetaches(t *testing.T) {
	root := node.New(node.KindDirectory, "root")
	a := newFile("report.txt", 10)
	b := newFile("image.png", 10)
	if err := node.AddChild(root, a, true); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if err := node.AddChild(root, b, true); err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	m, err := CompileMatcher("*.txt", SearchOptions{CaseSensitive: true, WholePhrase: true})
	if err != nil {
		t.Fatalf("CompileMatcher: %v", err)
	}

	results := Search(root, m)
	live := results.Live()
	if len(live) != 1 || live[0] != a {
		t.Fatalf("unexpected search results: %v", live)
	}

	results.Remove(a)
	if len(results.Live()) != 0 {
		t.Fatal("expected result removed after Remove")
	}
}

func TestSearchRegexCaseInsensitive(t *testing.T) {
	root := node.New(node.KindDirectory, "root")
	a := newFile("Report.TXT", 10)
	if err := node.AddChild(root, a, true); err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	m, err := CompileMatcher(`report\.txt`, SearchOptions{Regex: true, WholePhrase: true})
	if err != nil {
		t.Fatalf("CompileMatcher: %v", err)
	}

	live := Search(root, m).Live()
	if len(live) != 1 {
		t.Fatalf("expected case-insensitive regex match, got %d", len(live))
	}
}
