package treemap

import (
	"testing"

	"github.com/briarlane/duscape/internal/node"
)

func fileWithSize(name string, size int64) *node.Node {
	n := node.New(node.KindFile, name)
	n.SeedLeafSize(size, size)
	n.MarkDoneLeaf()
	return n
}

// TestZeroSizeChildGetsSentinelRect is the spec's S3 property: a
// zero-size child (and anything sorted after it) gets the sentinel
// rect, the other two split proportionally.
func TestZeroSizeChildGetsSentinelRect(t *testing.T) {
	root := node.New(node.KindDirectory, "root")
	big := fileWithSize("big", 7)
	small := fileWithSize("small", 3)
	zero := fileWithSize("zero", 0)
	for _, c := range []*node.Node{big, small, zero} {
		if err := node.AddChild(root, c, true); err != nil {
			t.Fatalf("AddChild: %v", err)
		}
	}

	Layout(root, node.Rect{X: 0, Y: 0, W: 100, H: 50}, StrategyRows, Options{UsePhysical: true})

	if zero.Rect != node.ZeroSizeRect {
		t.Fatalf("zero-size child rect = %+v, want sentinel", zero.Rect)
	}
	if big.Rect.W+small.Rect.W != 100 {
		t.Fatalf("big+small widths = %d, want 100 (big=%+v small=%+v)", big.Rect.W+small.Rect.W, big.Rect, small.Rect)
	}
	wantBigWidth := 70
	if big.Rect.W != wantBigWidth {
		t.Fatalf("big.Rect.W = %d, want %d", big.Rect.W, wantBigWidth)
	}
}

func collectRects(n *node.Node, out *[]node.Rect) {
	if n.Rect.IsDrawable() {
		*out = append(*out, n.Rect)
	}
	for _, c := range n.Children() {
		collectRects(c, out)
	}
}

func TestLayoutContainmentInvariant(t *testing.T) {
	root := node.New(node.KindDirectory, "root")
	sizes := []int64{50, 30, 12, 8, 4, 3, 2, 1}
	var children []*node.Node
	for i, s := range sizes {
		c := fileWithSize(string(rune('a'+i)), s)
		if err := node.AddChild(root, c, true); err != nil {
			t.Fatalf("AddChild: %v", err)
		}
		children = append(children, c)
	}

	for _, strat := range []Strategy{StrategyRows, StrategySquarified} {
		Layout(root, node.Rect{X: 0, Y: 0, W: 80, H: 40}, strat, Options{UsePhysical: true})
		for _, c := range children {
			if !c.Rect.IsDrawable() {
				continue
			}
			if !root.Rect.Contains(c.Rect) {
				t.Fatalf("strategy %v: child rect %+v not contained in root rect %+v", strat, c.Rect, root.Rect)
			}
		}
	}
}

func TestFindByPointReturnsDeepestLeaf(t *testing.T) {
	root := node.New(node.KindDirectory, "root")
	dir := node.New(node.KindDirectory, "sub")
	leaf := fileWithSize("leaf", 10)
	if err := node.AddChild(dir, leaf, true); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if err := node.AddChild(root, dir, true); err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	Layout(root, node.Rect{X: 0, Y: 0, W: 10, H: 10}, StrategyRows, Options{UsePhysical: true})

	got := FindByPoint(root, 1, 1)
	if got != leaf {
		t.Fatalf("FindByPoint = %v, want leaf node", got)
	}

	if FindByPoint(root, 100, 100) != nil {
		t.Fatal("expected nil for point outside root rect")
	}
}
