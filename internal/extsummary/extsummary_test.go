package extsummary

import (
	"testing"

	"github.com/briarlane/duscape/internal/node"
)

func leaf(name string, ext string, size int64) *node.Node {
	n := node.New(node.KindFile, name)
	n.Extension = ext
	n.SeedLeafSize(size, size)
	n.MarkDoneLeaf()
	return n
}

func TestBuildAggregatesByExtensionAndCollapsesOther(t *testing.T) {
	root := node.New(node.KindDirectory, "root")
	for _, f := range []*node.Node{
		leaf("a.txt", ".txt", 100),
		leaf("b.txt", ".txt", 50),
		leaf("c.png", ".png", 30),
		leaf("d.go", ".go", 10),
	} {
		if err := node.AddChild(root, f, true); err != nil {
			t.Fatalf("AddChild: %v", err)
		}
	}

	summary := Build(root, 2, false)
	if len(summary.Entries) != 3 { // top 2 + other
		t.Fatalf("len(Entries) = %d, want 3: %+v", len(summary.Entries), summary.Entries)
	}
	if summary.Entries[0].Extension != ".txt" || summary.Entries[0].Bytes != 150 {
		t.Fatalf("unexpected top entry: %+v", summary.Entries[0])
	}
	last := summary.Entries[len(summary.Entries)-1]
	if last.Extension != otherKey || last.Bytes != 10 {
		t.Fatalf("unexpected other bucket: %+v", last)
	}
	for _, e := range summary.Entries {
		if e.Color == "" {
			t.Fatalf("entry %+v missing assigned color", e)
		}
	}
}

func TestAssignPaletteNormalizesBrightness(t *testing.T) {
	colors := AssignPalette(5)
	for i, c := range colors {
		b := brightness(c)
		if b < targetBrightness-0.02 || b > targetBrightness+0.02 {
			t.Fatalf("color %d brightness = %v, want ~%v", i, b, targetBrightness)
		}
	}
}
