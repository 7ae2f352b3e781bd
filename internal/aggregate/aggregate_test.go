package aggregate

import (
	"testing"

	"github.com/briarlane/duscape/internal/fsiface"
	"github.com/briarlane/duscape/internal/node"
)

func TestSynthesizeFreeUnknown(t *testing.T) {
	drive := node.New(node.KindDrive, "C:")
	for _, sz := range []int64{100, 200, 300} {
		f := node.New(node.KindFile, "f")
		f.SeedLeafSize(sz, sz)
		f.MarkDoneLeaf()
		_ = node.AddChild(drive, f, true)
	}

	const total = 1 << 30
	const tallied = 600
	SynthesizeFreeUnknown(drive, fsiface.RootInfo{TotalBytes: total, FreeBytes: total - tallied})

	if got := drive.SizePhysical(); got != total {
		t.Fatalf("drive.SizePhysical() = %d, want %d", got, total)
	}

	var free, unknown int64
	for _, c := range drive.Children() {
		switch c.Kind {
		case node.KindFreeSpace:
			free = c.SizePhysical()
		case node.KindUnknown:
			unknown = c.SizePhysical()
		}
	}
	if free != total-tallied {
		t.Fatalf("free = %d, want %d", free, total-tallied)
	}
	if unknown != 0 {
		t.Fatalf("unknown = %d, want 0", unknown)
	}
}

func TestAdjustHardlinksBillsOncePerGroup(t *testing.T) {
	drive := node.New(node.KindDrive, "C:")
	for i := 0; i < 2; i++ {
		f := node.New(node.KindFile, "hardlinked")
		f.FileIndex = 42
		f.SeedLeafSize(1<<20, 1<<20)
		f.MarkDoneLeaf()
		_ = node.AddChild(drive, f, true)
	}

	before := drive.SizePhysical()
	if before != 2<<20 {
		t.Fatalf("before adjustment, drive.SizePhysical() = %d, want %d", before, 2<<20)
	}

	AdjustHardlinks(drive)

	if got := drive.SizePhysical(); got != 1<<20 {
		t.Fatalf("after adjustment, drive.SizePhysical() = %d, want %d", got, 1<<20)
	}

	var indexCount int
	var walk func(*node.Node)
	walk = func(n *node.Node) {
		if n.Kind == node.KindHardlinkIndex {
			indexCount++
			if n.SizePhysical() != 1<<20 {
				t.Fatalf("index node physical = %d, want %d", n.SizePhysical(), 1<<20)
			}
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(drive)
	if indexCount != 1 {
		t.Fatalf("expected exactly one HardlinkIndex node, got %d", indexCount)
	}

	for _, c := range drive.Children() {
		if c.Kind == node.KindFile {
			if c.SizePhysical() != 0 {
				t.Fatalf("original file node should have zero physical size, got %d", c.SizePhysical())
			}
			if c.SizeLogical() != 1<<20 {
				t.Fatalf("original file node should keep logical size, got %d", c.SizeLogical())
			}
		}
	}
}
