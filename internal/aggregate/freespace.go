// Package aggregate implements the three aggregator duties (C3): upward
// propagation happens inline in the node package as part of every
// insertion/completion (§4.1); this package covers the other two:
// free/unknown synthesis and the hardlink billing adjustment (§4.3).
package aggregate

import (
	"github.com/briarlane/duscape/internal/fsiface"
	"github.com/briarlane/duscape/internal/node"
)

// SynthesizeFreeUnknown inserts the FreeSpace and Unknown leaf children
// under a completed Drive node (§4.3(b)). Safe to call again on refresh:
// callers must first remove any prior FreeSpace/Unknown children with
// RemoveSynthetic.
func SynthesizeFreeUnknown(drive *node.Node, info fsiface.RootInfo) {
	tallied := drive.SizePhysical()

	free := int64(info.FreeBytes)
	used := int64(info.TotalBytes) - free
	unknown := used - tallied
	if unknown < 0 {
		unknown = 0
	}

	freeNode := node.New(node.KindFreeSpace, "Free Space")
	freeNode.SeedLeafSize(free, free)
	freeNode.MarkDoneLeaf()
	_ = node.AddChild(drive, freeNode, true)

	unknownNode := node.New(node.KindUnknown, "Unknown")
	unknownNode.SeedLeafSize(unknown, unknown)
	unknownNode.MarkDoneLeaf()
	_ = node.AddChild(drive, unknownNode, true)
}

// RemoveSynthetic detaches any existing FreeSpace/Unknown/HardlinksRoot
// children of drive so a refresh can recompute them from scratch.
func RemoveSynthetic(drive *node.Node) {
	for _, c := range drive.Children() {
		switch c.Kind {
		case node.KindFreeSpace, node.KindUnknown, node.KindHardlinksRoot:
			node.RemoveChild(drive, c)
		}
	}
}
