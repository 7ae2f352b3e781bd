package aggregate

import (
	"sort"

	"github.com/briarlane/duscape/internal/node"
)

// hardlinkIndexSetCount is the fixed bucketing fan-out (§3.2(5), §9 open
// question): a UI-scalability heuristic, tunable, but the billing
// invariant it must preserve is independent of the bucket count.
const hardlinkIndexSetCount = 20

// AdjustHardlinks walks drive's subtree once all its directories are
// done, groups files by FileIndex, and for every group of size >= 2
// moves the single physical-size contribution into a dedicated
// HardlinkIndex node under HardlinksRoot/HardlinkIndexSet_k (§4.3(c),
// invariant 5, testable property 3).
func AdjustHardlinks(drive *node.Node) {
	groups := collectGroups(drive)

	for fileIndex, files := range groups {
		if len(files) < 2 {
			continue
		}

		raw := make([]int64, len(files))
		var s int64
		for i, f := range files {
			raw[i] = f.SizePhysical()
			if raw[i] > s {
				s = raw[i]
			}
		}

		// Sort the bucket by (raw) physical size descending before
		// zeroing, per §4.3(c) step 4.
		order := make([]int, len(files))
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(i, j int) bool { return raw[order[i]] > raw[order[j]] })

		indexNode := node.New(node.KindHardlinkIndex, hardlinkIndexName(fileIndex))
		indexNode.SeedLeafSize(0, s)
		indexNode.Extension = files[0].Extension

		for _, f := range files {
			if parent := f.Parent(); parent != nil {
				node.UpwardAdjust(parent, 0, -f.SizePhysical(), 0, 0, 0, f.LastChange())
			}
			f.ZeroPhysical()
			f.SetFlag(node.FlagIsHardlink)
		}

		hlRoot := hardlinksRootOf(drive)
		if hlRoot == nil {
			hlRoot = node.New(node.KindHardlinksRoot, "Hardlinks")
			_ = node.AddChild(drive, hlRoot, false)
		}
		bucket := ensureChild(hlRoot, node.KindHardlinkIndexSet, bucketName(fileIndex))
		_ = node.AddChild(bucket, indexNode, true)
		indexNode.MarkDone()

		for _, i := range order {
			ref := node.New(node.KindHardlinkFileRef, files[i].Name)
			ref.FullPath = files[i].Path()
			ref.SeedLeafSize(0, 0)
			ref.MarkDoneLeaf()
			_ = node.AddChild(indexNode, ref, false)
		}
	}

	if root := hardlinksRootOf(drive); root != nil {
		markTreeDone(root)
	}
}

// collectGroups walks the drive subtree (skipping reparse points) and
// groups file nodes by FileIndex, ignoring FileIndex==0 (unavailable).
func collectGroups(n *node.Node) map[uint64][]*node.Node {
	groups := make(map[uint64][]*node.Node)
	var walk func(*node.Node)
	walk = func(cur *node.Node) {
		if cur.HasFlag(node.FlagSymlink) || cur.HasFlag(node.FlagJunction) || cur.HasFlag(node.FlagMountPoint) {
			return
		}
		if cur.Kind == node.KindFile && cur.FileIndex != 0 {
			groups[cur.FileIndex] = append(groups[cur.FileIndex], cur)
			return
		}
		for _, c := range cur.Children() {
			walk(c)
		}
	}
	for _, c := range n.Children() {
		walk(c)
	}
	return groups
}

// ensureChild returns root's child of kind/name if present, or creates
// and attaches one (zero size; propagate is a no-op at zero).
func ensureChild(root *node.Node, kind node.Kind, name string) *node.Node {
	for _, c := range root.Children() {
		if c.Kind == kind && c.Name == name {
			return c
		}
	}
	child := node.New(kind, name)
	_ = node.AddChild(root, child, false)
	return child
}

func hardlinksRootOf(drive *node.Node) *node.Node {
	for _, c := range drive.Children() {
		if c.Kind == node.KindHardlinksRoot {
			return c
		}
	}
	return nil
}

func bucketName(fileIndex uint64) string {
	return "bucket-" + itoa(fileIndex%hardlinkIndexSetCount)
}

func hardlinkIndexName(fileIndex uint64) string {
	return "index-" + itoa(fileIndex)
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

func markTreeDone(n *node.Node) {
	n.MarkDone()
	for _, c := range n.Children() {
		markTreeDone(c)
	}
}
