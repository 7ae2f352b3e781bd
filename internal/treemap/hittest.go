package treemap

import "github.com/briarlane/duscape/internal/node"

// FindByPoint returns the deepest node whose rect contains (x, y) - a
// leaf, or a directory when none of its children's rects covers the
// point - or nil if the point falls outside root's rect (§6.5).
func FindByPoint(root *node.Node, x, y int) *node.Node {
	if !containsPoint(root.Rect, x, y) {
		return nil
	}
	return descend(root, x, y)
}

func descend(n *node.Node, x, y int) *node.Node {
	for _, c := range n.Children() {
		if containsPoint(c.Rect, x, y) {
			return descend(c, x, y)
		}
	}
	return n
}

func containsPoint(r node.Rect, x, y int) bool {
	return r.IsDrawable() && x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}
