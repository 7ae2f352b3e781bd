// Package treemap implements the two squarification strategies of C7
// (§4.7): a row-based layout ("rows of similar proportion") and an
// aspect-ratio squarification using the `worst` metric, plus the
// resulting hit-test query (§6.5).
package treemap

import (
	"github.com/briarlane/duscape/internal/node"
)

// Strategy selects which squarification algorithm Layout uses.
type Strategy int

const (
	StrategyRows Strategy = iota
	StrategySquarified
)

// Options controls sizing and grid-line rendering.
type Options struct {
	UsePhysical bool
	// Grid reserves one pixel at the right and bottom of every child
	// rectangle for a grid line between siblings (§4.7 common contract).
	Grid bool
}

// Layout assigns root.Rect = rect and recursively partitions rect among
// root's children (already expected sorted size-descending, per §4.7's
// "the layout does not sort"), dispatching to the selected strategy for
// every non-leaf.
func Layout(root *node.Node, rect node.Rect, strategy Strategy, opts Options) {
	root.Rect = rect
	if root.Kind.IsLeaf() || !rect.IsDrawable() {
		return
	}

	children := root.Children()
	if len(children) == 0 {
		return
	}

	switch strategy {
	case StrategySquarified:
		layoutSquarified(children, rect, strategy, opts)
	default:
		layoutRows(children, rect, strategy, opts)
	}
}

func sizeOf(n *node.Node, usePhysical bool) int64 {
	if usePhysical {
		return n.SizePhysical()
	}
	return n.SizeLogical()
}

// applyGrid shrinks r by one pixel on the right and bottom for the grid
// line between siblings, clamping to the zero-size sentinel if that
// leaves no drawable area.
func applyGrid(r node.Rect, grid bool) node.Rect {
	if !grid {
		return r
	}
	r.W--
	r.H--
	if !r.IsDrawable() {
		return node.ZeroSizeRect
	}
	return r
}

