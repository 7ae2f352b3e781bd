package treemap

import "github.com/briarlane/duscape/internal/node"

// layoutSquarified implements Strategy B (§4.7): rows are built
// child-by-child, each candidate row evaluated by the `worst` ratio
// metric, and finalized at the first child whose inclusion would
// worsen it.
func layoutSquarified(children []*node.Node, rect node.Rect, strategy Strategy, opts Options) {
	drawable := children
	for i, c := range children {
		if sizeOf(c, opts.UsePhysical) == 0 {
			drawable = children[:i]
			for _, dropped := range children[i:] {
				Layout(dropped, node.ZeroSizeRect, strategy, opts)
			}
			break
		}
	}

	remaining := drawable
	remainingRect := rect

	for len(remaining) > 0 && remainingRect.IsDrawable() {
		rowEnd, rowSum := extendRow(remaining, remainingRect, opts.UsePhysical)
		row := remaining[:rowEnd]

		total := totalSize(remaining, opts.UsePhysical)
		horizontal := remainingRect.W >= remainingRect.H
		placeRow(row, rowSum, total, remainingRect, horizontal, strategy, opts)

		remaining = remaining[rowEnd:]
		remainingRect = advance(remainingRect, rowSum, total, horizontal)
	}

	for _, c := range remaining {
		Layout(c, node.ZeroSizeRect, strategy, opts)
	}
}

// extendRow greedily grows a candidate row one child at a time,
// computing worst = max(h^2*rmax/s^2, s^2/(h^2*rmin)) at each step
// (§4.7 Strategy B step 2), stopping at the first child whose inclusion
// increases worst rather than improving it.
func extendRow(children []*node.Node, rect node.Rect, usePhysical bool) (rowEnd int, rowSum int64) {
	shortSide := rect.H
	if rect.W < rect.H {
		shortSide = rect.W
	}
	h := float64(shortSide)

	rowEnd = 1
	rowSum = sizeOf(children[0], usePhysical)
	rmax, rmin := rowSum, rowSum
	bestWorst := worstRatio(h, rmax, rmin, rowSum)

	for rowEnd < len(children) {
		next := sizeOf(children[rowEnd], usePhysical)
		candSum := rowSum + next
		candMax, candMin := rmax, rmin
		if next > candMax {
			candMax = next
		}
		if next < candMin {
			candMin = next
		}
		candWorst := worstRatio(h, candMax, candMin, candSum)
		if candWorst > bestWorst {
			break
		}
		rowSum, rmax, rmin, bestWorst = candSum, candMax, candMin, candWorst
		rowEnd++
	}
	return rowEnd, rowSum
}

func worstRatio(h float64, rmax, rmin, s int64) float64 {
	if s == 0 {
		return 0
	}
	hSq := h * h
	sSq := float64(s) * float64(s)
	a := hSq * float64(rmax) / sSq
	b := sSq / (hSq * float64(rmin))
	if a > b {
		return a
	}
	return b
}
