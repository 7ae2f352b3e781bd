package treemap

import "github.com/briarlane/duscape/internal/node"

// minRowAspect is the hard constant from §4.7 step 2: a row stops
// accumulating children once adding the next one would push the
// narrowest child's (width/row-height) ratio below this.
const minRowAspect = 0.4

// layoutRows implements Strategy A: rows are oriented along rect's
// longer side; children are greedily accumulated into the current row
// while every child's aspect ratio in that row stays >= minRowAspect,
// then the row is laid out proportionally across its span and the
// remaining rectangle is rowed again.
func layoutRows(children []*node.Node, rect node.Rect, strategy Strategy, opts Options) {
	// Children are expected sorted size-descending, so the first
	// zero-size child marks the point past which every sibling is also
	// zero size; all of them (and everyone after, by sort order) get the
	// sentinel rect and stop the layout at this level (§4.7).
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

	total := totalSize(drawable, opts.UsePhysical)
	remaining := drawable
	remainingRect := rect

	for len(remaining) > 0 && remainingRect.IsDrawable() && total > 0 {
		horizontal := remainingRect.W >= remainingRect.H

		rowEnd := 1
		rowSum := sizeOf(remaining[0], opts.UsePhysical)
		for rowEnd < len(remaining) {
			next := sizeOf(remaining[rowEnd], opts.UsePhysical)
			if worstAspect(remaining[:rowEnd+1], rowSum+next, total, remainingRect, horizontal, opts.UsePhysical) < minRowAspect {
				break
			}
			rowSum += next
			rowEnd++
		}

		row := remaining[:rowEnd]
		placeRow(row, rowSum, total, remainingRect, horizontal, strategy, opts)

		remaining = remaining[rowEnd:]
		total -= rowSum
		remainingRect = advance(remainingRect, rowSum, total+rowSum, horizontal)
	}

	// Space ran out before every drawable child got a row (remainingRect
	// stopped being drawable); whatever's left is not drawn.
	for _, c := range remaining {
		Layout(c, node.ZeroSizeRect, strategy, opts)
	}
}

// worstAspect returns the smallest child-width/row-height ratio if row
// (sized rowSum out of total, occupying remainingRect's long side) were
// finalized with rowSum.
func worstAspect(row []*node.Node, rowSum, total int64, rect node.Rect, horizontal bool, usePhysical bool) float64 {
	if total == 0 || rowSum == 0 {
		return 1
	}
	longSide, shortSide := rect.W, rect.H
	if !horizontal {
		longSide, shortSide = rect.H, rect.W
	}
	_ = longSide

	rowHeight := float64(shortSide) * float64(rowSum) / float64(total)
	if rowHeight <= 0 {
		return 0
	}

	worst := 1.0
	for _, c := range row {
		size := sizeOf(c, usePhysical)
		if size == 0 {
			continue
		}
		childWidth := float64(size) / float64(rowSum) * rowSpan(rect, horizontal)
		ratio := childWidth / rowHeight
		if ratio > 1 {
			ratio = 1 / ratio
		}
		if ratio < worst {
			worst = ratio
		}
	}
	return worst
}

func rowSpan(rect node.Rect, horizontal bool) float64 {
	if horizontal {
		return float64(rect.W)
	}
	return float64(rect.H)
}

// placeRow lays row's children across remainingRect's long side,
// proportional to size, carrying rounding residual so the last child
// snaps exactly to the row's end (§4.7 step 3).
func placeRow(row []*node.Node, rowSum, total int64, rect node.Rect, horizontal bool, strategy Strategy, opts Options) {
	shortSide := rect.H
	if !horizontal {
		shortSide = rect.W
	}
	rowThickness := int(float64(shortSide) * float64(rowSum) / float64(total))
	if rowThickness < 1 {
		rowThickness = 1
	}

	span := rect.W
	if !horizontal {
		span = rect.H
	}

	offset := 0
	for i, c := range row {
		size := sizeOf(c, opts.UsePhysical)
		var width int
		if i == len(row)-1 {
			width = span - offset // snap to row end, absorbing rounding residual
		} else {
			width = int(float64(size) / float64(rowSum) * float64(span))
		}

		var childRect node.Rect
		if horizontal {
			childRect = node.Rect{X: rect.X + offset, Y: rect.Y, W: width, H: rowThickness}
		} else {
			childRect = node.Rect{X: rect.X, Y: rect.Y + offset, W: rowThickness, H: width}
		}
		childRect = applyGrid(childRect, opts.Grid)

		if size == 0 || !childRect.IsDrawable() {
			Layout(c, node.ZeroSizeRect, strategy, opts)
		} else {
			Layout(c, childRect, strategy, opts)
		}
		offset += width
	}
}

// advance returns the rectangle remaining after a row of thickness
// proportional to rowSum/totalIncludingRow has been carved off the long
// side.
func advance(rect node.Rect, rowSum, totalIncludingRow int64, horizontal bool) node.Rect {
	shortSide := rect.H
	if !horizontal {
		shortSide = rect.W
	}
	thickness := int(float64(shortSide) * float64(rowSum) / float64(totalIncludingRow))
	if thickness < 1 {
		thickness = 1
	}

	if horizontal {
		return node.Rect{X: rect.X, Y: rect.Y + thickness, W: rect.W, H: rect.H - thickness}
	}
	return node.Rect{X: rect.X + thickness, Y: rect.Y, W: rect.W - thickness, H: rect.H}
}

func totalSize(children []*node.Node, usePhysical bool) int64 {
	var sum int64
	for _, c := range children {
		sum += sizeOf(c, usePhysical)
	}
	return sum
}
