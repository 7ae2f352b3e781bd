package node

import (
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// Column is a sortable/comparable node attribute, used by both the list
// presenter and the treemap layout (children must arrive size-descending,
// invariant for Strategy B in §4.7).
type Column int

const (
	ColumnName Column = iota
	ColumnSizePhysical
	ColumnSizeLogical
	ColumnItemsCount
	ColumnFilesCount
	ColumnFoldersCount
	ColumnLastChange
)

// Order is ascending or descending.
type Order int

const (
	OrderDesc Order = iota
	OrderAsc
)

// SortConfig mirrors the teacher's sort preferences, generalized to the
// node package's column set.
type SortConfig struct {
	Field     Column
	TieField  Column
	Order     Order
	DirsFirst bool
}

func DefaultSort() SortConfig {
	return SortConfig{Field: ColumnSizePhysical, TieField: ColumnName, Order: OrderDesc, DirsFirst: true}
}

// lessByColumn orders a and b by the value of one column; names compare
// via natural order (so "file2" sorts before "file10").
func lessByColumn(a, b *Node, col Column) (less, equal bool) {
	switch col {
	case ColumnName:
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if an == bn {
			return false, true
		}
		return natural.Less(an, bn), false
	case ColumnSizePhysical:
		if a.SizePhysical() == b.SizePhysical() {
			return false, true
		}
		return a.SizePhysical() < b.SizePhysical(), false
	case ColumnSizeLogical:
		if a.SizeLogical() == b.SizeLogical() {
			return false, true
		}
		return a.SizeLogical() < b.SizeLogical(), false
	case ColumnItemsCount:
		if a.ItemsCount() == b.ItemsCount() {
			return false, true
		}
		return a.ItemsCount() < b.ItemsCount(), false
	case ColumnFilesCount:
		if a.FilesCount() == b.FilesCount() {
			return false, true
		}
		return a.FilesCount() < b.FilesCount(), false
	case ColumnFoldersCount:
		if a.FoldersCount() == b.FoldersCount() {
			return false, true
		}
		return a.FoldersCount() < b.FoldersCount(), false
	case ColumnLastChange:
		at, bt := a.LastChange(), b.LastChange()
		if at.Equal(bt) {
			return false, true
		}
		return at.Before(bt), false
	default:
		return false, true
	}
}

// Compare implements the total order used by the list and the layout:
// tie-broken by tieColumn, with directory-kind ordering fixing the
// direction for the "name" column by default (directories before files).
func Compare(a, b *Node, primary, tieColumn Column, order Order, dirsFirst bool) bool {
	if dirsFirst {
		aDir, bDir := !a.Kind.IsLeaf(), !b.Kind.IsLeaf()
		if aDir != bDir {
			return aDir
		}
	}

	x, y := a, b
	if order == OrderDesc {
		x, y = b, a
	}

	less, equal := lessByColumn(x, y, primary)
	if !equal {
		return less
	}
	less, _ = lessByColumn(x, y, tieColumn)
	return less
}

// SortChildren sorts a slice of *Node in place per cfg. Stable: required
// by testable property 6 (reorder-then-sort == sort-then-reorder).
func SortChildren(children []*Node, cfg SortConfig) {
	sort.SliceStable(children, func(i, j int) bool {
		return Compare(children[i], children[j], cfg.Field, cfg.TieField, cfg.Order, cfg.DirsFirst)
	})
}

// SortBySizeDescending is the ordering the treemap layout requires its
// input already in (the layout itself does not sort, per §4.7).
func SortBySizeDescending(children []*Node, usePhysical bool) {
	field := ColumnSizeLogical
	if usePhysical {
		field = ColumnSizePhysical
	}
	sort.SliceStable(children, func(i, j int) bool {
		return Compare(children[i], children[j], field, ColumnName, OrderDesc, false)
	})
}
