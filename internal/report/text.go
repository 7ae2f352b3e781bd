// Package report implements the two persisted export formats of §6.4:
// the canonical line-delimited text report, and a supplemented
// ncdu-compatible JSON snapshot (export/import) adapted from the
// teacher's own ops package.
package report

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/briarlane/duscape/internal/node"
)

// attrPositions lists, in column order, the flag each of the 8
// attribute-field characters represents; unused trailing positions are
// always '-' (§6.4: "8-char field with positional flags").
var attrPositions = [8]struct {
	flag node.Flag
	ch   byte
}{
	{node.FlagIsHardlink, 'H'},
	{node.FlagSymlink, 'S'},
	{node.FlagJunction, 'J'},
	{node.FlagMountPoint, 'M'},
	{node.FlagAccessDenied, 'D'},
	{node.FlagUsageEstimated, 'E'},
	{0, 0},
	{0, 0},
}

func attrField(n *node.Node) string {
	var buf [8]byte
	flags := n.Flags()
	for i, p := range attrPositions {
		if p.flag != 0 && flags&p.flag != 0 {
			buf[i] = p.ch
		} else {
			buf[i] = '-'
		}
	}
	return string(buf[:])
}

// WriteText writes the §6.4 line-delimited text report for root to w: a
// header line with root metadata, then one depth-prefixed row per node
// in a pre-order walk.
func WriteText(w io.Writer, root *node.Node, usePhysical bool) error {
	bw := bufio.NewWriterSize(w, 64*1024)

	sizeWord := "size_logical"
	if usePhysical {
		sizeWord = "size_physical"
	}
	if _, err := fmt.Fprintf(bw, "# root=%s mode=%s generated=%s\n",
		root.Path(), sizeWord, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	if err := writeRow(bw, root, 0, usePhysical); err != nil {
		return err
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, n *node.Node, depth int, usePhysical bool) error {
	indent := make([]byte, depth)
	for i := range indent {
		indent[i] = ' '
	}

	lastChange := "0001-01-01T00:00:00Z"
	if !n.LastChange().IsZero() {
		lastChange = n.LastChange().UTC().Format(time.RFC3339)
	}

	_, err := fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\t%s\n",
		indent,
		n.SizePhysical(),
		n.SizeLogical(),
		n.ItemsCount(),
		n.FilesCount(),
		n.FoldersCount(),
		lastChange,
		attrField(n),
		n.Name,
	)
	if err != nil {
		return err
	}

	for _, c := range n.Children() {
		if err := writeRow(w, c, depth+1, usePhysical); err != nil {
			return err
		}
	}
	return nil
}
