// Package extsummary implements the per-extension aggregation and color
// palette of C6 (§4.6): bytes/file-count totals grouped by lowercased
// extension, top-k entries plus a collapsed "other" bucket, each with a
// brightness-normalized palette color.
package extsummary

import (
	"sort"

	"github.com/briarlane/duscape/internal/node"
)

// otherKey is the synthetic extension used for everything outside the
// top-k.
const otherKey = "(other)"

// Entry is one row of the summary: a lowercased extension (or otherKey),
// its aggregate bytes and file count, and its assigned palette color
// (hex string, stable across recomputation for the same extension set).
type Entry struct {
	Extension string
	Bytes     int64
	Files     int64
	Color     string
}

// Summary is the full per-extension breakdown for one tree (or subtree),
// recomputed wholesale on root change or explicit refresh (§4.6); it
// does not update incrementally, since a single file addition can shift
// which extensions fall in or out of the top-k.
type Summary struct {
	Entries []Entry
}

// ColorFor returns the hex color assigned to ext, or the "(other)"
// bucket's color if ext fell outside the top-k (or the summary has no
// entries at all, in which case it returns "").
func (s Summary) ColorFor(ext string) string {
	var other string
	for _, e := range s.Entries {
		if e.Extension == ext {
			return e.Color
		}
		if e.Extension == otherKey {
			other = e.Color
		}
	}
	return other
}

// Build walks root's subtree, aggregates (bytes, files) per lowercased
// extension using usePhysical to choose the size field, keeps the top k
// extensions by bytes, collapses the rest into otherKey, and assigns
// palette colors.
func Build(root *node.Node, topK int, usePhysical bool) Summary {
	totals := make(map[string]*Entry)
	walk(root, usePhysical, totals)

	all := make([]*Entry, 0, len(totals))
	for _, e := range totals {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Bytes != all[j].Bytes {
			return all[i].Bytes > all[j].Bytes
		}
		return all[i].Extension < all[j].Extension
	})

	if topK < 0 {
		topK = 0
	}
	var kept []*Entry
	var other Entry
	other.Extension = otherKey
	for i, e := range all {
		if i < topK {
			kept = append(kept, e)
			continue
		}
		other.Bytes += e.Bytes
		other.Files += e.Files
	}
	if other.Bytes > 0 || other.Files > 0 {
		kept = append(kept, &other)
	}

	palette := AssignPalette(len(kept))
	out := make([]Entry, len(kept))
	for i, e := range kept {
		out[i] = *e
		out[i].Color = palette[i].Hex()
	}
	return Summary{Entries: out}
}

// walk adds n's subtree to the per-extension totals. Of the node kinds
// that contribute to them, regular files count once, and - because
// AdjustHardlinks zeroes the physical size on every original file node
// and moves the single billed contribution onto the HardlinkIndex node
// instead (§4.3(c)) - the index node contributes the billed bytes
// without double-counting the file count (its members are already
// counted as zero-byte HardlinkFileRef leaves, which are skipped here).
func walk(n *node.Node, usePhysical bool, totals map[string]*Entry) {
	switch n.Kind {
	case node.KindFile:
		size := n.SizeLogical()
		if usePhysical {
			size = n.SizePhysical()
		}
		addExtension(totals, n.Extension, size, 1)
		return
	case node.KindHardlinkIndex:
		if usePhysical {
			addExtension(totals, n.Extension, n.SizePhysical(), 0)
		}
		return
	case node.KindHardlinkFileRef:
		// Already counted once via its original KindFile node above.
		return
	}
	for _, c := range n.Children() {
		walk(c, usePhysical, totals)
	}
}

func addExtension(totals map[string]*Entry, ext string, bytes, files int64) {
	if ext == "" {
		ext = "(none)"
	}
	e, ok := totals[ext]
	if !ok {
		e = &Entry{Extension: ext}
		totals[ext] = e
	}
	e.Bytes += bytes
	e.Files += files
}
