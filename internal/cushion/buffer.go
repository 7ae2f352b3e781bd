package cushion

import "github.com/briarlane/duscape/internal/node"

// Buffer is a width x height 32-bit BGRA pixel buffer (alpha = 0xFF),
// the §6.5 treemap bitmap output.
type Buffer struct {
	Width, Height int
	Pix           []byte // len == 4*Width*Height, B,G,R,A per pixel
}

// NewBuffer allocates a zeroed buffer of the given size.
func NewBuffer(width, height int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Buffer{Width: width, Height: height, Pix: make([]byte, 4*width*height)}
}

func (b *Buffer) set(x, y int, c RGB) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	i := 4 * (y*b.Width + x)
	b.Pix[i+0] = c.B
	b.Pix[i+1] = c.G
	b.Pix[i+2] = c.R
	b.Pix[i+3] = 0xFF
}

// ColorLookup resolves a leaf node's base color, per-node brightness
// (from its palette entry), and any DARKER/LIGHTER color flag.
type ColorLookup func(n *node.Node) (base RGB, brightness float64, flag ColorFlag)

// Render walks root's subtree (whose nodes already carry layout rects,
// per C7) and fills buf with the shaded cushion surface of every
// drawable leaf, or a flat fill in pure-solid mode (§4.8).
func Render(root *node.Node, buf *Buffer, p Params, lookup ColorLookup) {
	renderNode(root, Coeffs{}, p.HeightBase, buf, p, lookup)
}

func renderNode(n *node.Node, coeffs Coeffs, h float64, buf *Buffer, p Params, lookup ColorLookup) {
	if !n.Rect.IsDrawable() {
		return
	}
	coeffs = coeffs.AddRidge(n.Rect, h)

	if n.Kind.IsLeaf() {
		fillLeaf(n, coeffs, buf, p, lookup)
		return
	}
	nextH := NextHeight(h, p.ScaleFactor)
	for _, c := range n.Children() {
		renderNode(c, coeffs, nextH, buf, p, lookup)
	}
}

func fillLeaf(n *node.Node, coeffs Coeffs, buf *Buffer, p Params, lookup ColorLookup) {
	base, brightness, flag := lookup(n)
	r := n.Rect

	if p.PureSolid() {
		for y := r.Y; y < r.Y+r.H; y++ {
			for x := r.X; x < r.X+r.W; x++ {
				buf.set(x, y, base)
			}
		}
		return
	}

	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			intensity := Intensity(coeffs, x, y, p, brightness, flag)
			buf.set(x, y, Shade(base, intensity))
		}
	}
}
