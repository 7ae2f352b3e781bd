// Package cushion implements the Lambertian cushion shading model of C8
// (§4.8): a quadratic surface per rectangle, recursively ridged at each
// depth, shaded per pixel into a BGRA buffer.
package cushion

import "github.com/briarlane/duscape/internal/node"

// Coeffs are the (a, b, c, d) coefficients of z(x,y) = a*x^2 + b*y^2 +
// c*x + d*y (§4.8).
type Coeffs struct {
	A, B, C, D float64
}

// AddRidge returns the coefficients for a child rectangle nested inside
// a parent whose accumulated coefficients are c, given the current
// height factor h (already scaled by scale_factor at this depth).
func (c Coeffs) AddRidge(rect node.Rect, h float64) Coeffs {
	width := float64(rect.W)
	height := float64(rect.H)
	if width <= 0 || height <= 0 {
		return c
	}
	x0, x1 := float64(rect.X), float64(rect.X+rect.W)
	y0, y1 := float64(rect.Y), float64(rect.Y+rect.H)

	return Coeffs{
		A: c.A - 4*h/width,
		B: c.B - 4*h/height,
		C: c.C + 4*h*(x0+x1)/width,
		D: c.D + 4*h*(y0+y1)/height,
	}
}

// NextHeight scales h by scaleFactor for the next recursion depth
// (§4.8: "h ... multiplied at each depth by the scale_factor").
func NextHeight(h, scaleFactor float64) float64 {
	return h * scaleFactor
}
