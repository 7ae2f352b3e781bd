package cushion

import "math"

// ColorFlag modifies the base intensity before a pixel is shaded
// (§4.8: "Color flags DARKER/LIGHTER modify the base intensity by 0.66
// / up to 1.2 respectively").
type ColorFlag uint8

const (
	ColorFlagNone ColorFlag = iota
	ColorFlagDarker
	ColorFlagLighter
)

const (
	darkerFactor  = 0.66
	lighterFactor = 1.2
	// PaletteBrightness is the §4.6 normalization point every stored
	// palette color was pre-normalized to; intensity is rescaled
	// relative to it (§4.8 step 4).
	PaletteBrightness = 0.6
)

// Params bundles the per-render lighting configuration (§4.8).
type Params struct {
	Light       Light
	Ambient     float64 // clamp [0,1); ambient >= 1 forces pure-solid mode
	ScaleFactor float64 // (0,1]
	HeightBase  float64 // the height factor h at depth 0, before scaling
}

// PureSolid reports whether the surface should be ignored in favor of a
// flat fill (§4.8: "ambient >= 1 or height <= 0").
func (p Params) PureSolid() bool {
	return p.Ambient >= 1 || p.HeightBase <= 0
}

// Intensity computes the Lambertian shading intensity at pixel (x, y)
// for the cushion surface c, per §4.8 steps 1-4, before per-channel
// color application.
func Intensity(c Coeffs, x, y int, p Params, brightness float64, flag ColorFlag) float64 {
	fx, fy := float64(x)+0.5, float64(y)+0.5
	nx := -(2*c.A*fx + c.C)
	ny := -(2*c.B*fy + c.D)
	nz := 1.0

	mag := math.Sqrt(nx*nx + ny*ny + nz*nz)
	var cosTheta float64
	if mag > 0 {
		dot := nx*p.Light.X + ny*p.Light.Y + nz*p.Light.Z
		cosTheta = clamp01(dot / mag)
	}

	intensity := p.Ambient + (1-p.Ambient)*cosTheta
	intensity *= brightness / PaletteBrightness

	switch flag {
	case ColorFlagDarker:
		intensity *= darkerFactor
	case ColorFlagLighter:
		intensity *= lighterFactor
	}
	return intensity
}

// RGB holds one pixel's base (un-shaded) color, 0..255 per channel.
type RGB struct {
	R, G, B uint8
}

// Shade applies intensity to base, clamping each channel to [0,255] and
// redistributing the overflow of any clamped channel onto the others
// (§4.8 step 5), so a fully-saturated highlight still reads as
// "brighter", not just clipped white on one axis.
func Shade(base RGB, intensity float64) RGB {
	r := float64(base.R) * intensity
	g := float64(base.G) * intensity
	b := float64(base.B) * intensity

	r, g, b = redistributeOverflow(r, g, b)
	return RGB{R: clampByte(r), G: clampByte(g), B: clampByte(b)}
}

// redistributeOverflow pushes the amount each channel exceeds 255 onto
// the channels that still have headroom, weighted by their remaining
// headroom, iterating until no channel overflows or headroom is
// exhausted.
func redistributeOverflow(r, g, b float64) (float64, float64, float64) {
	for i := 0; i < 3; i++ {
		overflow := 0.0
		vals := [3]*float64{&r, &g, &b}
		headroom := 0.0
		for _, v := range vals {
			if *v > 255 {
				overflow += *v - 255
				*v = 255
			} else {
				headroom += 255 - *v
			}
		}
		if overflow <= 0 || headroom <= 0 {
			break
		}
		for _, v := range vals {
			if *v < 255 {
				share := (255 - *v) / headroom
				*v += overflow * share
			}
		}
	}
	return r, g, b
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
