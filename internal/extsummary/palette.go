package extsummary

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// targetBrightness is the fixed normalization point (§4.6): "(r+g+b)/3
// on a 0..1 scale", i.e. colorful.Color's R/G/B fields directly (they
// are already normalized to [0,1], so no /255 division is needed here).
const targetBrightness = 0.6

// goldenAngle spaces hues evenly and non-repetitively around the wheel
// for any palette size, the same technique godu's UI uses for its file-
// type color legend.
const goldenAngle = 137.50776405003785

// AssignPalette returns n colors, each hue evenly spaced by the golden
// angle and each pre-normalized to targetBrightness, stable for a given
// n (no randomness), so the same extension set always gets the same
// colors across a recompute (§4.6).
func AssignPalette(n int) []colorful.Color {
	out := make([]colorful.Color, n)
	for i := 0; i < n; i++ {
		hue := math.Mod(float64(i)*goldenAngle, 360)
		out[i] = normalizeBrightness(colorful.Hsv(hue, 0.55, 0.9))
	}
	return out
}

// normalizeBrightness adjusts c's HSV value component via bisection
// until its (r+g+b)/3 brightness is within epsilon of targetBrightness,
// preserving hue and saturation (§4.6: "pre-normalized to a fixed
// perceptual brightness... before storage; rendering re-scales per
// shading").
func normalizeBrightness(c colorful.Color) colorful.Color {
	h, s, _ := c.Hsv()
	lo, hi := 0.0, 1.0
	var mid float64
	for i := 0; i < 24; i++ {
		mid = (lo + hi) / 2
		cand := colorful.Hsv(h, s, mid)
		if brightness(cand) < targetBrightness {
			lo = mid
		} else {
			hi = mid
		}
	}
	return colorful.Hsv(h, s, mid)
}

func brightness(c colorful.Color) float64 {
	return (c.R + c.G + c.B) / 3
}
