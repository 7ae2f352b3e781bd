package cushion

import (
	"math"
	"testing"

	"github.com/briarlane/duscape/internal/node"
)

// TestIntensityMatchesSpecExample is the spec's S4 testable property:
// rect (0,0,10,10), a=-0.4, b=-0.4, c=4, d=4, L=(0,0,1), ambient=0.13,
// brightness=0.88; center pixel (5,5) should yield intensity ~=
// 0.13 + 0.87*cosTheta, then scaled by 0.88/0.6.
func TestIntensityMatchesSpecExample(t *testing.T) {
	c := Coeffs{A: -0.4, B: -0.4, C: 4, D: 4}
	p := Params{Light: Light{X: 0, Y: 0, Z: 1}, Ambient: 0.13, ScaleFactor: 1, HeightBase: 1}

	fx, fy := 5.5, 5.5
	nx := -(2*c.A*fx + c.C)
	ny := -(2*c.B*fy + c.D)
	nz := 1.0
	mag := math.Sqrt(nx*nx + ny*ny + nz*nz)
	cosTheta := clamp01(nz / mag)

	want := (0.13 + 0.87*cosTheta) * (0.88 / PaletteBrightness)
	got := Intensity(c, 5, 5, p, 0.88, ColorFlagNone)

	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Intensity = %v, want %v", got, want)
	}
}

func TestPureSolidModeFlatFills(t *testing.T) {
	root := node.New(node.KindFile, "f")
	root.Rect = node.Rect{X: 0, Y: 0, W: 2, H: 2}

	buf := NewBuffer(2, 2)
	p := Params{Ambient: 1} // ambient >= 1 forces pure solid
	lookup := func(n *node.Node) (RGB, float64, ColorFlag) {
		return RGB{R: 10, G: 20, B: 30}, 0.6, ColorFlagNone
	}
	Render(root, buf, p, lookup)

	for i := 0; i < len(buf.Pix); i += 4 {
		if buf.Pix[i] != 30 || buf.Pix[i+1] != 20 || buf.Pix[i+2] != 10 || buf.Pix[i+3] != 0xFF {
			t.Fatalf("pixel %d = %v, want flat (30,20,10,255) BGRA", i/4, buf.Pix[i:i+4])
		}
	}
}

func TestShadeRedistributesOverflow(t *testing.T) {
	base := RGB{R: 200, G: 50, B: 50}
	shaded := Shade(base, 2.0) // 400,100,100 -> R clamps, overflow redistributed to G/B

	if shaded.R != 255 {
		t.Fatalf("R = %d, want 255", shaded.R)
	}
	if shaded.G <= 100 || shaded.B <= 100 {
		t.Fatalf("expected overflow redistributed onto G/B, got %+v", shaded)
	}
}

func TestAddRidgeAccumulatesAcrossDepth(t *testing.T) {
	root := Coeffs{}
	rect := node.Rect{X: 0, Y: 0, W: 10, H: 10}
	child := root.AddRidge(rect, 1.0)

	if child.A != -0.4 || child.B != -0.4 {
		t.Fatalf("unexpected A/B: %+v", child)
	}
	if child.C != 4 || child.D != 4 {
		t.Fatalf("unexpected C/D: %+v", child)
	}
}
