package engine

import "testing"

// TestPixelFromRGBAGrayscale verifies a gray pixel has zero saturation
// and an undefined (zero) hue.
func TestPixelFromRGBAGrayscale(t *testing.T) {
	px := pixelFromRGBA(128, 128, 128, 255)
	if px.S != 0 {
		t.Errorf("expected saturation 0 for gray pixel, got %g", px.S)
	}
	if px.H != 0 {
		t.Errorf("expected hue 0 for gray pixel, got %g", px.H)
	}
	if got, want := px.L, 128.0/255.0; got != want {
		t.Errorf("lightness = %g, want %g", got, want)
	}
}

// TestPixelFromRGBAPrimaries verifies the three primary colors land on
// the expected hue angles.
func TestPixelFromRGBAPrimaries(t *testing.T) {
	cases := []struct {
		name       string
		r, g, b    uint8
		wantHue    float64
	}{
		{"red", 255, 0, 0, 0},
		{"green", 0, 255, 0, 120},
		{"blue", 0, 0, 255, 240},
	}
	for _, c := range cases {
		px := pixelFromRGBA(c.r, c.g, c.b, 255)
		if diff := circularDistanceDegrees(px.H, c.wantHue); diff > 1e-6 {
			t.Errorf("%s: hue = %g, want %g", c.name, px.H, c.wantHue)
		}
		if px.S < 0.99 {
			t.Errorf("%s: expected full saturation, got %g", c.name, px.S)
		}
	}
}

// TestPixelFromRGBABlackWhite verifies the achromatic extremes.
func TestPixelFromRGBABlackWhite(t *testing.T) {
	black := pixelFromRGBA(0, 0, 0, 255)
	if black.L != 0 || black.S != 0 {
		t.Errorf("black: got L=%g S=%g, want L=0 S=0", black.L, black.S)
	}
	white := pixelFromRGBA(255, 255, 255, 255)
	if white.L != 1 || white.S != 0 {
		t.Errorf("white: got L=%g S=%g, want L=1 S=0", white.L, white.S)
	}
}
