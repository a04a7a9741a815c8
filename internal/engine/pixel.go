package engine

import "math"

// saturationEpsilon is the threshold below which a pixel's hue is
// considered undefined: such pixels contribute to luminance/saturation
// means but not to the hue vector.
const saturationEpsilon = 1e-3

// Pixel is an RGBA quadruple plus its derived HSL triple. Hue is in
// degrees [0, 360); saturation and lightness are in [0, 1].
type Pixel struct {
	R, G, B, A uint8
	H, S, L    float64
}

// pixelFromRGBA converts one RGBA sample (0-255 channels) into a Pixel
// with derived HSL using the standard hexagonal HSL conversion.
func pixelFromRGBA(r, g, b, a uint8) Pixel {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255

	maxC := math.Max(rf, math.Max(gf, bf))
	minC := math.Min(rf, math.Min(gf, bf))
	l := (maxC + minC) / 2
	d := maxC - minC

	var s, h float64
	if d > 1e-12 {
		if l < 0.5 {
			s = d / (maxC + minC)
		} else {
			s = d / (2 - maxC - minC)
		}

		switch maxC {
		case rf:
			h = math.Mod((gf-bf)/d, 6)
		case gf:
			h = (bf-rf)/d + 2
		default:
			h = (rf-gf)/d + 4
		}
		h *= 60
		if h < 0 {
			h += 360
		}
	}

	return Pixel{R: r, G: g, B: b, A: a, H: h, S: s, L: l}
}
