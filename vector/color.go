package vector

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	photarium "github.com/bleeckerj/nfl-photarium-sub000"
)

// HexToRGB parses a "#rrggbb" (or "rrggbb") color into 0-255 channels.
func HexToRGB(hex string) (int, int, int, error) {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q", hex)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), nil
}

// RGBToHex formats 0-255 channels as "#rrggbb".
func RGBToHex(r, g, b int) string {
	clamp := func(c int) int {
		if c < 0 {
			return 0
		}
		if c > 255 {
			return 255
		}
		return c
	}
	return fmt.Sprintf("#%02x%02x%02x", clamp(r), clamp(g), clamp(b))
}

// RGBToHSL converts 0-255 channels to hue (degrees, [0,360)), saturation and
// lightness (both percentages, [0,100]).
func RGBToHSL(r, g, b int) (float64, float64, float64) {
	rf := float64(r) / 255
	gf := float64(g) / 255
	bf := float64(b) / 255

	max := math.Max(rf, math.Max(gf, bf))
	min := math.Min(rf, math.Min(gf, bf))
	l := (max + min) / 2

	if max == min {
		// Achromatic.
		return 0, 0, l * 100
	}

	d := max - min
	var s float64
	if l > 0.5 {
		s = d / (2 - max - min)
	} else {
		s = d / (max + min)
	}

	var h float64
	switch max {
	case rf:
		h = (gf - bf) / d
		if gf < bf {
			h += 6
		}
	case gf:
		h = (bf-rf)/d + 2
	default:
		h = (rf-gf)/d + 4
	}
	h *= 60

	return h, s * 100, l * 100
}

// HSLToRGB converts hue (degrees) and saturation/lightness percentages back
// to 0-255 channels.
func HSLToRGB(h, s, l float64) (int, int, int) {
	h = math.Mod(math.Mod(h, 360)+360, 360) / 360
	s = s / 100
	l = l / 100

	if s == 0 {
		v := int(math.Round(l * 255))
		return v, v, v
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	r := hueToChannel(p, q, h+1.0/3)
	g := hueToChannel(p, q, h)
	b := hueToChannel(p, q, h-1.0/3)
	return int(math.Round(r * 255)), int(math.Round(g * 255)), int(math.Round(b * 255))
}

func hueToChannel(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}

// colorBucket maps a 0-255 channel into one of the 4 histogram buckets.
func colorBucket(c int) int {
	b := c / 64
	if b < 0 {
		b = 0
	}
	if b > 3 {
		b = 3
	}
	return b
}

// HistogramForRGB builds a synthetic 64-bin color histogram representing a
// single color. The color's own 4x4x4 bin gets weight 0.7; the remaining 0.3
// is spread evenly across its up-to-26 adjacent bins (the 3x3x3 neighborhood
// minus the bin itself, clipped at the cube bounds), so a query matches
// near-miss compositions too.
func HistogramForRGB(r, g, b int) []float32 {
	rb, gb, bb := colorBucket(r), colorBucket(g), colorBucket(b)
	primary := rb*16 + gb*4 + bb

	hist := make([]float32, photarium.ColorDim)
	hist[primary] = 0.7

	neighbors := neighborBins(rb, gb, bb)
	if len(neighbors) > 0 {
		w := float32(0.3) / float32(len(neighbors))
		for _, n := range neighbors {
			hist[n] = w
		}
	}
	return hist
}

// neighborBins lists the bin indices adjacent to (rb,gb,bb) in the 4x4x4
// cube, excluding the bin itself.
func neighborBins(rb, gb, bb int) []int {
	out := make([]int, 0, 26)
	for dr := -1; dr <= 1; dr++ {
		for dg := -1; dg <= 1; dg++ {
			for db := -1; db <= 1; db++ {
				if dr == 0 && dg == 0 && db == 0 {
					continue
				}
				r, g, b := rb+dr, gb+dg, bb+db
				if r < 0 || r > 3 || g < 0 || g > 3 || b < 0 || b > 3 {
					continue
				}
				out = append(out, r*16+g*4+b)
			}
		}
	}
	return out
}

// ComplementaryHex rotates the color's hue by 180 degrees, keeping saturation
// and lightness. Rotating twice returns the original hue.
func ComplementaryHex(hex string) (string, error) {
	r, g, b, err := HexToRGB(hex)
	if err != nil {
		return "", err
	}
	h, s, l := RGBToHSL(r, g, b)
	r, g, b = HSLToRGB(h+180, s, l)
	return RGBToHex(r, g, b), nil
}

// InvertLightnessHex inverts both lightness and saturation (100 - value),
// keeping the hue. Dark saturated colors map to light muted ones and back.
func InvertLightnessHex(hex string) (string, error) {
	r, g, b, err := HexToRGB(hex)
	if err != nil {
		return "", err
	}
	h, s, l := RGBToHSL(r, g, b)
	r, g, b = HSLToRGB(h, 100-s, 100-l)
	return RGBToHex(r, g, b), nil
}

// InvertHistogram replaces each bin with (max bin value) - value, turning the
// distribution inside out relative to its own peak.
func InvertHistogram(hist []float32) []float32 {
	var max float32
	for _, v := range hist {
		if v > max {
			max = v
		}
	}
	out := make([]float32, len(hist))
	for i, v := range hist {
		out[i] = max - v
	}
	return out
}
