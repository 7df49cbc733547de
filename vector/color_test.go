package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexToRGB(t *testing.T) {
	r, g, b, err := HexToRGB("#FF0000")
	require.NoError(t, err)
	assert.Equal(t, []int{255, 0, 0}, []int{r, g, b})

	r, g, b, err = HexToRGB("00ff80")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 255, 128}, []int{r, g, b})

	_, _, _, err = HexToRGB("#ff00")
	assert.Error(t, err)
	_, _, _, err = HexToRGB("zzzzzz")
	assert.Error(t, err)
}

func TestHistogramForRed(t *testing.T) {
	// Red: bucket (3,0,0), primary bin 3*16+0*4+0 = 48.
	hist := HistogramForRGB(255, 0, 0)
	require.Len(t, hist, 64)
	assert.InDelta(t, 0.7, hist[48], 1e-6)

	// Clipped 3x3x3 neighborhood of a cube corner edge: r in {2,3}, g in
	// {0,1}, b in {0,1}, minus the bin itself = 7 neighbors.
	neighbors := neighborBins(3, 0, 0)
	require.Len(t, neighbors, 7)
	for _, n := range neighbors {
		assert.InDelta(t, 0.3/7, hist[n], 1e-6, "bin %d", n)
	}

	// Total weight is 1.
	var sum float64
	for _, v := range hist {
		sum += float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestHistogramInteriorNeighborhood(t *testing.T) {
	// An interior bucket has the full 26 neighbors.
	hist := HistogramForRGB(100, 100, 100) // bucket (1,1,1), bin 21
	assert.InDelta(t, 0.7, hist[21], 1e-6)
	require.Len(t, neighborBins(1, 1, 1), 26)
	assert.InDelta(t, 0.3/26, hist[0], 1e-6)
}

func TestComplementaryHexInvolution(t *testing.T) {
	for _, hex := range []string{"#ff0000", "#3366cc", "#00ff80"} {
		once, err := ComplementaryHex(hex)
		require.NoError(t, err)
		twice, err := ComplementaryHex(once)
		require.NoError(t, err)

		// Rotating hue twice by 180 degrees returns the original hue
		// (modulo rounding through 8-bit channels).
		r0, g0, b0, _ := HexToRGB(hex)
		h0, _, _ := RGBToHSL(r0, g0, b0)
		r2, g2, b2, _ := HexToRGB(twice)
		h2, _, _ := RGBToHSL(r2, g2, b2)
		diff := math.Abs(h0 - h2)
		if diff > 180 {
			diff = 360 - diff
		}
		assert.Less(t, diff, 2.0, "hue drifted for %s -> %s -> %s", hex, once, twice)
	}
}

func TestInvertLightness(t *testing.T) {
	// A fully saturated dark color becomes desaturated and light.
	out, err := InvertLightnessHex("#800000") // h=0, s=100, l=~25
	require.NoError(t, err)
	r, g, b, _ := HexToRGB(out)
	_, s, l := RGBToHSL(r, g, b)
	assert.InDelta(t, 0.0, s, 2.0)
	assert.InDelta(t, 75.0, l, 2.0)
}

func TestInvertHistogram(t *testing.T) {
	h := []float32{0.7, 0.1, 0, 0.2}
	got := InvertHistogram(h)
	want := []float32{0, 0.6, 0.7, 0.5}
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-6, "bin %d", i)
	}
}

func TestHSLRoundTrip(t *testing.T) {
	for _, c := range [][3]int{{255, 0, 0}, {12, 200, 99}, {128, 128, 128}, {0, 0, 0}, {255, 255, 255}} {
		h, s, l := RGBToHSL(c[0], c[1], c[2])
		r, g, b := HSLToRGB(h, s, l)
		assert.InDelta(t, c[0], r, 1)
		assert.InDelta(t, c[1], g, 1)
		assert.InDelta(t, c[2], b, 1)
	}
}
