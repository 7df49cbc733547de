package vector

import (
	"math"
	"math/rand"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]float32{
		{},
		{0},
		{1, -1, 0.5, -0.5},
		{math.MaxFloat32, -math.MaxFloat32, math.SmallestNonzeroFloat32},
	}
	for _, v := range cases {
		got := Decode(Encode(v))
		if len(got) != len(v) {
			t.Fatalf("length mismatch: expected %d, got %d", len(v), len(got))
		}
		for i := range v {
			if got[i] != v[i] {
				t.Errorf("element %d: expected %v, got %v", i, v[i], got[i])
			}
		}
	}
}

func TestEncodeDecodeRandomVectors(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for _, dim := range []int{64, 512} {
		v := make([]float32, dim)
		for i := range v {
			v[i] = r.Float32()*2 - 1
		}
		ba := Encode(v)
		if len(ba) != 4*dim {
			t.Fatalf("expected %d bytes, got %d", 4*dim, len(ba))
		}
		got := Decode(ba)
		for i := range v {
			if got[i] != v[i] {
				t.Fatalf("dim %d element %d: expected %v, got %v", dim, i, v[i], got[i])
			}
		}
	}
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	ba := append(Encode([]float32{1, 2}), 0xff, 0xee)
	got := Decode(ba)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("expected [1 2], got %v", got)
	}
}
