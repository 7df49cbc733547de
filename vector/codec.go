// Package vector implements the Photarium vector index: the binary codec for
// embedding payloads, the Redis search schema and its CRUD, k-nearest-neighbor
// similarity search over the two embedding spaces, and the opposite-search
// strategies that surface the least similar images instead of the most.
package vector

import (
	"encoding/binary"
	"math"
)

// Encode converts a vector to its stored byte form: each element written as a
// 4-byte little-endian IEEE 754 float32, so len(result) == 4*len(v). It is the
// exact wire format RediSearch expects for FLOAT32 vector fields. No dimension
// validation happens here; callers enforce the declared dimensions.
func Encode(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode is the inverse of Encode. Trailing bytes that do not form a whole
// float32 are ignored.
func Decode(data []byte) []float32 {
	n := len(data) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v
}
