package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodePoint encodes coordinates into a BLOB suitable for storage in SQLite:
// a little-endian sequence of IEEE 754 float32 values without a length
// prefix; the dimension is derived from the BLOB size on decode.
func EncodePoint(coords []float32) ([]byte, error) {
	if len(coords) == 0 {
		return nil, nil
	}
	b := make([]byte, len(coords)*4)
	for i, v := range coords {
		if math.IsNaN(float64(v)) {
			return nil, fmt.Errorf("vector: coordinate %d is NaN", i)
		}
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b, nil
}

// DecodePoint decodes a BLOB produced by EncodePoint.
func DecodePoint(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector: invalid point blob length %d (not multiple of 4)", len(b))
	}
	coords := make([]float32, len(b)/4)
	for i := range coords {
		coords[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return coords, nil
}
