package vectorstore

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/viterin/vek/vek32"
)

// Cosine returns dot(a,b)/(|a||b|). A zero vector scores 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	return cosineWithNorm(a, norm(a), b), nil
}

// cosineWithNorm reuses a precomputed norm of a. Lengths must already match.
func cosineWithNorm(a []float32, na float64, b []float32) float64 {
	if len(a) == 0 {
		return 0
	}
	nb := norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return float64(vek32.Dot(a, b)) / (na * nb)
}

func norm(v []float32) float64 {
	if len(v) == 0 {
		return 0
	}
	return math.Sqrt(float64(vek32.Dot(v, v)))
}

// encodeVector packs v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
