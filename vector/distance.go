package vector

import (
	"fmt"

	"github.com/viant/vec/search"
)

// L2Distance computes the Euclidean distance between two points. It returns
// an error if the points have different dimensions.
func L2Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: L2 distance dimension mismatch: %d vs %d: %w", len(a), len(b), ErrInvalidDimension)
	}
	if len(a) == 0 {
		return 0, nil
	}
	return float64(search.Float32s(a).EuclideanDistance(b)), nil
}

// SquaredL2Distance computes the squared Euclidean distance in float64.
func SquaredL2Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: squared L2 distance dimension mismatch: %d vs %d: %w", len(a), len(b), ErrInvalidDimension)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum, nil
}
