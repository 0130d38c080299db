package tree

import (
	"errors"
	"fmt"
)

// ErrInvalidDimension reports a point whose dimension does not match the tree.
var ErrInvalidDimension = errors.New("kdtree: invalid dimension")

// DimensionError describes a dimension mismatch.
type DimensionError struct {
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	if e.Expected <= 0 {
		return fmt.Sprintf("kdtree: invalid dimension %d", e.Actual)
	}
	return fmt.Sprintf("kdtree: invalid dimension: expected %d, got %d", e.Expected, e.Actual)
}

// Is matches ErrInvalidDimension.
func (e *DimensionError) Is(target error) bool { return target == ErrInvalidDimension }

func checkDims(expected int, p *Point) error {
	actual := p.Dims()
	if actual == 0 {
		return &DimensionError{Actual: actual}
	}
	if expected > 0 && actual != expected {
		return &DimensionError{Expected: expected, Actual: actual}
	}
	return nil
}
