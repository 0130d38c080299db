package tree

import (
	"fmt"
	"strconv"
	"strings"
)

// Point represents a location in k-dimensional space.
type Point struct {
	index  int32
	Vector []float32
}

// NewPoint constructs a point for the given coordinates.
func NewPoint(vector ...float32) *Point {
	return &Point{index: -1, Vector: vector}
}

// NewIndexedPoint constructs a point carrying a caller assigned index.
func NewIndexedPoint(index int32, vector ...float32) *Point {
	return &Point{index: index, Vector: vector}
}

// Index returns the caller assigned index or -1.
func (p *Point) Index() int32 {
	if p == nil {
		return -1
	}
	return p.index
}

// HasIndex reports whether the point carries a caller assigned index.
func (p *Point) HasIndex() bool {
	return p != nil && p.index >= 0
}

// Dims returns the number of coordinates.
func (p *Point) Dims() int {
	if p == nil {
		return 0
	}
	return len(p.Vector)
}

// Equal reports whether both points have identical coordinates.
func (p *Point) Equal(o *Point) bool {
	if p == nil || o == nil || len(p.Vector) != len(o.Vector) {
		return false
	}
	for i, v := range p.Vector {
		if o.Vector[i] != v {
			return false
		}
	}
	return true
}

func (p *Point) String() string {
	if p == nil {
		return "<nil>"
	}
	parts := make([]string, len(p.Vector))
	for i, v := range p.Vector {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
}
