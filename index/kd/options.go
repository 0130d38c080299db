package kd

import (
	"fmt"
	"strings"

	"github.com/viant/sqlite-kdtree/internal/kd/tree"
)

// BuildMode selects how Build shapes the tree.
type BuildMode int

const (
	// Balanced builds the tree by recursive median splits.
	Balanced BuildMode = iota
	// Incremental inserts points one at a time in the given order.
	Incremental
)

func (m BuildMode) String() string {
	if m == Incremental {
		return "incremental"
	}
	return "balanced"
}

// ParseBuildMode resolves a build mode name.
func ParseBuildMode(name string) (BuildMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "balanced", "median":
		return Balanced, nil
	case "incremental", "insert":
		return Incremental, nil
	}
	return Balanced, fmt.Errorf("kd: unknown build mode %q", name)
}

// PruneRule re-exports the hyperplane test selector.
type PruneRule = tree.PruneRule

const (
	PrunePlaneDistance = tree.PrunePlaneDistance
	PruneSquaredPlane  = tree.PruneSquaredPlane
)

// ParsePruneRule resolves a prune rule name.
func ParsePruneRule(name string) (PruneRule, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "plane", "distance":
		return PrunePlaneDistance, nil
	case "squared_plane", "squared":
		return PruneSquaredPlane, nil
	}
	return PrunePlaneDistance, fmt.Errorf("kd: unknown prune rule %q", name)
}

// Option configures an Index.
type Option func(*Index)

// WithBuildMode sets how Build shapes the tree.
func WithBuildMode(mode BuildMode) Option {
	return func(i *Index) { i.mode = mode }
}

// WithPruneRule sets the hyperplane test used by queries.
func WithPruneRule(rule PruneRule) Option {
	return func(i *Index) { i.rule = rule }
}
