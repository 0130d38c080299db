package tree

import "github.com/viant/vec/search"

// PruneRule selects the hyperplane test deciding whether the far subtree is visited.
type PruneRule int

const (
	// PrunePlaneDistance compares the perpendicular distance to the splitting
	// hyperplane with the current best distance.
	PrunePlaneDistance PruneRule = iota
	// PruneSquaredPlane compares the squared perpendicular distance with the
	// unsquared best distance. It can skip subtrees holding a closer point
	// once distances exceed 1.
	PruneSquaredPlane
)

func (r PruneRule) String() string {
	switch r {
	case PruneSquaredPlane:
		return "squared_plane"
	default:
		return "plane"
	}
}

// EuclideanDistance returns the Euclidean distance between two points.
func EuclideanDistance(p1, p2 *Point) float32 {
	return search.Float32s(p1.Vector).EuclideanDistance(p2.Vector)
}

// crossesPlane reports whether a sphere of radius best around query can reach
// the far side of the plane splitting node.
func (r PruneRule) crossesPlane(node *Node, query *Point, best float32) bool {
	diff := node.point.Vector[node.axis] - query.Vector[node.axis]
	if r == PruneSquaredPlane {
		return diff*diff < best
	}
	if diff < 0 {
		diff = -diff
	}
	return diff < best
}
