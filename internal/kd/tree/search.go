package tree

// Nearest returns the stored point closest to query, or nil when the tree is empty.
// Among equally distant points the first one visited is kept.
func (t *Tree) Nearest(query *Point) (*Neighbor, error) {
	if t.root == nil {
		return nil, nil
	}
	if err := checkDims(t.Dims(), query); err != nil {
		return nil, err
	}
	best := t.nearest(t.root, query, nil)
	return best, nil
}

func (t *Tree) nearest(node *Node, query *Point, best *Neighbor) *Neighbor {
	if node == nil {
		return best
	}
	if d := EuclideanDistance(query, node.point); best == nil || d < best.Distance {
		best = &Neighbor{Point: node.point, Distance: d}
	}
	near, far := node.children(query)
	best = t.nearest(near, query, best)
	if t.pruneRule.crossesPlane(node, query, best.Distance) {
		best = t.nearest(far, query, best)
	}
	return best
}

// KNearestNeighbors returns up to k stored points ordered by ascending distance.
func (t *Tree) KNearestNeighbors(query *Point, k int) ([]Neighbor, error) {
	if t.root == nil || k <= 0 {
		return nil, nil
	}
	if err := checkDims(t.Dims(), query); err != nil {
		return nil, err
	}
	best := t.kNearest(t.root, query, k, make(Neighbors, 0, min(k, 64)))
	return best.sorted(), nil
}

func (t *Tree) kNearest(node *Node, query *Point, k int, best Neighbors) Neighbors {
	if node == nil {
		return best
	}
	best = best.offer(Neighbor{Point: node.point, Distance: EuclideanDistance(query, node.point)}, k)
	near, far := node.children(query)
	best = t.kNearest(near, query, k, best)
	if len(best) < k || t.pruneRule.crossesPlane(node, query, best.worst()) {
		best = t.kNearest(far, query, k, best)
	}
	return best
}
