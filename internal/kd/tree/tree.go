package tree

import "sort"

// Tree represents a k-d tree over points of a fixed dimension.
// It is not safe for concurrent use when Insert may run.
type Tree struct {
	root      *Node
	pruneRule PruneRule
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{}
}

// Build constructs a balanced tree by repeated median splits. The dimension is
// taken from the first point. The caller's slice order is left untouched.
func Build(points []*Point) (*Tree, error) {
	t := New()
	if len(points) == 0 {
		return t, nil
	}
	dims := points[0].Dims()
	for _, p := range points {
		if err := checkDims(dims, p); err != nil {
			return nil, err
		}
	}
	subset := append([]*Point(nil), points...)
	t.root = build(subset, 0, dims)
	return t, nil
}

func build(points []*Point, depth, dims int) *Node {
	if len(points) == 0 {
		return nil
	}
	axis := depth % dims
	sort.Slice(points, func(i, j int) bool { return points[i].Vector[axis] < points[j].Vector[axis] })
	median := len(points) / 2
	node := NewNode(points[median], axis)
	node.left = build(points[:median], depth+1, dims)
	node.right = build(points[median+1:], depth+1, dims)
	return node
}

// SetPruneRule switches the hyperplane test used by searches.
func (t *Tree) SetPruneRule(r PruneRule) { t.pruneRule = r }

// PruneRule returns the configured hyperplane test.
func (t *Tree) PruneRule() PruneRule { return t.pruneRule }

// Root returns the root node or nil for an empty tree.
func (t *Tree) Root() *Node { return t.root }

// IsEmpty reports whether the tree holds no points.
func (t *Tree) IsEmpty() bool { return t.root == nil }

// Dims returns the dimension established by the stored points, 0 when empty.
func (t *Tree) Dims() int {
	if t.root == nil {
		return 0
	}
	return t.root.point.Dims()
}

// Insert adds a point below the existing nodes without rebalancing.
func (t *Tree) Insert(point *Point) error {
	if err := checkDims(t.Dims(), point); err != nil {
		return err
	}
	t.root = insert(t.root, point, 0)
	return nil
}

func insert(node *Node, point *Point, depth int) *Node {
	if node == nil {
		return NewNode(point, depth%point.Dims())
	}
	if point.Vector[node.axis] < node.point.Vector[node.axis] {
		node.left = insert(node.left, point, depth+1)
	} else {
		node.right = insert(node.right, point, depth+1)
	}
	return node
}

// Contains reports whether a point with identical coordinates is stored,
// following the same descent rule as Insert and checking both sides on ties.
func (t *Tree) Contains(point *Point) bool {
	if t.root == nil || point.Dims() != t.Dims() {
		return false
	}
	return contains(t.root, point)
}

func contains(node *Node, point *Point) bool {
	if node == nil {
		return false
	}
	if node.point.Equal(point) {
		return true
	}
	v, split := point.Vector[node.axis], node.point.Vector[node.axis]
	switch {
	case v < split:
		return contains(node.left, point)
	case v > split:
		return contains(node.right, point)
	default:
		return contains(node.left, point) || contains(node.right, point)
	}
}

// Walk visits nodes in pre-order with their depth until fn returns false.
func (t *Tree) Walk(fn func(node *Node, depth int) bool) {
	type frame struct {
		node  *Node
		depth int
	}
	if t.root == nil {
		return
	}
	stack := []frame{{node: t.root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(top.node, top.depth) {
			return
		}
		if top.node.right != nil {
			stack = append(stack, frame{node: top.node.right, depth: top.depth + 1})
		}
		if top.node.left != nil {
			stack = append(stack, frame{node: top.node.left, depth: top.depth + 1})
		}
	}
}

// Len returns the number of stored points.
func (t *Tree) Len() int {
	count := 0
	t.Walk(func(*Node, int) bool {
		count++
		return true
	})
	return count
}

// Height returns the number of levels, 0 for an empty tree.
func (t *Tree) Height() int {
	height := 0
	t.Walk(func(_ *Node, depth int) bool {
		if depth+1 > height {
			height = depth + 1
		}
		return true
	})
	return height
}
