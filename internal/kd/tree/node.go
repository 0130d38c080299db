package tree

import "fmt"

// Node is a single k-d tree node; it exclusively owns its children.
type Node struct {
	point *Point
	axis  int
	left  *Node
	right *Node
}

// NewNode constructs a leaf for the provided point and split axis.
func NewNode(point *Point, axis int) *Node {
	return &Node{point: point, axis: axis}
}

// Point returns the point stored at the node.
func (n *Node) Point() *Point { return n.point }

// Axis returns the coordinate index the node splits on.
func (n *Node) Axis() int { return n.axis }

// Left returns the subtree with smaller coordinates on Axis.
func (n *Node) Left() *Node { return n.left }

// Right returns the complementary subtree.
func (n *Node) Right() *Node { return n.right }

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return n.left == nil && n.right == nil }

func (n *Node) String() string {
	if n == nil {
		return "Node(<nil>)"
	}
	return fmt.Sprintf("Node(point=%s, axis=%d)", n.point, n.axis)
}

// children returns the near and far child for the query coordinate on the node axis.
func (n *Node) children(query *Point) (near, far *Node) {
	if query.Vector[n.axis] < n.point.Vector[n.axis] {
		return n.left, n.right
	}
	return n.right, n.left
}
