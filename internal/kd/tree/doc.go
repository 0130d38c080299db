// Package tree implements a k-d tree: a binary space partitioning index over
// points of a fixed dimension, splitting on a coordinate axis that rotates
// with depth.
//
// Trees are built either in one pass from a batch of points (Build, balanced by
// median splits) or by incremental Insert (no rebalancing). Nearest and
// KNearestNeighbors run a branch-and-bound search that visits the subtree on the
// query side of each splitting plane first and the opposite one only when the
// configured PruneRule says it can hold a closer point.
package tree
