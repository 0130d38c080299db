// Package kd provides an index.Index backed by a k-d tree. Points are built
// either as a balanced tree (median splits) or by incremental insertion, and
// queries use branch-and-bound search under Euclidean distance.
package kd
