// Package index defines a minimal abstraction for point indexes that can be
// built from coordinate vectors and queried for nearest neighbors.
// Implementations in this module include a k-d tree and a brute-force baseline.
package index
