// Package bruteforce provides a point index that answers nearest-neighbor
// queries by scanning every stored vector. It serves small datasets and acts as
// the reference the k-d tree index is checked against.
package bruteforce
