package index

// Index defines a point index answering nearest-neighbor queries under
// Euclidean distance. Points are identified by caller supplied ids.
type Index interface {
	// Build replaces the index content with the given ids and vectors.
	// ids and vectors must have the same length; all vectors share one dimension.
	Build(ids []string, vectors [][]float32) error

	// Insert adds a single point to the index.
	Insert(id string, vector []float32) error

	// Query returns up to k matches as parallel slices of ids and distances
	// ordered by ascending distance. k <= 0 yields no matches.
	Query(query []float32, k int) (ids []string, distances []float64, err error)

	// Nearest returns the closest point; ok is false for an empty index.
	Nearest(query []float32) (id string, distance float64, ok bool, err error)

	// Len returns the number of indexed points.
	Len() int
}
