package bruteforce

import (
	"fmt"
	"slices"
	"sort"

	"github.com/viant/vec/search"
)

// Index is a brute-force Euclidean nearest-neighbor index.
type Index struct {
	ids  []string
	vecs [][]float32
	dim  int
}

// Build loads ids and vectors.
func (i *Index) Build(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("bruteforce: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		i.ids, i.vecs, i.dim = nil, nil, 0
		return nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("bruteforce: empty vector for id %q", ids[0])
	}
	for j := range vectors {
		if len(vectors[j]) != dim {
			return fmt.Errorf("bruteforce: inconsistent vector dims %d vs %d", len(vectors[j]), dim)
		}
	}
	i.ids = append([]string(nil), ids...)
	i.vecs = make([][]float32, len(vectors))
	for j, v := range vectors {
		i.vecs[j] = slices.Clone(v)
	}
	i.dim = dim
	return nil
}

// Insert appends a single point.
func (i *Index) Insert(id string, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("bruteforce: empty vector for id %q", id)
	}
	if i.dim != 0 && len(vector) != i.dim {
		return fmt.Errorf("bruteforce: vector dim %d != index dim %d", len(vector), i.dim)
	}
	i.dim = len(vector)
	i.ids = append(i.ids, id)
	i.vecs = append(i.vecs, slices.Clone(vector))
	return nil
}

// Len returns the number of stored points.
func (i *Index) Len() int { return len(i.ids) }

// Query returns the k closest points by Euclidean distance.
func (i *Index) Query(query []float32, k int) ([]string, []float64, error) {
	if len(i.vecs) == 0 || k <= 0 {
		return nil, nil, nil
	}
	if len(query) != i.dim {
		return nil, nil, fmt.Errorf("bruteforce: query dim %d != index dim %d", len(query), i.dim)
	}
	type scored struct {
		idx  int
		dist float64
	}
	scoreds := make([]scored, len(i.vecs))
	q := search.Float32s(query)
	for j := range i.vecs {
		scoreds[j] = scored{idx: j, dist: float64(q.EuclideanDistance(i.vecs[j]))}
	}
	sort.SliceStable(scoreds, func(a, b int) bool { return scoreds[a].dist < scoreds[b].dist })
	if k > len(scoreds) {
		k = len(scoreds)
	}
	outIDs := make([]string, k)
	outDists := make([]float64, k)
	for n := 0; n < k; n++ {
		outIDs[n] = i.ids[scoreds[n].idx]
		outDists[n] = scoreds[n].dist
	}
	return outIDs, outDists, nil
}

// Nearest returns the closest point.
func (i *Index) Nearest(query []float32) (string, float64, bool, error) {
	ids, dists, err := i.Query(query, 1)
	if err != nil || len(ids) == 0 {
		return "", 0, false, err
	}
	return ids[0], dists[0], true, nil
}
