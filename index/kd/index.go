package kd

import (
	"fmt"
	"math"
	"slices"

	idxapi "github.com/viant/sqlite-kdtree/index"
	"github.com/viant/sqlite-kdtree/internal/kd/tree"
)

// Index implements index.Index on top of a k-d tree.
type Index struct {
	ids  []string
	tree *tree.Tree
	mode BuildMode
	rule PruneRule
}

var _ idxapi.Index = (*Index)(nil)

// New constructs an empty index.
func New(opts ...Option) *Index {
	i := &Index{}
	for _, opt := range opts {
		opt(i)
	}
	i.tree = i.newTree()
	return i
}

func (i *Index) newTree() *tree.Tree {
	t := tree.New()
	t.SetPruneRule(i.rule)
	return t
}

// Mode returns the configured build mode.
func (i *Index) Mode() BuildMode { return i.mode }

// Build replaces the index content.
func (i *Index) Build(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("kd: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if len(ids) > math.MaxInt32 {
		return fmt.Errorf("kd: too many points: %d", len(ids))
	}
	points := make([]*tree.Point, len(vectors))
	for j, v := range vectors {
		points[j] = tree.NewIndexedPoint(int32(j), slices.Clone(v)...)
	}
	var built *tree.Tree
	switch i.mode {
	case Incremental:
		built = i.newTree()
		for _, p := range points {
			if err := built.Insert(p); err != nil {
				return fmt.Errorf("kd: insert %q: %w", ids[p.Index()], err)
			}
		}
	default:
		var err error
		if built, err = tree.Build(points); err != nil {
			return fmt.Errorf("kd: build: %w", err)
		}
		built.SetPruneRule(i.rule)
	}
	i.ids = append([]string(nil), ids...)
	i.tree = built
	return nil
}

// Insert adds a point without rebalancing.
func (i *Index) Insert(id string, vector []float32) error {
	if i.tree == nil {
		i.tree = i.newTree()
	}
	if len(i.ids) >= math.MaxInt32 {
		return fmt.Errorf("kd: index full")
	}
	p := tree.NewIndexedPoint(int32(len(i.ids)), slices.Clone(vector)...)
	if err := i.tree.Insert(p); err != nil {
		return fmt.Errorf("kd: insert %q: %w", id, err)
	}
	i.ids = append(i.ids, id)
	return nil
}

// Len returns the number of indexed points.
func (i *Index) Len() int { return len(i.ids) }

// Height returns the tree height.
func (i *Index) Height() int {
	if i.tree == nil {
		return 0
	}
	return i.tree.Height()
}

// Dims returns the indexed dimension, 0 when empty.
func (i *Index) Dims() int {
	if i.tree == nil {
		return 0
	}
	return i.tree.Dims()
}

// Tree exposes the underlying tree for diagnostics.
func (i *Index) Tree() *tree.Tree { return i.tree }

// ID resolves the id of a tree point.
func (i *Index) ID(p *tree.Point) string {
	if !p.HasIndex() || int(p.Index()) >= len(i.ids) {
		return ""
	}
	return i.ids[p.Index()]
}

// Query returns up to k ids ordered by ascending Euclidean distance.
func (i *Index) Query(query []float32, k int) ([]string, []float64, error) {
	if i.tree == nil || k <= 0 {
		return nil, nil, nil
	}
	neighbors, err := i.tree.KNearestNeighbors(tree.NewPoint(query...), k)
	if err != nil {
		return nil, nil, fmt.Errorf("kd: query: %w", err)
	}
	ids := make([]string, len(neighbors))
	dists := make([]float64, len(neighbors))
	for n, nb := range neighbors {
		ids[n] = i.ID(nb.Point)
		dists[n] = float64(nb.Distance)
	}
	return ids, dists, nil
}

// Nearest returns the closest point.
func (i *Index) Nearest(query []float32) (string, float64, bool, error) {
	if i.tree == nil {
		return "", 0, false, nil
	}
	best, err := i.tree.Nearest(tree.NewPoint(query...))
	if err != nil {
		return "", 0, false, fmt.Errorf("kd: nearest: %w", err)
	}
	if best == nil {
		return "", 0, false, nil
	}
	return i.ID(best.Point), float64(best.Distance), true, nil
}
