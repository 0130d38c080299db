package tree

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bruteForce(points []*Point, query *Point) []Neighbor {
	out := make([]Neighbor, len(points))
	for i, p := range points {
		out[i] = Neighbor{Point: p, Distance: EuclideanDistance(query, p)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

func distances(neighbors []Neighbor) []float32 {
	out := make([]float32, len(neighbors))
	for i, n := range neighbors {
		out[i] = n.Distance
	}
	return out
}

func TestNearest_Scenario(t *testing.T) {
	tr, err := Build(samplePoints())
	require.NoError(t, err)

	query := NewPoint(5, 10)
	got, err := tr.Nearest(query)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []float32{6, 12}, got.Point.Vector)

	expected := bruteForce(samplePoints(), query)[0]
	assert.Equal(t, expected.Distance, got.Distance)
}

func TestKNearest_Scenario(t *testing.T) {
	tr, err := Build(samplePoints())
	require.NoError(t, err)

	got, err := tr.KNearestNeighbors(NewPoint(5, 10), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []float32{6, 12}, got[0].Point.Vector)
	assert.Equal(t, []float32{2, 7}, got[1].Point.Vector)
	assert.LessOrEqual(t, got[0].Distance, got[1].Distance)
}

func TestSearch_EmptyTree(t *testing.T) {
	tr := New()
	got, err := tr.Nearest(NewPoint(1, 2))
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, k := range []int{-1, 0, 1, 10} {
		neighbors, err := tr.KNearestNeighbors(NewPoint(1, 2), k)
		require.NoError(t, err)
		assert.Empty(t, neighbors)
	}
}

func TestKNearest_DegenerateK(t *testing.T) {
	tr, err := Build(samplePoints())
	require.NoError(t, err)

	for _, k := range []int{0, -3} {
		got, err := tr.KNearestNeighbors(NewPoint(5, 10), k)
		require.NoError(t, err)
		assert.Empty(t, got)
	}

	got, err := tr.KNearestNeighbors(NewPoint(5, 10), 100)
	require.NoError(t, err)
	assert.Len(t, got, 7)
	assert.Equal(t, distances(bruteForce(samplePoints(), NewPoint(5, 10))), distances(got))
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	tr, err := Build(samplePoints())
	require.NoError(t, err)

	_, err = tr.Nearest(NewPoint(1, 2, 3))
	assert.ErrorIs(t, err, ErrInvalidDimension)
	_, err = tr.KNearestNeighbors(NewPoint(1), 2)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestSearch_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, dims := range []int{1, 2, 3, 8} {
		points := randomPoints(rng, 400, dims)
		balanced, err := Build(points)
		require.NoError(t, err)
		incremental := insertAll(t, points)

		for q := 0; q < 50; q++ {
			query := randomPoints(rng, 1, dims)[0]
			expected := bruteForce(points, query)
			for _, tr := range []*Tree{balanced, incremental} {
				nearest, err := tr.Nearest(query)
				require.NoError(t, err)
				assert.Equal(t, expected[0].Distance, nearest.Distance)

				for _, k := range []int{1, 5, 17} {
					got, err := tr.KNearestNeighbors(query, k)
					require.NoError(t, err)
					require.Len(t, got, k)
					assert.Equal(t, distances(expected[:k]), distances(got))
				}
			}
		}
	}
}

func TestNearest_FirstFoundWinsTies(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Insert(NewIndexedPoint(0, 0, 0)))
	require.NoError(t, tr.Insert(NewIndexedPoint(1, 2, 0)))

	got, err := tr.Nearest(NewPoint(1, 0))
	require.NoError(t, err)
	assert.Equal(t, int32(0), got.Point.Index())
}

// The far point (10.5, 0) sits 2.5 from the query while the root is ~3.61
// away and the splitting plane 2 away: squaring the plane distance (4) and
// comparing it against the unsquared best prunes the closer subtree.
func TestPruneRule_Distinguishes(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Insert(NewPoint(10, 3)))
	require.NoError(t, tr.Insert(NewPoint(10.5, 0)))
	query := NewPoint(8, 0)

	assert.Equal(t, PrunePlaneDistance, tr.PruneRule())
	got, err := tr.Nearest(query)
	require.NoError(t, err)
	assert.Equal(t, []float32{10.5, 0}, got.Point.Vector)
	knn, err := tr.KNearestNeighbors(query, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{10.5, 0}, knn[0].Point.Vector)

	tr.SetPruneRule(PruneSquaredPlane)
	got, err = tr.Nearest(query)
	require.NoError(t, err)
	assert.Equal(t, []float32{10, 3}, got.Point.Vector)
	knn, err = tr.KNearestNeighbors(query, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{10, 3}, knn[0].Point.Vector)

	// An unfilled heap still visits the far side.
	knn, err = tr.KNearestNeighbors(query, 2)
	require.NoError(t, err)
	assert.Len(t, knn, 2)
	assert.Equal(t, []float32{10.5, 0}, knn[0].Point.Vector)
}

func TestPruneRule_SquaredAgreesBelowUnitDistance(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	points := make([]*Point, 200)
	for i := range points {
		points[i] = NewPoint(rng.Float32(), rng.Float32())
	}
	tr, err := Build(points)
	require.NoError(t, err)
	tr.SetPruneRule(PruneSquaredPlane)

	for q := 0; q < 50; q++ {
		query := NewPoint(rng.Float32(), rng.Float32())
		got, err := tr.Nearest(query)
		require.NoError(t, err)
		assert.Equal(t, bruteForce(points, query)[0].Distance, got.Distance)
	}
}

func TestPruneRule_String(t *testing.T) {
	assert.Equal(t, "plane", PrunePlaneDistance.String())
	assert.Equal(t, "squared_plane", PruneSquaredPlane.String())
}
