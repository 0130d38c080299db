package vector

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/sqlite-kdtree/engine"
	"github.com/viant/sqlite-kdtree/index/kd"
)

func openStore(t *testing.T, opts ...StoreOption) (*sql.DB, *SQLiteStore) {
	t.Helper()
	db, err := engine.Open(filepath.Join(t.TempDir(), "points.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store, err := NewSQLiteStore(db, opts...)
	require.NoError(t, err)
	return db, store
}

func sampleRecords() []Record {
	coords := [][]float32{{3, 6}, {17, 15}, {13, 15}, {6, 12}, {9, 1}, {2, 7}, {10, 19}}
	out := make([]Record, len(coords))
	for i, c := range coords {
		out[i] = Record{ID: string(rune('a' + i)), Label: "p", Meta: "{}", Coords: c}
	}
	return out
}

func TestSQLiteStore_AddQueryRemove(t *testing.T) {
	ctx := context.Background()
	_, store := openStore(t)

	ids, err := store.AddPoints(ctx, sampleRecords())
	require.NoError(t, err)
	assert.Len(t, ids, 7)

	best, err := store.Nearest(ctx, []float32{5, 10})
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, "d", best.ID)
	assert.Equal(t, []float32{6, 12}, best.Coords)

	matches, err := store.KNearest(ctx, []float32{5, 10}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "d", matches[0].ID)
	assert.Equal(t, "f", matches[1].ID)
	assert.Less(t, matches[0].Distance, matches[1].Distance)

	require.NoError(t, store.Remove(ctx, "d"))
	best, err = store.Nearest(ctx, []float32{5, 10})
	require.NoError(t, err)
	assert.Equal(t, "f", best.ID)

	matches, err = store.KNearest(ctx, []float32{5, 10}, 100)
	require.NoError(t, err)
	assert.Len(t, matches, 6)
}

func TestSQLiteStore_ReloadsFromDatabase(t *testing.T) {
	ctx := context.Background()
	db, store := openStore(t)
	_, err := store.AddPoints(ctx, sampleRecords())
	require.NoError(t, err)

	reopened, err := NewSQLiteStore(db, WithIndexOptions(kd.WithBuildMode(kd.Incremental)))
	require.NoError(t, err)
	best, err := reopened.Nearest(ctx, []float32{5, 10})
	require.NoError(t, err)
	assert.Equal(t, "d", best.ID)

	height, err := reopened.Height(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, height)
	require.NoError(t, store.Rebuild(ctx))
	height, err = store.Height(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, height)
}

// TestSQLiteStore_RemoveRebuildsBalanced checks that a removal is followed by
// a median build even when the store inserts incrementally.
func TestSQLiteStore_RemoveRebuildsBalanced(t *testing.T) {
	ctx := context.Background()
	_, store := openStore(t, WithIndexOptions(kd.WithBuildMode(kd.Incremental)))
	_, err := store.AddPoints(ctx, sampleRecords())
	require.NoError(t, err)
	_, err = store.AddPoints(ctx, []Record{{ID: "h", Coords: []float32{1, 1}}})
	require.NoError(t, err)

	idx, err := store.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, kd.Incremental, idx.Mode())
	assert.GreaterOrEqual(t, idx.Height(), 4)

	require.NoError(t, store.Remove(ctx, "h"))
	idx, err = store.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, kd.Balanced, idx.Mode())
	assert.Equal(t, 7, idx.Len())
	assert.Equal(t, 3, idx.Height())

	_, err = store.AddPoints(ctx, []Record{{ID: "i", Coords: []float32{4, 4}}})
	require.NoError(t, err)
	best, err := store.Nearest(ctx, []float32{4, 4.1})
	require.NoError(t, err)
	assert.Equal(t, "i", best.ID)
}

func TestSQLiteStore_GeneratesIDs(t *testing.T) {
	ctx := context.Background()
	_, store := openStore(t)
	ids, err := store.AddPoints(ctx, []Record{{Coords: []float32{1, 1}}, {Coords: []float32{2, 2}}})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEmpty(t, ids[0])
	assert.NotEqual(t, ids[0], ids[1])

	best, err := store.Nearest(ctx, []float32{2.1, 2.1})
	require.NoError(t, err)
	assert.Equal(t, ids[1], best.ID)
}

func TestSQLiteStore_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	_, store := openStore(t)
	_, err := store.AddPoints(ctx, []Record{{ID: "a", Coords: []float32{1, 2}}})
	require.NoError(t, err)

	_, err = store.AddPoints(ctx, []Record{{ID: "b", Coords: []float32{1, 2, 3}}})
	assert.ErrorIs(t, err, ErrInvalidDimension)
	_, err = store.KNearest(ctx, []float32{1}, 1)
	assert.ErrorIs(t, err, ErrInvalidDimension)

	matches, err := store.KNearest(ctx, []float32{0, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestSQLiteStore_Empty(t *testing.T) {
	ctx := context.Background()
	_, store := openStore(t)
	best, err := store.Nearest(ctx, []float32{1, 2})
	require.NoError(t, err)
	assert.Nil(t, best)
	matches, err := store.KNearest(ctx, []float32{1, 2}, 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Error(t, store.Remove(ctx, ""))
}
