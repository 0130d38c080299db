package vector

import (
	"context"

	"github.com/viant/sqlite-kdtree/internal/kd/tree"
)

// ErrInvalidDimension reports a point whose dimension differs from the stored points.
var ErrInvalidDimension = tree.ErrInvalidDimension

// Record is a labeled point kept in the store.
type Record struct {
	// ID is the logical identifier. When empty on insert, the store generates one.
	ID string

	// Label is a human readable name for the point.
	Label string

	// Meta is an opaque payload (typically JSON) associated with the point.
	Meta string

	// Coords holds the k coordinates.
	Coords []float32
}

// Match is a record returned by a nearest-neighbor query.
type Match struct {
	Record
	Distance float64
}

// Store defines the application-level point store API.
type Store interface {
	// AddPoints inserts records and returns their ids.
	AddPoints(ctx context.Context, records []Record) ([]string, error)

	// Nearest returns the record closest to query, nil when the store is empty.
	Nearest(ctx context.Context, query []float32) (*Match, error)

	// KNearest returns up to k records ordered by ascending distance.
	KNearest(ctx context.Context, query []float32, k int) ([]Match, error)

	// Remove deletes the record with the given id.
	Remove(ctx context.Context, id string) error
}
