// Package kdutil provides a dataset-level API on top of a kdtab virtual
// table and its shadow table: upserting and deleting points and running
// nearest neighbor queries through SQL.
package kdutil

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/viant/sqlite-kdtree/kdtab"
	"github.com/viant/sqlite-kdtree/vector"
)

// DefaultColumn is the point column declared by USING kdtab(point_id).
const DefaultColumn = "point_id"

// Execer runs statements against SQLite. Both *sql.DB and *sql.Conn satisfy
// it; pass a *sql.Conn when the kdtab module is only installed on a specific
// connection.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ShadowTableName derives the shadow table name for a kdtab virtual table.
//
// For example:
//
//	ShadowTableName("pts") == "_kd_pts"
func ShadowTableName(virtualTable string) string {
	return kdtab.ShadowName("", virtualTable)
}

// UpsertShadowPoint inserts or updates a point row of a dataset in a kdtab
// shadow table. Shadow triggers invalidate the cached index of the dataset.
//
// Table names are interpolated into SQL; callers should ensure that
// shadowTable is trusted and not derived from untrusted input.
func UpsertShadowPoint(ctx context.Context, db Execer, shadowTable, datasetID string, rec vector.Record) error {
	if db == nil {
		return fmt.Errorf("kdutil: db is nil")
	}
	if rec.ID == "" {
		return fmt.Errorf("kdutil: point id is empty")
	}
	blob, err := vector.EncodePoint(rec.Coords)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf(`
INSERT INTO %s(dataset_id, id, label, meta, coords)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(dataset_id, id) DO UPDATE SET
  label = excluded.label,
  meta = excluded.meta,
  coords = excluded.coords`, shadowTable)
	_, err = db.ExecContext(ctx, stmt, datasetID, rec.ID, rec.Label, rec.Meta, blob)
	return err
}
