package kdutil

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/viant/sqlite-kdtree/vector"
)

// Dataset addresses one dataset of a kdtab virtual table.
type Dataset struct {
	DB          Execer
	VirtualName string
	ShadowName  string
	Column      string
	DatasetID   string
}

// NewDataset constructs a Dataset for a kdtab virtual table declared with
// the default point column. The caller is responsible for having created
// the virtual table and its shadow (see kdtab.EnsureShadow).
func NewDataset(db Execer, virtualTable, datasetID string) (*Dataset, error) {
	if db == nil {
		return nil, fmt.Errorf("kdutil: db is nil")
	}
	if datasetID == "" {
		return nil, fmt.Errorf("kdutil: dataset id is empty")
	}
	return &Dataset{
		DB:          db,
		VirtualName: virtualTable,
		ShadowName:  ShadowTableName(virtualTable),
		Column:      DefaultColumn,
		DatasetID:   datasetID,
	}, nil
}

// UpsertPoints upserts the records into the dataset.
func (d *Dataset) UpsertPoints(ctx context.Context, records []vector.Record) error {
	for _, rec := range records {
		if err := UpsertShadowPoint(ctx, d.DB, d.ShadowName, d.DatasetID, rec); err != nil {
			return err
		}
	}
	return nil
}

// DeletePoints removes points with the given ids from the dataset. The
// index is rebuilt on the next query.
func (d *Dataset) DeletePoints(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE dataset_id = ? AND id = ?", d.ShadowName)
	for _, id := range ids {
		if _, err := d.DB.ExecContext(ctx, stmt, d.DatasetID, id); err != nil {
			return err
		}
	}
	return nil
}

// Nearest returns the closest point of the dataset, or nil when it is empty.
func (d *Dataset) Nearest(ctx context.Context, query []float32) (*vector.Match, error) {
	matches, err := d.KNearest(ctx, query, 1)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return &matches[0], nil
}

// KNearest returns up to k points ordered by ascending distance. When
// k <= 0, every point of the dataset is returned.
func (d *Dataset) KNearest(ctx context.Context, query []float32, k int) ([]vector.Match, error) {
	blob, err := vector.EncodePoint(query)
	if err != nil {
		return nil, err
	}
	base := fmt.Sprintf("SELECT %s, distance FROM %s WHERE dataset_id = ? AND %s MATCH ?", d.Column, d.VirtualName, d.Column)
	var rows *sql.Rows
	if k > 0 {
		rows, err = d.DB.QueryContext(ctx, base+" AND k = ?", d.DatasetID, blob, k)
	} else {
		rows, err = d.DB.QueryContext(ctx, base, d.DatasetID, blob)
	}
	if err != nil {
		return nil, err
	}
	var out []vector.Match
	for rows.Next() {
		var m vector.Match
		if err := rows.Scan(&m.ID, &m.Distance); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, m)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}
	for i := range out {
		if err := d.load(ctx, &out[i].Record); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *Dataset) load(ctx context.Context, rec *vector.Record) error {
	stmt := fmt.Sprintf("SELECT label, meta, coords FROM %s WHERE dataset_id = ? AND id = ?", d.ShadowName)
	var label, meta sql.NullString
	var blob []byte
	if err := d.DB.QueryRowContext(ctx, stmt, d.DatasetID, rec.ID).Scan(&label, &meta, &blob); err != nil {
		return fmt.Errorf("kdutil: load %q: %w", rec.ID, err)
	}
	rec.Label, rec.Meta = label.String, meta.String
	coords, err := vector.DecodePoint(blob)
	if err != nil {
		return err
	}
	rec.Coords = coords
	return nil
}
