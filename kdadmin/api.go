package kdadmin

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/viant/sqlite-kdtree/kdtab"
	"modernc.org/sqlite/vtab"
)

// Module provides administrative operations via a virtual table.
// Usage:
//
//	CREATE VIRTUAL TABLE kd_admin USING kd_admin(op);
//	SELECT op FROM kd_admin WHERE op MATCH 'main._kd_pts|cities'; -- rebuild one dataset
//	SELECT op FROM kd_admin WHERE op MATCH 'main._kd_pts';        -- rebuild all datasets
//
// A single dataset returns one row with op='rebuilt:<points>:height:<h>';
// all datasets return one row per dataset suffixed with ':dataset:<id>'.
type Module struct{ db *sql.DB }

// Table is a kd_admin virtual table instance. It holds no state besides the
// database used to reload shadow tables.
type Table struct{ db *sql.DB }

// Cursor iterates the result rows of one admin operation.
type Cursor struct {
	table *Table
	rows  []string
	pos   int
}

// Register registers the kd_admin virtual table module. Rebuilds triggered
// through it read shadow tables via db. Registering twice is a no-op.
func Register(db *sql.DB) error {
	if err := vtab.RegisterModule(db, "kd_admin", &Module{db: db}); err != nil {
		if !strings.Contains(err.Error(), "already registered") {
			return err
		}
	}
	return nil
}

// Create declares a kd_admin table; it behaves like Connect.
func (m *Module) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.Connect(ctx, args)
}

// Connect declares the single op column.
func (m *Module) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("kd_admin: need at least 3 args")
	}
	if err := ctx.EnableConstraintSupport(); err != nil {
		return nil, fmt.Errorf("kd_admin: EnableConstraintSupport failed: %w", err)
	}
	// Single TEXT column `op` reporting results.
	if err := ctx.Declare(fmt.Sprintf("CREATE TABLE %s(op TEXT)", args[2])); err != nil {
		return nil, err
	}
	return &Table{db: m.db}, nil
}

// BestIndex consumes the MATCH constraint on op; without it the table is
// empty.
func (t *Table) BestIndex(info *vtab.IndexInfo) error {
	for i := range info.Constraints {
		c := &info.Constraints[i]
		if !c.Usable {
			continue
		}
		if c.Column == 0 && c.Op == vtab.OpMATCH {
			c.ArgIndex = 0
			c.Omit = true
			info.IdxNum = 1
			break
		}
	}
	return nil
}

// Open returns a new cursor.
func (t *Table) Open() (vtab.Cursor, error) { return &Cursor{table: t}, nil }

// Disconnect is a no-op.
func (t *Table) Disconnect() error { return nil }

// Destroy is a no-op; kd_admin keeps no storage.
func (t *Table) Destroy() error { return nil }

// Filter runs the rebuild named by the MATCH target and buffers one row
// per rebuilt dataset.
func (c *Cursor) Filter(idxNum int, _ string, vals []vtab.Value) error {
	c.rows = nil
	c.pos = 0
	if idxNum != 1 || len(vals) == 0 || vals[0] == nil {
		return nil
	}
	target, ok := vals[0].(string)
	if !ok {
		return fmt.Errorf("kd_admin: MATCH expects '<shadow>|<dataset>' as TEXT")
	}
	shadow, dataset, err := parseTarget(target)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if dataset != "" {
		stats, err := kdtab.Rebuild(ctx, c.table.db, shadow, dataset)
		if err != nil {
			return err
		}
		c.rows = []string{formatStats(stats)}
		return nil
	}
	all, err := kdtab.RebuildAll(ctx, c.table.db, shadow)
	if err != nil {
		return err
	}
	datasets := make([]string, 0, len(all))
	for ds := range all {
		datasets = append(datasets, ds)
	}
	sort.Strings(datasets)
	for _, ds := range datasets {
		c.rows = append(c.rows, formatStats(all[ds])+":dataset:"+ds)
	}
	return nil
}

func formatStats(s kdtab.Stats) string {
	return fmt.Sprintf("rebuilt:%d:height:%d", s.Points, s.Height)
}

// Next advances to the next row.
func (c *Cursor) Next() error {
	if c.pos < len(c.rows) {
		c.pos++
	}
	return nil
}

// Eof reports whether all rows were consumed.
func (c *Cursor) Eof() bool { return c.pos >= len(c.rows) }

// Column returns the op text of the current row.
func (c *Cursor) Column(col int) (vtab.Value, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, fmt.Errorf("kd_admin: Column out of range")
	}
	if col == 0 {
		return c.rows[c.pos], nil
	}
	return nil, nil
}

// Rowid returns the 1-based row position.
func (c *Cursor) Rowid() (int64, error) { return int64(c.pos + 1), nil }

// Close releases buffered rows.
func (c *Cursor) Close() error { c.rows = nil; c.pos = 0; return nil }

// parseTarget splits "main._kd_pts|cities" into shadow and dataset. The
// dataset is empty when the target names only the shadow table.
func parseTarget(target string) (string, string, error) {
	shadow, dataset, ok := strings.Cut(strings.TrimSpace(target), "|")
	shadow, dataset = strings.TrimSpace(shadow), strings.TrimSpace(dataset)
	if shadow == "" || (ok && dataset == "") {
		return "", "", fmt.Errorf("kd_admin: MATCH target %q must be '<shadow>[|<dataset>]'", target)
	}
	return shadow, dataset, nil
}
