package kdtab

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	sqlite "modernc.org/sqlite"
	"modernc.org/sqlite/vtab"
)

// Module implements vtab.Module for the kdtab virtual table. It maps each
// table to a per-table shadow store and answers MATCH queries with a k-d
// tree built per dataset.
type Module struct {
	db *sql.DB
}

// Table represents a single kdtab virtual table instance.
type Table struct {
	db        *sql.DB
	dbName    string
	tableName string
	shadow    string // qualified shadow table name (e.g. "main._kd_pts")
	opts      indexOptions

	dbPathOnce sync.Once
	dbPath     string
}

const (
	idxDatasetScan = iota
	idxDatasetMatch
	idxDatasetMatchK
)

const (
	colDataset = iota
	colPoint
	colDistance
	colK
)

type row struct {
	rowid    int64
	dataset  string
	id       string
	distance float64
}

// Cursor scans results from a kdtab table.
type Cursor struct {
	table   *Table
	rows    []row
	pos     int
	k       *int64
	dataset string
}

var registerInvalidateOnce sync.Once

// Register registers the kdtab virtual table module with the provided *sql.DB.
func Register(db *sql.DB) error {
	mod := &Module{db: db}
	if err := vtab.RegisterModule(db, "kdtab", mod); err != nil {
		if !strings.Contains(err.Error(), "already registered") {
			return err
		}
	}
	// kd_invalidate is used by shadow triggers; registered globally for new
	// connections. It clears cached state, so it must not be deterministic.
	var err error
	registerInvalidateOnce.Do(func() {
		err = sqlite.RegisterScalarFunction("kd_invalidate", 2, invalidateFunc)
	})
	return err
}

// Create initializes a kdtab table instance. The shadow table is created
// lazily on first query or explicitly with EnsureShadow.
func (m *Module) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.connect(ctx, args, "CREATE")
}

// Connect attaches to an existing kdtab table instance.
func (m *Module) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.connect(ctx, args, "CONNECT")
}

func (m *Module) connect(ctx vtab.Context, args []string, verb string) (vtab.Table, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("kdtab: %s expects at least 3 args, got %d", verb, len(args))
	}
	if err := ctx.EnableConstraintSupport(); err != nil {
		return nil, fmt.Errorf("kdtab: EnableConstraintSupport failed: %w", err)
	}
	// Declared column name comes from the first bare argument (e.g. USING kdtab(point_id)).
	col := "point_id"
	optStart := 3
	if len(args) > 3 {
		a := strings.TrimSpace(args[3])
		if a != "" && !strings.Contains(a, "=") {
			col = a
			optStart = 4
		}
	}
	if err := ctx.Declare(fmt.Sprintf("CREATE TABLE %s(dataset_id TEXT, %s TEXT, distance REAL HIDDEN, k INTEGER HIDDEN)", args[2], col)); err != nil {
		return nil, err
	}
	t := &Table{db: m.db, dbName: args[1], tableName: args[2], opts: parseIndexOptions(args[optStart:])}
	t.shadow = ShadowName(t.dbName, t.tableName)
	rememberOptions(t.tableName, t.opts)
	return t, nil
}

// BestIndex pushes down dataset_id equality, MATCH on the point column and
// the hidden k bound.
func (t *Table) BestIndex(info *vtab.IndexInfo) error {
	var (
		datasetConstraint *vtab.Constraint
		matchConstraint   *vtab.Constraint
		kConstraint       *vtab.Constraint
		nextArg           int
	)
	for i := range info.Constraints {
		c := &info.Constraints[i]
		if !c.Usable {
			continue
		}
		switch {
		case c.Column == colDataset && c.Op == vtab.OpEQ:
			datasetConstraint = c
		case c.Column == colPoint && c.Op == vtab.OpMATCH:
			matchConstraint = c
		case c.Column == colK && c.Op == vtab.OpEQ:
			kConstraint = c
		}
	}
	if datasetConstraint == nil {
		return fmt.Errorf("kdtab: dataset_id constraint required")
	}
	datasetConstraint.ArgIndex = nextArg
	datasetConstraint.Omit = true
	nextArg++

	switch {
	case matchConstraint == nil:
		info.IdxNum = idxDatasetScan
	case kConstraint == nil:
		matchConstraint.ArgIndex = nextArg
		matchConstraint.Omit = true
		info.IdxNum = idxDatasetMatch
	default:
		matchConstraint.ArgIndex = nextArg
		matchConstraint.Omit = true
		nextArg++
		kConstraint.ArgIndex = nextArg
		kConstraint.Omit = true
		info.IdxNum = idxDatasetMatchK
	}
	return nil
}

// Open allocates a new cursor.
func (t *Table) Open() (vtab.Cursor, error) { return &Cursor{table: t}, nil }

// Disconnect cleans up per-connection resources.
func (t *Table) Disconnect() error { return nil }

// Destroy drops cached indices; the shadow table persists.
func (t *Table) Destroy() error {
	InvalidateCache(t.shadow, "")
	return nil
}

func (t *Table) cachedDbPath(ctx context.Context) string {
	t.dbPathOnce.Do(func() {
		path, err := resolveDbPath(ctx, t.db, t.dbName)
		if err != nil {
			path = t.dbName
			if path == "" {
				path = "main"
			}
		}
		t.dbPath = path
	})
	return t.dbPath
}

// Filter computes the result set based on idxNum/vals.
func (c *Cursor) Filter(idxNum int, _ string, vals []vtab.Value) error {
	c.rows, c.pos, c.k, c.dataset = nil, 0, nil, ""
	if c.table == nil || c.table.db == nil {
		return nil
	}
	ctx := context.Background()
	if len(vals) == 0 || vals[0] == nil {
		return fmt.Errorf("kdtab: dataset_id argument is required")
	}
	dataset, err := asString(vals[0])
	if err != nil {
		return err
	}
	c.dataset = dataset

	switch idxNum {
	case idxDatasetScan:
		return c.scan(ctx)
	case idxDatasetMatch, idxDatasetMatchK:
		if len(vals) < 2 || vals[1] == nil {
			return fmt.Errorf("kdtab: MATCH argument is required")
		}
		query, err := decodeMatchArg(vals[1])
		if err != nil {
			return err
		}
		idx, err := c.table.ensureIndex(ctx, dataset)
		if err != nil {
			return err
		}
		k := idx.Len()
		if idxNum == idxDatasetMatchK {
			if len(vals) < 3 || vals[2] == nil {
				return fmt.Errorf("kdtab: missing k constraint")
			}
			n, err := asInt(vals[2])
			if err != nil {
				return err
			}
			k64 := int64(n)
			c.k = &k64
			k = n
		}
		ids, dists, err := idx.Query(query, k)
		if err != nil {
			return fmt.Errorf("kdtab: query %s/%s: %w", c.table.tableName, dataset, err)
		}
		out := make([]row, 0, len(ids))
		for i, id := range ids {
			rid, err := c.table.lookupRow(ctx, dataset, id)
			if err != nil {
				if err == sql.ErrNoRows {
					continue
				}
				return err
			}
			out = append(out, row{rowid: rid, dataset: dataset, id: id, distance: dists[i]})
		}
		c.rows = out
		return nil
	default:
		return fmt.Errorf("kdtab: unsupported query plan")
	}
}

func (c *Cursor) scan(ctx context.Context) error {
	q := fmt.Sprintf("SELECT rowid, dataset_id, id FROM %s WHERE dataset_id = ? ORDER BY rowid", c.table.shadow)
	rows, err := c.table.db.QueryContext(ctx, q, c.dataset)
	if err != nil {
		return err
	}
	defer rows.Close()
	var out []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.rowid, &r.dataset, &r.id); err != nil {
			return err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	c.rows = out
	return nil
}

// Next advances the cursor.
func (c *Cursor) Next() error {
	if c.pos < len(c.rows) {
		c.pos++
	}
	return nil
}

// Eof reports end-of-rows.
func (c *Cursor) Eof() bool { return c.pos >= len(c.rows) }

// Column returns the value of a column in the current row.
func (c *Cursor) Column(col int) (vtab.Value, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, fmt.Errorf("kdtab: Column out of range (pos=%d,len=%d)", c.pos, len(c.rows))
	}
	switch col {
	case colDataset:
		return c.rows[c.pos].dataset, nil
	case colPoint:
		return c.rows[c.pos].id, nil
	case colDistance:
		return c.rows[c.pos].distance, nil
	case colK:
		if c.k == nil {
			return nil, nil
		}
		return *c.k, nil
	}
	return nil, fmt.Errorf("kdtab: unsupported column %d", col)
}

// Rowid returns the current rowid.
func (c *Cursor) Rowid() (int64, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return 0, fmt.Errorf("kdtab: Rowid out of range (pos=%d,len=%d)", c.pos, len(c.rows))
	}
	return c.rows[c.pos].rowid, nil
}

// Close releases resources.
func (c *Cursor) Close() error { c.rows = nil; c.pos = 0; return nil }
