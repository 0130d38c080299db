package kdtab

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	idxapi "github.com/viant/sqlite-kdtree/index"
	"github.com/viant/sqlite-kdtree/index/bruteforce"
	"github.com/viant/sqlite-kdtree/index/kd"
	"github.com/viant/sqlite-kdtree/vector"
)

// Stats describes a built dataset index.
type Stats struct {
	Points int
	Height int
}

func statsOf(idx idxapi.Index) Stats {
	s := Stats{Points: idx.Len()}
	if k, ok := idx.(*kd.Index); ok {
		s.Height = k.Height()
	}
	return s
}

// ensureIndex returns the cached index of a dataset, building it from the
// shadow table when missing. Concurrent callers wait for a single build.
func (t *Table) ensureIndex(ctx context.Context, dataset string) (idxapi.Index, error) {
	if strings.TrimSpace(dataset) == "" {
		return nil, fmt.Errorf("kdtab: dataset_id is required")
	}
	if err := ensureShadow(ctx, t.db, t.shadow); err != nil {
		return nil, err
	}
	entry := getCacheEntry(cacheKey(t.cachedDbPath(ctx), t.tableName, dataset))
	var version uint64
	for {
		if idx := entry.get(); idx != nil {
			return idx, nil
		}
		v, ok := entry.startBuild()
		if ok {
			version = v
			break
		}
		if idx := entry.waitForBuild(); idx != nil {
			return idx, nil
		}
	}
	defer entry.finishBuild()

	built, err := buildIndex(ctx, t.db, t.shadow, dataset, t.opts)
	if err != nil {
		return nil, err
	}
	if !entry.publish(built, version) {
		// The shadow changed while loading; serve this query without caching.
		currentLogger().Debug("kd index build superseded", "shadow", t.shadow, "dataset", dataset)
	}
	return built, nil
}

func buildIndex(ctx context.Context, db *sql.DB, shadow, dataset string, opts indexOptions) (idxapi.Index, error) {
	started := time.Now()
	ids, vecs, err := loadPoints(ctx, db, shadow, dataset)
	if err != nil {
		return nil, err
	}
	var built idxapi.Index
	switch opts.kind {
	case indexKindBrute:
		built = &bruteforce.Index{}
	default:
		built = kd.New(opts.kdOptions()...)
	}
	if err := built.Build(ids, vecs); err != nil {
		return nil, fmt.Errorf("kdtab: build %s/%s: %w", shadow, dataset, err)
	}
	stats := statsOf(built)
	currentLogger().Debug("kd index built",
		"shadow", shadow, "dataset", dataset, "index", opts.kind,
		"points", stats.Points, "height", stats.Height, "elapsed", time.Since(started))
	return built, nil
}

func loadPoints(ctx context.Context, db *sql.DB, shadow, dataset string) ([]string, [][]float32, error) {
	q := fmt.Sprintf("SELECT id, coords FROM %s WHERE dataset_id = ? AND coords IS NOT NULL ORDER BY rowid", shadow)
	rows, err := db.QueryContext(ctx, q, dataset)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var ids []string
	var vecs [][]float32
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, nil, err
		}
		if len(blob) == 0 {
			continue
		}
		v, err := vector.DecodePoint(blob)
		if err != nil {
			return nil, nil, fmt.Errorf("kdtab: point %q: %w", id, err)
		}
		ids = append(ids, id)
		vecs = append(vecs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return ids, vecs, nil
}

// Rebuild loads a dataset from the shadow table, builds a balanced index
// and publishes it to the shared cache, replacing any cached index. The
// shadow name is qualified, e.g. "main._kd_pts".
func Rebuild(ctx context.Context, db *sql.DB, shadow, dataset string) (Stats, error) {
	dbName, tableName := splitShadow(shadow)
	if tableName == "" {
		return Stats{}, fmt.Errorf("kdtab: %q is not a kdtab shadow table", shadow)
	}
	if strings.TrimSpace(dataset) == "" {
		return Stats{}, fmt.Errorf("kdtab: dataset_id is required")
	}
	opts := optionsFor(tableName)
	opts.build = kd.Balanced
	built, err := buildIndex(ctx, db, shadow, dataset, opts)
	if err != nil {
		return Stats{}, err
	}
	dbPath, err := resolveDbPath(ctx, db, dbName)
	if err != nil {
		return Stats{}, err
	}
	getCacheEntry(cacheKey(dbPath, tableName, dataset)).set(built)
	return statsOf(built), nil
}

// lookupRow resolves rowid for a given dataset/id pair.
func (t *Table) lookupRow(ctx context.Context, dataset, id string) (int64, error) {
	q := fmt.Sprintf("SELECT rowid FROM %s WHERE dataset_id = ? AND id = ?", t.shadow)
	var rid int64
	if err := t.db.QueryRowContext(ctx, q, dataset, id).Scan(&rid); err != nil {
		return 0, err
	}
	return rid, nil
}

// Datasets lists the dataset ids present in a shadow table.
func Datasets(ctx context.Context, db *sql.DB, shadow string) ([]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT DISTINCT dataset_id FROM %s ORDER BY dataset_id", shadow))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var ds string
		if err := rows.Scan(&ds); err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

// RebuildAll rebuilds every dataset of a shadow table in parallel.
func RebuildAll(ctx context.Context, db *sql.DB, shadow string) (map[string]Stats, error) {
	datasets, err := Datasets(ctx, db, shadow)
	if err != nil {
		return nil, err
	}
	stats := make([]Stats, len(datasets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, ds := range datasets {
		g.Go(func() error {
			s, err := Rebuild(gctx, db, shadow, ds)
			if err != nil {
				return err
			}
			stats[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]Stats, len(datasets))
	for i, ds := range datasets {
		out[ds] = stats[i]
	}
	return out, nil
}
