package kdtab

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/viant/sqlite-kdtree/engine"
	"github.com/viant/sqlite-kdtree/index/kd"
	"github.com/viant/sqlite-kdtree/vector"
)

var cityPoints = []struct {
	id     string
	coords []float32
}{
	{"a", []float32{3, 6}},
	{"b", []float32{17, 15}},
	{"c", []float32{13, 15}},
	{"d", []float32{6, 12}},
	{"e", []float32{9, 1}},
	{"f", []float32{2, 7}},
	{"g", []float32{10, 19}},
}

// querier is satisfied by both *sql.DB and *sql.Conn.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// openKdtab opens a file database, registers the module and pins the first
// connection of the pool. The driver installs Go virtual table modules on
// the first connection opened in the process only, so every statement that
// touches a kdtab table runs on the returned conn while the module's own
// shadow reads go through the remaining pool.
func openKdtab(t *testing.T) (*sql.DB, *sql.Conn) {
	t.Helper()
	db, err := engine.Open(filepath.Join(t.TempDir(), "kdtab.sqlite"), "busy_timeout(5000)", "journal_mode(WAL)")
	if err != nil {
		t.Fatalf("engine.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := Register(db); err != nil {
		t.Fatalf("kdtab.Register failed: %v", err)
	}
	conn, err := db.Conn(context.Background())
	if err != nil {
		t.Fatalf("db.Conn failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return db, conn
}

// createKdtab creates a virtual table on the pinned conn and seeds its
// shadow table through the pool.
func createKdtab(t *testing.T, db *sql.DB, conn *sql.Conn, name, using string) {
	t.Helper()
	ctx := context.Background()
	if _, err := conn.ExecContext(ctx, `CREATE VIRTUAL TABLE `+name+` USING `+using); err != nil {
		skipIfNoModule(t, err)
		t.Fatalf("CREATE VIRTUAL TABLE %s failed: %v", name, err)
	}
	if err := EnsureShadow(ctx, db, "main", name); err != nil {
		t.Fatalf("EnsureShadow failed: %v", err)
	}
	shadow := ShadowName("main", name)
	for _, p := range cityPoints {
		insertPoint(t, db, shadow, "cities", p.id, p.coords)
	}
	insertPoint(t, db, shadow, "other", "z", []float32{5, 10})
}

func skipIfNoModule(t *testing.T, err error) {
	t.Helper()
	if err != nil && strings.Contains(err.Error(), "no such module: kdtab") {
		t.Skipf("skipping: kdtab vtab not available (%v)", err)
	}
}

func insertPoint(t *testing.T, db querier, shadow, dataset, id string, coords []float32) {
	t.Helper()
	blob, err := vector.EncodePoint(coords)
	if err != nil {
		t.Fatalf("EncodePoint failed: %v", err)
	}
	if _, err := db.ExecContext(context.Background(), `INSERT INTO `+shadow+`(dataset_id, id, label, meta, coords) VALUES(?, ?, ?, '{}', ?)`, dataset, id, strings.ToUpper(id), blob); err != nil {
		t.Fatalf("insert %s failed: %v", id, err)
	}
}

type hit struct {
	id       string
	distance float64
}

func queryHits(t *testing.T, q querier, query string, args ...interface{}) ([]hit, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			t.Skipf("skipping: kdtab query timed out (%v)", err)
		}
		skipIfNoModule(t, err)
		return nil, err
	}
	defer rows.Close()
	var out []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.id, &h.distance); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func hitIDs(hits []hit) string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return strings.Join(ids, ",")
}

func TestKdtab(t *testing.T) {
	db, conn := openKdtab(t)
	ctx := context.Background()

	t.Run("match orders by distance", func(t *testing.T) {
		createKdtab(t, db, conn, "pts", "kdtab(point_id)")
		hits, err := queryHits(t, conn, `SELECT point_id, distance FROM pts WHERE dataset_id = 'cities' AND point_id MATCH ?`, "[5,10]")
		if err != nil {
			t.Fatalf("MATCH failed: %v", err)
		}
		if got := hitIDs(hits); got != "d,f,a,c,e,g,b" {
			t.Fatalf("unexpected order: %s", got)
		}
		if d := hits[0].distance; d < 2.236 || d > 2.237 {
			t.Fatalf("unexpected nearest distance %v", d)
		}

		hits, err = queryHits(t, conn, `SELECT point_id, distance FROM pts WHERE dataset_id = 'cities' AND point_id MATCH ? AND k = 2`, "5,10")
		if err != nil {
			t.Fatalf("MATCH k=2 failed: %v", err)
		}
		if got := hitIDs(hits); got != "d,f" {
			t.Fatalf("unexpected 2-NN: %s", got)
		}

		blob, _ := vector.EncodePoint([]float32{5, 10})
		hits, err = queryHits(t, conn, `SELECT point_id, distance FROM pts WHERE dataset_id = 'other' AND point_id MATCH ? AND k = 5`, blob)
		if err != nil {
			t.Fatalf("MATCH other failed: %v", err)
		}
		if len(hits) != 1 || hits[0].id != "z" || hits[0].distance != 0 {
			t.Fatalf("unexpected other dataset hits: %v", hits)
		}
	})

	t.Run("dataset scan", func(t *testing.T) {
		createKdtab(t, db, conn, "scan", "kdtab(point_id)")
		hits, err := queryHits(t, conn, `SELECT point_id, 0.0 FROM scan WHERE dataset_id = 'cities' ORDER BY rowid`)
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if got := hitIDs(hits); got != "a,b,c,d,e,f,g" {
			t.Fatalf("unexpected scan ids: %s", got)
		}
	})

	t.Run("rejects dimension mismatch", func(t *testing.T) {
		createKdtab(t, db, conn, "dims", "kdtab(point_id)")
		_, err := queryHits(t, conn, `SELECT point_id, distance FROM dims WHERE dataset_id = 'cities' AND point_id MATCH ?`, "[1,2,3]")
		if err == nil || !strings.Contains(err.Error(), "invalid dimension") {
			t.Fatalf("expected invalid dimension error, got %v", err)
		}
	})

	t.Run("brute matches kd", func(t *testing.T) {
		createKdtab(t, db, conn, "brute", "kdtab(point_id, index=brute)")
		hits, err := queryHits(t, conn, `SELECT point_id, distance FROM brute WHERE dataset_id = 'cities' AND point_id MATCH ? AND k = 3`, "[5,10]")
		if err != nil {
			t.Fatalf("MATCH failed: %v", err)
		}
		if got := hitIDs(hits); got != "d,f,a" {
			t.Fatalf("unexpected brute order: %s", got)
		}
	})

	// Shadow writes drop the cached index so the next MATCH sees the change,
	// whether the write happens on the pinned conn or on another connection.
	t.Run("shadow change invalidates index", func(t *testing.T) {
		createKdtab(t, db, conn, "inv_pts", "kdtab(point_id, build=incremental)")
		const q = `SELECT point_id, distance FROM inv_pts WHERE dataset_id = 'cities' AND point_id MATCH ? AND k = 1`

		hits, err := queryHits(t, conn, q, "[5,10]")
		if err != nil {
			t.Fatalf("MATCH failed: %v", err)
		}
		if got := hitIDs(hits); got != "d" {
			t.Fatalf("unexpected nearest before insert: %s", got)
		}

		insertPoint(t, db, ShadowName("main", "inv_pts"), "cities", "h", []float32{5, 10.5})
		hits, err = queryHits(t, conn, q, "[5,10]")
		if err != nil {
			t.Fatalf("MATCH after insert failed: %v", err)
		}
		if got := hitIDs(hits); got != "h" {
			t.Fatalf("expected cached index to be invalidated, nearest is %s", got)
		}

		if _, err := conn.ExecContext(ctx, `DELETE FROM _kd_inv_pts WHERE id = 'h'`); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		hits, err = queryHits(t, conn, q, "[5,10]")
		if err != nil {
			t.Fatalf("MATCH after delete failed: %v", err)
		}
		if got := hitIDs(hits); got != "d" {
			t.Fatalf("unexpected nearest after delete: %s", got)
		}
	})

	t.Run("rebuild reports stats", func(t *testing.T) {
		createKdtab(t, db, conn, "rb_pts", "kdtab(point_id, build=incremental)")
		stats, err := Rebuild(ctx, db, "main._kd_rb_pts", "cities")
		if err != nil {
			t.Fatalf("Rebuild failed: %v", err)
		}
		if stats.Points != 7 || stats.Height != 3 {
			t.Fatalf("unexpected stats: %+v", stats)
		}
		hits, err := queryHits(t, conn, `SELECT point_id, distance FROM rb_pts WHERE dataset_id = 'cities' AND point_id MATCH ? AND k = 2`, "[5,10]")
		if err != nil {
			t.Fatalf("MATCH failed: %v", err)
		}
		if got := hitIDs(hits); got != "d,f" {
			t.Fatalf("unexpected 2-NN after rebuild: %s", got)
		}

		if _, err := Rebuild(ctx, db, "points", "cities"); err == nil {
			t.Fatalf("expected error for non-kdtab shadow")
		}
		if _, err := Rebuild(ctx, db, "main._kd_rb_pts", ""); err == nil {
			t.Fatalf("expected error for empty dataset")
		}
	})

	// kd_invalidate clears cache state, so SQLite must treat it as volatile:
	// every call runs and it is rejected where only pure functions are allowed.
	t.Run("kd_invalidate is not deterministic", func(t *testing.T) {
		entry := getCacheEntry(cacheKey("/tmp/volatile.sqlite", "volatile", "cities"))
		entry.set(kd.New())
		var cleared int64
		if err := db.QueryRowContext(ctx, `SELECT kd_invalidate('main._kd_volatile', 'cities')`).Scan(&cleared); err != nil {
			t.Fatalf("kd_invalidate failed: %v", err)
		}
		if cleared != 1 || entry.get() != nil {
			t.Fatalf("expected one cleared entry, got %d (index %v)", cleared, entry.get())
		}

		if _, err := db.ExecContext(ctx, `CREATE TABLE volatile_check(x TEXT CHECK (kd_invalidate('main._kd_none', x) >= 0))`); err != nil {
			t.Fatalf("CREATE TABLE failed: %v", err)
		}
		_, err := db.ExecContext(ctx, `INSERT INTO volatile_check(x) VALUES('cities')`)
		if err == nil || !strings.Contains(err.Error(), "non-deterministic") {
			t.Fatalf("expected non-deterministic CHECK error, got %v", err)
		}
	})
}
