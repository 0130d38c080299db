package vector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viant/sqlite-kdtree/index/kd"
)

// SQLiteStore implements Store with a SQLite points table for durability and
// an in-memory k-d index for queries. The index is loaded lazily, extended by
// insertion on AddPoints, and rebuilt as a balanced tree after removals.
type SQLiteStore struct {
	db        *sql.DB
	indexOpts []kd.Option
	logger    *slog.Logger

	mu    sync.Mutex
	index *kd.Index
	// rebalance forces the next load to use a median build regardless of
	// the configured build mode.
	rebalance bool
}

// StoreOption configures a SQLiteStore.
type StoreOption func(*SQLiteStore)

// WithIndexOptions passes options to the k-d index built by the store.
func WithIndexOptions(opts ...kd.Option) StoreOption {
	return func(s *SQLiteStore) { s.indexOpts = append(s.indexOpts, opts...) }
}

// WithLogger sets the logger used for index lifecycle events.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *SQLiteStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSQLiteStore creates a SQLite-backed Store. It ensures the points schema
// exists in the provided database.
func NewSQLiteStore(db *sql.DB, opts ...StoreOption) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("vector: db is nil")
	}
	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AddPoints inserts records into the points table and the index. Records
// without an ID get a generated UUID. All coordinates must share the
// dimension of the points already stored.
func (s *SQLiteStore) AddPoints(ctx context.Context, records []Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.ensureIndex(ctx)
	if err != nil {
		return nil, err
	}
	dims := idx.Dims()
	if dims == 0 {
		dims = len(records[0].Coords)
	}
	for _, r := range records {
		if len(r.Coords) == 0 || len(r.Coords) != dims {
			return nil, fmt.Errorf("vector: record %q has %d coordinates, want %d: %w", r.ID, len(r.Coords), dims, ErrInvalidDimension)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO points(id, label, meta, coords) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ids := make([]string, 0, len(records))
	for _, r := range records {
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}
		blob, err := EncodePoint(r.Coords)
		if err != nil {
			return nil, err
		}
		if _, err := stmt.ExecContext(ctx, id, r.Label, r.Meta, blob); err != nil {
			return nil, fmt.Errorf("vector: insert %q: %w", id, err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	for i, id := range ids {
		if err := idx.Insert(id, records[i].Coords); err != nil {
			s.index = nil
			return nil, err
		}
	}
	return ids, nil
}

// Nearest returns the record closest to query.
func (s *SQLiteStore) Nearest(ctx context.Context, query []float32) (*Match, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	idx, err := s.ensureIndex(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	id, dist, ok, err := idx.Nearest(query)
	s.mu.Unlock()
	if err != nil || !ok {
		return nil, err
	}
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Match{Record: *rec, Distance: dist}, nil
}

// KNearest returns up to k records ordered by ascending distance.
func (s *SQLiteStore) KNearest(ctx context.Context, query []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	idx, err := s.ensureIndex(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	ids, dists, err := idx.Query(query, k)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(ids))
	for i, id := range ids {
		rec, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, Match{Record: *rec, Distance: dists[i]})
	}
	return out, nil
}

// Remove deletes a record by id. The index is rebuilt on the next query.
func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("vector: Remove called with empty id")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM points WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.index = nil
		s.rebalance = true
		s.logger.Debug("point index invalidated", "id", id)
	}
	return nil
}

// Rebuild reloads all points and builds a fresh balanced index.
func (s *SQLiteStore) Rebuild(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = nil
	s.rebalance = true
	_, err := s.ensureIndex(ctx)
	return err
}

// Height returns the height of the current index, loading it if needed.
func (s *SQLiteStore) Height(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.ensureIndex(ctx)
	if err != nil {
		return 0, err
	}
	return idx.Height(), nil
}

// Index returns the current k-d index, loading it if needed. The index is
// shared with the store; callers must not modify it.
func (s *SQLiteStore) Index(ctx context.Context) (*kd.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureIndex(ctx)
}

func (s *SQLiteStore) ensureIndex(ctx context.Context) (*kd.Index, error) {
	if s.index != nil {
		return s.index, nil
	}
	started := time.Now()
	rows, err := s.db.QueryContext(ctx, `SELECT id, coords FROM points ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	var vecs [][]float32
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		coords, err := DecodePoint(blob)
		if err != nil {
			return nil, fmt.Errorf("vector: point %q: %w", id, err)
		}
		ids = append(ids, id)
		vecs = append(vecs, coords)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	opts := s.indexOpts
	if s.rebalance {
		opts = append(append([]kd.Option{}, s.indexOpts...), kd.WithBuildMode(kd.Balanced))
	}
	idx := kd.New(opts...)
	if err := idx.Build(ids, vecs); err != nil {
		return nil, err
	}
	s.index = idx
	s.rebalance = false
	s.logger.Debug("point index built", "points", idx.Len(), "height", idx.Height(), "mode", idx.Mode(), "elapsed", time.Since(started))
	return idx, nil
}

func (s *SQLiteStore) load(ctx context.Context, id string) (*Record, error) {
	var rec Record
	var label, meta sql.NullString
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT id, label, meta, coords FROM points WHERE id = ?`, id).Scan(&rec.ID, &label, &meta, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("vector: point %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	rec.Label, rec.Meta = label.String, meta.String
	if rec.Coords, err = DecodePoint(blob); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Ensure SQLiteStore satisfies the Store interface.
var _ Store = (*SQLiteStore)(nil)
