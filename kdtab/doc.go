// Package kdtab implements a SQLite virtual table that answers nearest
// neighbor queries with an in-memory k-d tree. Each virtual table has a
// per-table shadow table that stores ids, labels, metadata and coordinates
// grouped by dataset; indices are built from the shadow on first use and
// cached across connections.
//
// Features:
//   - WHERE dataset_id = ? AND point_id MATCH ? ordered by ascending distance
//   - optional hidden k column bounding the neighbor count
//   - MATCH argument as point BLOB, JSON array, base64 BLOB or CSV floats
//   - shadow triggers that invalidate cached indices on writes
//   - kd (default) or brute index, balanced or incremental build
package kdtab
