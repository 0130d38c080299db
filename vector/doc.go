// Package vector defines the point-store API and SQLite-backed utilities used
// by this project. It includes:
//   - Record model and Store interface
//   - SQLiteStore: durable point storage with an in-memory k-d index
//   - Schema helpers to create the points table
//   - Coordinate encoding (BLOB) and distance functions
package vector
