// Package kdadmin exposes administrative operations on kdtab indices as a
// SQLite virtual table, such as forcing a balanced rebuild of a dataset.
package kdadmin
