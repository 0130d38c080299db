package vector

import (
	"database/sql"
)

const pointsSchema = `
CREATE TABLE IF NOT EXISTS points (
    id TEXT PRIMARY KEY,
    label TEXT,
    meta TEXT,
    coords BLOB NOT NULL
);
`

// EnsureSchema creates the points table if it does not already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(pointsSchema)
	return err
}
