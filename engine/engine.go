package engine

import (
	"database/sql"
	"net/url"
	"strings"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// Open opens a SQLite database using the modernc.org/sqlite driver.
//
// Pragmas such as "busy_timeout(5000)" or "journal_mode(WAL)" are appended
// to the DSN so that every pooled connection applies them when it opens.
//
// For file-based databases, pass a path like "./points.sqlite". For ":memory:"
// each pooled connection would see its own database, so the pool is capped
// to a single connection.
func Open(dsn string, pragmas ...string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", withPragmas(dsn, pragmas))
	if err != nil {
		return nil, err
	}
	if isMemory(dsn) {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

func withPragmas(dsn string, pragmas []string) string {
	if len(pragmas) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(dsn)
	for _, p := range pragmas {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(url.QueryEscape(p))
		sep = "&"
	}
	return b.String()
}

func isMemory(dsn string) bool {
	name := dsn
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name = name[:i]
	}
	return name == ":memory:" || name == "file::memory:"
}
