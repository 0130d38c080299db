package kdtab

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const shadowPrefix = "_kd_"

// ShadowName returns the qualified shadow table name of a kdtab table.
func ShadowName(dbName, tableName string) string {
	base := shadowPrefix + tableName
	if strings.TrimSpace(dbName) == "" {
		return base
	}
	return dbName + "." + base
}

func tableNameFromShadow(shadow string) string {
	if shadow == "" {
		return ""
	}
	if i := strings.Index(shadow, "."+shadowPrefix); i >= 0 {
		return shadow[i+len("."+shadowPrefix):]
	}
	if strings.HasPrefix(shadow, shadowPrefix) {
		return strings.TrimPrefix(shadow, shadowPrefix)
	}
	return ""
}

// EnsureShadow creates the shadow table of a kdtab table and the triggers
// that invalidate cached indices on writes. Call it outside virtual table
// callbacks, before loading points.
func EnsureShadow(ctx context.Context, db *sql.DB, dbName, tableName string) error {
	return ensureShadow(ctx, db, ShadowName(dbName, tableName))
}

func ensureShadow(ctx context.Context, db *sql.DB, shadow string) error {
	if db == nil {
		return fmt.Errorf("kdtab: db is nil")
	}
	stmt := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    dataset_id TEXT NOT NULL,
    id TEXT NOT NULL,
    label TEXT,
    meta TEXT,
    coords BLOB,
    PRIMARY KEY(dataset_id, id)
);
`, shadow)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return err
	}
	// Triggers live in the shadow's schema; their names must be unqualified.
	trigBase := sanitizeName("trg_kd_" + shadow)
	if i := strings.Index(shadow, "."); i >= 0 {
		trigBase = shadow[:i] + "." + trigBase
	}
	shadowLit := quoteLiteral(shadow)
	invNew := `SELECT kd_invalidate(` + shadowLit + `, NEW.dataset_id);`
	invOld := `SELECT kd_invalidate(` + shadowLit + `, OLD.dataset_id);`
	triggers := []string{
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_ins AFTER INSERT ON %s BEGIN %s END;`, trigBase, unqualified(shadow), invNew),
		// Dataset moves invalidate both sides.
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_upd AFTER UPDATE ON %s BEGIN %s %s END;`, trigBase, unqualified(shadow), invNew, invOld),
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_del AFTER DELETE ON %s BEGIN %s END;`, trigBase, unqualified(shadow), invOld),
	}
	for _, trig := range triggers {
		if _, err := db.ExecContext(ctx, trig); err != nil {
			return err
		}
	}
	return nil
}

func unqualified(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

func resolveDbPath(ctx context.Context, db *sql.DB, dbName string) (string, error) {
	if db == nil {
		return "", fmt.Errorf("kdtab: db is nil")
	}
	if dbName == "" {
		dbName = "main"
	}
	rows, err := db.QueryContext(ctx, `SELECT name, file FROM pragma_database_list`)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	for rows.Next() {
		var name, file string
		if err := rows.Scan(&name, &file); err != nil {
			return "", err
		}
		if name != dbName {
			continue
		}
		if file == "" {
			return name, nil
		}
		return file, nil
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return dbName, nil
}

// sanitizeName converts a qualified name into a safe identifier for triggers.
func sanitizeName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case '.', '-', ' ':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

// quoteLiteral returns SQL string literal with single quotes escaped for safe embedding.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func splitShadow(shadow string) (dbName, tableName string) {
	tableName = tableNameFromShadow(shadow)
	if i := strings.Index(shadow, "."); i >= 0 {
		dbName = shadow[:i]
	}
	return dbName, tableName
}
