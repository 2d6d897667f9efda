package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

//go:embed seed.sql
var seedSQL string

// InitSchema creates the tables if they do not exist.
func InitSchema(ctx context.Context, db *sql.DB) error {
	return execScript(ctx, db, schemaSQL)
}

// Seed loads the starter catalog and customers. The script is
// idempotent, so re-running it on an existing database is harmless.
func Seed(ctx context.Context, db *sql.DB) error {
	return execScript(ctx, db, seedSQL)
}

func execScript(ctx context.Context, db *sql.DB, script string) error {
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
