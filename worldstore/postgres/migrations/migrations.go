// Package migrations embeds and applies the World Store's Postgres schema,
// grounded directly on the teacher's platform/migrations.Apply (embed.FS +
// lexical-order *.sql + idempotent IF NOT EXISTS statements) — the teacher
// declares golang-migrate/migrate/v4 in go.mod but never actually imports it,
// preferring this small embedded runner; this package keeps that same
// substitution rather than reaching for the unused dependency.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Apply executes every embedded migration file in lexical order. Safe to
// call on every process start: each statement is guarded by IF NOT EXISTS.
func Apply(ctx context.Context, db *sql.DB) error {
	entries, err := files.ReadDir(".")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		contents, err := files.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}
