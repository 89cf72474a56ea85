package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"caseline/internal/database"
	"caseline/internal/database/migrations"
)

func main() {
	// Migrate an in-memory database and dump the result, so the snapshot
	// always reflects the migration files.
	db, err := database.OpenConnection(":memory:")
	if err != nil {
		fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		fatalf("running migrations: %v", err)
	}

	schema, err := dumpSchema(db)
	if err != nil {
		fatalf("dumping schema: %v", err)
	}

	outPath := filepath.Join("internal", "database", "schema.sql")
	if err := os.WriteFile(outPath, []byte(schema), 0644); err != nil {
		fatalf("writing %s: %v", outPath, err)
	}

	fmt.Printf("wrote %s\n", outPath)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// dumpSchema renders the CREATE statements for all application tables and
// indexes, skipping SQLite internals and the migration tracking table.
func dumpSchema(db *sql.DB) (string, error) {
	rows, err := db.Query(`
		SELECT sql || ';'
		FROM sqlite_master
		WHERE type IN ('table', 'index')
		  AND name NOT LIKE 'sqlite_%'
		  AND name != 'schema_migrations'
		  AND tbl_name != 'schema_migrations'
		ORDER BY
		  CASE type WHEN 'table' THEN 1 WHEN 'index' THEN 2 END,
		  name`)
	if err != nil {
		return "", fmt.Errorf("querying sqlite_master: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	b.WriteString("-- This file is auto-generated from migration files.\n")
	b.WriteString("-- DO NOT EDIT MANUALLY. Run 'go generate ./internal/database' to regenerate.\n")
	b.WriteString("-- Source: internal/database/migrations/files/*.sql\n\n")

	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return "", fmt.Errorf("scanning statement: %w", err)
		}
		b.WriteString(stmt)
		b.WriteString("\n\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("reading statements: %w", err)
	}

	return b.String(), nil
}
