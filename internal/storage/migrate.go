package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// Schema migrations ship inside the binary so a fresh schedule database
// can be created on first launch without external files.
//
//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrateUp applies every .up.sql script in name order, creating the
// schedules and tasks tables.
func MigrateUp(db *sql.DB) error {
	return applyMigrations(db, ".up.sql")
}

// MigrateDown rolls the schema back using the .down.sql scripts.
func MigrateDown(db *sql.DB) error {
	return applyMigrations(db, ".down.sql")
}

func applyMigrations(db *sql.DB, suffix string) error {
	names, err := migrationNames(suffix)
	if err != nil {
		return err
	}
	for _, name := range names {
		script, readErr := migrationFiles.ReadFile(name)
		if readErr != nil {
			return fmt.Errorf("read migration %s: %w", name, readErr)
		}
		if _, execErr := db.Exec(string(script)); execErr != nil {
			return fmt.Errorf("apply migration %s: %w", name, execErr)
		}
	}
	return nil
}

func migrationNames(suffix string) ([]string, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		names = append(names, "migrations/"+entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
