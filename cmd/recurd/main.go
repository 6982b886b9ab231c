package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/recurd/internal/scheduler"
	"github.com/sandeepkv93/recurd/internal/storage"
	"github.com/sandeepkv93/recurd/internal/update"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "recurd failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	path, err := databasePath()
	if err != nil {
		return err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	if err := storage.MigrateUp(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	repo, err := storage.NewSQLiteRepository(db)
	if err != nil {
		return err
	}

	engine := scheduler.NewEngine(16)
	dispatcher := scheduler.NewDispatcher(repo)

	engine.Start()
	defer engine.Stop()
	if err := dispatcher.Prime(context.Background(), engine); err != nil {
		return fmt.Errorf("prime scheduler: %w", err)
	}

	program := tea.NewProgram(update.NewModel(repo, engine, dispatcher))
	if _, err := program.Run(); err != nil {
		return err
	}
	return nil
}

func databasePath() (string, error) {
	if env := os.Getenv("RECURD_DB"); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	dir := filepath.Join(home, ".recurd")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return filepath.Join(dir, "recurd.db"), nil
}
