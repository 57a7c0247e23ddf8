// Package db implements the run-metadata registry on SQLite. It is the
// emitter's metadata sink and the monitor's lookup surface.
package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// ErrRunExists is returned by PutRun when the run id is already
// registered. Run metadata is write-once.
var ErrRunExists = errors.New("run already registered")

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

type DB struct {
	*sql.DB
}

// New opens (or creates) the registry database at path and applies any
// pending schema migrations.
func New(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db := &DB{sqlDB}
	if err := db.migrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// migrateUp applies the embedded migrations. Running against an
// up-to-date database is a no-op.
func (db *DB) migrateUp() error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to prepare migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	// Closing m would close the underlying DB connection, so we don't.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// PutRun registers a run and its metadata in one transaction. A run id may
// only be registered once.
func (db *DB) PutRun(runID string, meta map[string]string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow("SELECT COUNT(*) FROM runs WHERE run_id = ?", runID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", ErrRunExists, runID)
	}

	if _, err := tx.Exec("INSERT INTO runs (run_id) VALUES (?)", runID); err != nil {
		return err
	}
	for key, value := range meta {
		_, err := tx.Exec(
			"INSERT INTO run_metadata (run_id, key, value) VALUES (?, ?, ?)",
			runID, key, value)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RunMetadata returns the metadata mapping recorded for a run.
func (db *DB) RunMetadata(runID string) (map[string]string, error) {
	var exists int
	if err := db.QueryRow("SELECT COUNT(*) FROM runs WHERE run_id = ?", runID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := db.Query("SELECT key, value FROM run_metadata WHERE run_id = ?", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		meta[key] = value
	}
	return meta, rows.Err()
}

// Runs lists registered run ids, oldest first.
func (db *DB) Runs() ([]string, error) {
	rows, err := db.Query("SELECT run_id FROM runs ORDER BY created_at, run_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}
