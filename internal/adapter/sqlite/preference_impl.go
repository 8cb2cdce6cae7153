package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/user/ghibli-blocker/internal/entity"
)

// PreferenceRepoImpl stores preferences as key/value rows in a SQLite file.
type PreferenceRepoImpl struct {
	db *sql.DB
}

// Open opens or creates the preference database at path.
func Open(path string) (*PreferenceRepoImpl, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &PreferenceRepoImpl{db: db}, nil
}

// Close closes the database connection.
func (r *PreferenceRepoImpl) Close() error {
	return r.db.Close()
}

// Load reads all preference rows and applies defaults for missing keys.
func (r *PreferenceRepoImpl) Load(ctx context.Context) (entity.Preferences, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM preferences`)
	if err != nil {
		return entity.Preferences{}, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return entity.Preferences{}, err
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return entity.Preferences{}, err
	}
	return entity.DecodePreferences(values), nil
}

func (r *PreferenceRepoImpl) set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

func (r *PreferenceRepoImpl) SetEnabled(ctx context.Context, enabled bool) error {
	return r.set(ctx, entity.KeyEnabled, strconv.FormatBool(enabled))
}

func (r *PreferenceRepoImpl) SetMode(ctx context.Context, mode entity.Mode) error {
	return r.set(ctx, entity.KeyMode, string(mode))
}

// IncrementBlocked bumps blockedCount in a single statement.
func (r *PreferenceRepoImpl) IncrementBlocked(ctx context.Context) (uint64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO preferences (key, value) VALUES (?, '1')
		 ON CONFLICT (key) DO UPDATE SET value = CAST(CAST(value AS INTEGER) + 1 AS TEXT)
		 RETURNING CAST(value AS INTEGER)`,
		entity.KeyBlockedCount).Scan(&count)
	if err != nil {
		return 0, err
	}
	if count < 0 {
		return 0, errors.New("blockedCount is negative")
	}
	return uint64(count), nil
}
