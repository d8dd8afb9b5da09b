package securestore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLite is a Store backed by a single SQLite file on the device.
type SQLite struct {
	db     *sql.DB
	sealer *sealer
}

var _ Store = (*SQLite)(nil)

// Open opens (or creates) the store at path, applies migrations and derives
// the sealing key from passphrase. The same passphrase must be supplied on
// every Open or previously written values come back as ErrUnsealed.
//
// path may be ":memory:" for a throwaway store.
func Open(ctx context.Context, path string, passphrase []byte) (*SQLite, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("securestore: passphrase must not be empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("securestore: opening database: %w", err)
	}
	// One connection: ":memory:" databases are per-connection, and the store
	// sees a handful of writes per app launch.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("securestore: pinging database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	salt, err := loadSalt(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	s, err := newSealer(passphrase, salt)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db, sealer: s}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("securestore: loading migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("securestore: creating migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("securestore: running migrations: %w", err)
	}
	return nil
}

// loadSalt returns the store's argon2 salt, creating it on first open.
func loadSalt(ctx context.Context, db *sql.DB) ([]byte, error) {
	var salt []byte
	err := db.QueryRowContext(ctx, `SELECT salt FROM sealing WHERE id = 1`).Scan(&salt)
	if err == nil {
		return salt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("securestore: reading salt: %w", err)
	}

	salt, err = newSalt()
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO sealing (id, salt) VALUES (1, ?)`, salt); err != nil {
		return nil, fmt.Errorf("securestore: writing salt: %w", err)
	}
	return salt, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var sealed []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM entries WHERE key = ?`, key).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("securestore: get %q: %w", key, err)
	}

	value, err := s.sealer.open(key, sealed)
	if err != nil {
		return nil, false, fmt.Errorf("securestore: get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := s.sealer.seal(key, value)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, sealed)
	if err != nil {
		return fmt.Errorf("securestore: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("securestore: delete %q: %w", key, err)
	}
	return nil
}
