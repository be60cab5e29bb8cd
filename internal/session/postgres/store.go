// Package postgres provides a PostgreSQL-backed session store. Session data
// is stored as JSONB alongside an absolute expiry column; schema migrations
// are embedded in the binary and applied when the store is constructed.
// Unlike Redis, Postgres does not expire rows itself; call DeleteExpired
// periodically to sweep them.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/bluefeet/starch-exchange/internal/session"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store manages session data mappings in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore opens the database at dsn, verifies the connection and applies
// any pending schema migrations.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: connection failed: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrate applies the embedded schema migrations.
func (s *Store) migrate() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("postgres: load migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(s.db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("postgres: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("postgres: migrate init: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("postgres: migrate up: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (map[string]any, error) {
	const query = `
		SELECT data
		FROM sessions
		WHERE id = $1
		  AND expires_at > NOW()`

	var doc []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get %s: %w", id, err)
	}

	var data map[string]any
	if err := json.Unmarshal(doc, &data); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal %s: %w", id, err)
	}
	return data, nil
}

func (s *Store) Set(ctx context.Context, id string, data map[string]any, ttl time.Duration) error {
	doc, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("postgres: marshal %s: %w", id, err)
	}

	const query = `
		INSERT INTO sessions (id, data, expires_at, updated_at)
		VALUES ($1, $2, NOW() + $3::interval, NOW())
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at, updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, id, doc, ttl.String()); err != nil {
		return fmt.Errorf("postgres: set %s: %w", id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("postgres: delete %s: %w", id, err)
	}
	return nil
}

// DeleteExpired removes all sessions past their expiry and returns how many
// rows were swept.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at <= NOW()`

	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres: rows affected: %w", err)
	}
	return n, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
