package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/bluefeet/starch-exchange/internal/session"
)

// newTestStore connects to the Postgres instance named by
// STARCH_TEST_POSTGRES_DSN and removes test rows before and after. Tests
// are skipped when the variable is unset or the database is unreachable.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("STARCH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STARCH_TEST_POSTGRES_DSN not set")
	}
	store, err := NewStore(dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}

	ctx := context.Background()
	clean := func() {
		store.db.ExecContext(ctx, `DELETE FROM sessions WHERE id LIKE 'test_%'`)
	}
	clean()
	t.Cleanup(func() {
		clean()
		store.Close()
	})
	return store
}

func TestGetSetDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "test_missing"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	data := map[string]any{"foo": 1.0, "bar": "two"}
	if err := store.Set(ctx, "test_abc", data, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.Get(ctx, "test_abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got["foo"] != 1.0 || got["bar"] != "two" {
		t.Errorf("unexpected data: %v", got)
	}

	// Upsert replaces the mapping wholesale.
	if err := store.Set(ctx, "test_abc", map[string]any{"only": true}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err = store.Get(ctx, "test_abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got["only"] != true {
		t.Errorf("expected the second write to replace the first, got %v", got)
	}

	if err := store.Delete(ctx, "test_abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "test_abc"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestExpiredRowsAreInvisibleAndSweepable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Insert an already-expired row directly.
	_, err := store.db.ExecContext(ctx, `
		INSERT INTO sessions (id, data, expires_at)
		VALUES ('test_expired', '{}'::jsonb, NOW() - INTERVAL '1 minute')`)
	if err != nil {
		t.Fatalf("insert expired row: %v", err)
	}

	if _, err := store.Get(ctx, "test_expired"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("expected expired session to be invisible, got %v", err)
	}

	n, err := store.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n < 1 {
		t.Errorf("expected at least one swept row, got %d", n)
	}
}
