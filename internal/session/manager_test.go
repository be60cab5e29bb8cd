package session

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bluefeet/starch-exchange/internal/metrics"
)

// stubStore is an in-memory Store for manager tests.
type stubStore struct {
	data    map[string]map[string]any
	lastTTL time.Duration
}

func newStubStore() *stubStore {
	return &stubStore{data: map[string]map[string]any{}}
}

func (s *stubStore) Get(_ context.Context, id string) (map[string]any, error) {
	d, ok := s.data[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return d, nil
}

func (s *stubStore) Set(_ context.Context, id string, data map[string]any, ttl time.Duration) error {
	s.data[id] = data
	s.lastTTL = ttl
	return nil
}

func (s *stubStore) Delete(_ context.Context, id string) error {
	delete(s.data, id)
	return nil
}

// recordingEvents captures Events notifications.
type recordingEvents struct {
	saved   []string
	deleted []string
}

func (e *recordingEvents) SessionSaved(id string)   { e.saved = append(e.saved, id) }
func (e *recordingEvents) SessionDeleted(id string) { e.deleted = append(e.deleted, id) }

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.Store == nil {
		cfg.Store = newStubStore()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "session"
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestNewManager_Validation(t *testing.T) {
	if _, err := NewManager(Config{CookieName: "session"}); err == nil {
		t.Errorf("expected error for missing store")
	}
	if _, err := NewManager(Config{Store: newStubStore()}); err == nil {
		t.Errorf("expected error for missing cookie name")
	}
	// A cookie name with invalid characters cannot be rendered.
	if _, err := NewManager(Config{Store: newStubStore(), CookieName: "bad name;"}); err == nil {
		t.Errorf("expected error for unrenderable cookie name")
	}
}

func TestLookupOrCreate_FreshSession(t *testing.T) {
	m := newTestManager(t, Config{})
	ctx := context.Background()

	sess, err := m.LookupOrCreate(ctx, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ID == "" {
		t.Errorf("expected a generated id")
	}
	if sess.Data == nil || len(sess.Data) != 0 {
		t.Errorf("expected empty data mapping, got %v", sess.Data)
	}

	other, err := m.LookupOrCreate(ctx, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if other.ID == sess.ID {
		t.Errorf("expected distinct ids for distinct fresh sessions, got %q twice", sess.ID)
	}
}

func TestLookupOrCreate_UnknownIDKeepsIdentifier(t *testing.T) {
	m := newTestManager(t, Config{})

	sess, err := m.LookupOrCreate(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ID != "never-seen" {
		t.Errorf("expected supplied id to be retained, got %q", sess.ID)
	}
	if len(sess.Data) != 0 {
		t.Errorf("expected empty data mapping, got %v", sess.Data)
	}
}

func TestSessionsCreatedCountsEveryOrigination(t *testing.T) {
	store := newStubStore()
	m := newTestManager(t, Config{Store: store})
	ctx := context.Background()

	before := testutil.ToFloat64(metrics.SessionsCreated)

	if _, err := m.LookupOrCreate(ctx, ""); err != nil {
		t.Fatalf("lookup with empty id: %v", err)
	}
	if _, err := m.Load(ctx, "never-seen"); err != nil {
		t.Fatalf("load with unknown id: %v", err)
	}
	if got := testutil.ToFloat64(metrics.SessionsCreated) - before; got != 2 {
		t.Errorf("expected 2 originated sessions to be counted, got %v", got)
	}

	store.data["known"] = map[string]any{}
	if _, err := m.Load(ctx, "known"); err != nil {
		t.Fatalf("load with known id: %v", err)
	}
	if got := testutil.ToFloat64(metrics.SessionsCreated) - before; got != 2 {
		t.Errorf("expected a known id to leave the counter at 2, got %v", got)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newStubStore()
	m := newTestManager(t, Config{Store: store, TTL: 30 * time.Minute})
	ctx := context.Background()

	sess := &Session{ID: "abc", Data: map[string]any{"foo": 1.0, "bar": "two"}}
	if err := m.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	if store.lastTTL != 30*time.Minute {
		t.Errorf("expected configured TTL to reach the store, got %s", store.lastTTL)
	}

	loaded, err := m.Load(ctx, "abc")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Data["foo"] != 1.0 || loaded.Data["bar"] != "two" {
		t.Errorf("unexpected data after roundtrip: %v", loaded.Data)
	}
}

func TestSave_RequiresID(t *testing.T) {
	m := newTestManager(t, Config{})
	if err := m.Save(context.Background(), &Session{}); err == nil {
		t.Errorf("expected error saving a session without an id")
	}
}

func TestDelete(t *testing.T) {
	store := newStubStore()
	m := newTestManager(t, Config{Store: store})
	ctx := context.Background()

	if err := m.Save(ctx, &Session{ID: "gone", Data: map[string]any{}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := m.Delete(ctx, "gone"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := store.data["gone"]; ok {
		t.Errorf("expected session to be removed from the store")
	}
}

func TestEventsFireAfterPersistence(t *testing.T) {
	events := &recordingEvents{}
	m := newTestManager(t, Config{Events: events})
	ctx := context.Background()

	if err := m.Save(ctx, &Session{ID: "ev", Data: map[string]any{}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := m.Delete(ctx, "ev"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(events.saved) != 1 || events.saved[0] != "ev" {
		t.Errorf("expected one saved event for %q, got %v", "ev", events.saved)
	}
	if len(events.deleted) != 1 || events.deleted[0] != "ev" {
		t.Errorf("expected one deleted event for %q, got %v", "ev", events.deleted)
	}
}

func TestSetCookie(t *testing.T) {
	m := newTestManager(t, Config{
		CookieName: "starch_session",
		Cookie: CookieOptions{
			Path:     "/app",
			Secure:   true,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
			MaxAge:   time.Hour,
		},
	})

	rendered := m.SetCookie(&Session{ID: "abc123"})
	for _, want := range []string{"starch_session=abc123", "Path=/app", "Secure", "HttpOnly", "SameSite=Strict", "Max-Age=3600"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("expected rendered cookie to contain %q, got %q", want, rendered)
		}
	}
}

func TestCookieOptions_Normalize(t *testing.T) {
	o := CookieOptions{}.normalize()
	if o.Path != "/" {
		t.Errorf("expected default path /, got %q", o.Path)
	}
}

func TestSetCookie_HttpOnlyOffIsHonored(t *testing.T) {
	m := newTestManager(t, Config{
		CookieName: "starch_session",
		Cookie:     CookieOptions{HttpOnly: false},
	})

	rendered := m.SetCookie(&Session{ID: "abc123"})
	if strings.Contains(rendered, "HttpOnly") {
		t.Errorf("expected an explicit HttpOnly=false to be honored, got %q", rendered)
	}
}
