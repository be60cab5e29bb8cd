package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bluefeet/starch-exchange/internal/metrics"
)

// DefaultTTL is the session time-to-live applied when Config.TTL is zero.
const DefaultTTL = 1 * time.Hour

// Config holds the settings needed to construct a Manager.
type Config struct {
	Store      Store
	TTL        time.Duration // zero means DefaultTTL
	CookieName string
	Cookie     CookieOptions
	Events     Events // optional; nil disables event publishing
}

// Manager mediates all session access for the exchange endpoints: it
// resolves identifiers to session records, persists data mappings through
// its Store, and renders the Set-Cookie value for a session.
type Manager struct {
	store      Store
	ttl        time.Duration
	cookieName string
	cookie     CookieOptions
	events     Events
}

// NewManager validates cfg and returns a ready Manager. A store, a cookie
// name and a renderable cookie configuration are hard requirements: the
// exchange protocol cannot answer /finish without them, so a misconfigured
// deployment fails here rather than on the first request.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("session: config requires a store")
	}
	if cfg.CookieName == "" {
		return nil, errors.New("session: config requires a cookie name")
	}
	opts := cfg.Cookie.normalize()
	// Render a throwaway cookie once so a bad cookie configuration is caught
	// at construction.
	if opts.render(cfg.CookieName, "placeholder") == "" {
		return nil, fmt.Errorf("session: cookie %q does not render with the configured attributes", cfg.CookieName)
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		store:      cfg.Store,
		ttl:        ttl,
		cookieName: cfg.CookieName,
		cookie:     opts,
		events:     cfg.Events,
	}, nil
}

// LookupOrCreate returns the session for id. An empty id yields a fresh
// session under a newly generated identifier; an unknown id yields an empty
// session bound to the supplied identifier. Fresh sessions are not persisted
// until Save.
func (m *Manager) LookupOrCreate(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		metrics.SessionsCreated.Inc()
		return &Session{ID: uuid.New().String(), Data: map[string]any{}}, nil
	}
	data, err := m.store.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		metrics.SessionsCreated.Inc()
		return &Session{ID: id, Data: map[string]any{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: lookup %s: %w", id, err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return &Session{ID: id, Data: data}, nil
}

// Load returns the session stored under id. An unknown id yields an empty
// session bound to that id, so saving it silently originates the session;
// an empty id behaves like LookupOrCreate and generates a fresh identifier.
func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	return m.LookupOrCreate(ctx, id)
}

// Save persists the session's data mapping wholesale under its identifier
// with the configured TTL, then notifies the optional Events hook.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return errors.New("session: save requires a session with an id")
	}
	data := s.Data
	if data == nil {
		data = map[string]any{}
	}
	if err := m.store.Set(ctx, s.ID, data, m.ttl); err != nil {
		return fmt.Errorf("session: save %s: %w", s.ID, err)
	}
	if m.events != nil {
		m.events.SessionSaved(s.ID)
	}
	return nil
}

// Delete removes the session stored under id.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("session: delete %s: %w", id, err)
	}
	if m.events != nil {
		m.events.SessionDeleted(id)
	}
	return nil
}

// CookieName returns the name of the cookie carrying session identifiers.
func (m *Manager) CookieName() string { return m.cookieName }

// SetCookie renders the full Set-Cookie header value for the session: the
// cookie name, the session identifier, and the configured attributes.
func (m *Manager) SetCookie(s *Session) string {
	return m.cookie.render(m.cookieName, s.ID)
}
