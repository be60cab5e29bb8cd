// Package session implements the session manager behind the exchange
// endpoints. It owns session records, an opaque identifier plus a
// string-keyed data mapping, and persists them through a pluggable Store.
// See the memory, redis and postgres subpackages for store backends.
package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSessionNotFound indicates that the given identifier does not map
	// to a stored session.
	ErrSessionNotFound = errors.New("session: not found")
)

// Session is a single session record: an immutable identifier and the
// mutable data mapping stored under it. A Session lives for at most one
// request; it is never shared across requests.
type Session struct {
	ID   string
	Data map[string]any
}

// Store persists session data mappings by identifier. Implementations must
// be safe for concurrent use.
type Store interface {
	// Get returns the data mapping stored under id, or ErrSessionNotFound.
	Get(ctx context.Context, id string) (map[string]any, error)

	// Set writes the data mapping under id with the given time-to-live,
	// replacing any previous mapping wholesale.
	Set(ctx context.Context, id string, data map[string]any, ttl time.Duration) error

	// Delete removes the session stored under id. Deleting an unknown id
	// is not an error.
	Delete(ctx context.Context, id string) error
}

// Events receives notifications after a session write or delete has been
// persisted. Implementations must not block the request for long and must
// swallow their own failures; publishing is best-effort.
type Events interface {
	SessionSaved(id string)
	SessionDeleted(id string)
}
