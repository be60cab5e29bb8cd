// Package memory provides an in-process session store backed by
// patrickmn/go-cache with per-entry TTL expiry. It is intended for
// development and single-instance deployments; session state does not
// survive a restart.
package memory

import (
	"context"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/bluefeet/starch-exchange/internal/session"
)

// Store holds session data mappings in process memory.
type Store struct {
	entries *cache.Cache
}

// NewStore creates a memory store. cleanup controls how often expired
// entries are purged in the background; expired entries are invisible to Get
// either way.
func NewStore(cleanup time.Duration) *Store {
	return &Store{entries: cache.New(cache.NoExpiration, cleanup)}
}

func (s *Store) Get(ctx context.Context, id string) (map[string]any, error) {
	v, ok := s.entries.Get(id)
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return copyData(v.(map[string]any)), nil
}

func (s *Store) Set(ctx context.Context, id string, data map[string]any, ttl time.Duration) error {
	s.entries.Set(id, copyData(data), ttl)
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.entries.Delete(id)
	return nil
}

// copyData deep-clones a data mapping so a caller mutating its copy,
// at any nesting depth, cannot alias cache-owned state across requests.
// Values decoded from JSON are maps, slices, and scalars; scalars are
// immutable and copied as-is.
func copyData(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyData(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return t
	}
}
