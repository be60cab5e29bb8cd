// Package exchange implements the two-step begin/finish session exchange
// protocol over HTTP. A stateless web application posts the raw headers it
// received from its own client to /begin and gets back the matching
// session's identifier and data; after mutating the data it posts both to
// /finish and gets back the Set-Cookie header pair to forward downstream.
//
// The package only orchestrates an external session.Manager and enforces the
// wire contract around it. Storage durability, expiry policy and
// cookie-attribute computation all live in the manager and its store.
package exchange

import (
	"errors"
	"fmt"

	"github.com/bluefeet/starch-exchange/internal/schema"
	"github.com/bluefeet/starch-exchange/internal/session"
)

// Service handles the exchange endpoints. Construct it with New; the zero
// value is not usable.
type Service struct {
	manager           *session.Manager
	schemas           schema.Set
	validateResponses bool
}

// Option configures a Service.
type Option func(*Service)

// WithResponseValidation makes the service check its own response bodies
// against their wire contracts before sending. A response that fails its
// contract is a service defect and surfaces as a 500, never a 4xx. Disabled
// by default.
func WithResponseValidation(enabled bool) Option {
	return func(s *Service) { s.validateResponses = enabled }
}

// WithSchemas replaces the wire contracts. Contracts are plain values, so
// tests can substitute one without touching the handlers.
func WithSchemas(set schema.Set) Option {
	return func(s *Service) { s.schemas = set }
}

// New creates a Service around the given session manager. The manager must
// expose a cookie name and render cookie attributes; both are verified here
// so a misconfigured deployment fails at startup instead of on the first
// /finish request.
func New(manager *session.Manager, opts ...Option) (*Service, error) {
	if manager == nil {
		return nil, errors.New("exchange: session manager is required")
	}
	if manager.CookieName() == "" {
		return nil, errors.New("exchange: session manager exposes no cookie name")
	}
	if manager.SetCookie(&session.Session{ID: "placeholder"}) == "" {
		return nil, errors.New("exchange: session manager cannot render cookie attributes")
	}

	defaults, err := schema.DefaultSet()
	if err != nil {
		return nil, fmt.Errorf("exchange: build wire contracts: %w", err)
	}

	s := &Service{manager: manager, schemas: defaults}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BeginRequest is the decoded POST /begin body: the raw headers the calling
// application received, flattened into alternating name/value pairs.
type BeginRequest struct {
	Headers []string `json:"headers"`
}

// BeginResponse is the POST /begin reply: the resolved session.
type BeginResponse struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

// FinishRequest is the decoded POST /finish body: the session identifier
// and the data mapping that replaces the stored one wholesale.
type FinishRequest struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

// FinishResponse is the POST /finish reply: the Set-Cookie header pair the
// calling application forwards to its own client.
type FinishResponse struct {
	Headers []string `json:"headers"`
}
