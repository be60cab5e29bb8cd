package exchange

import (
	"context"
)

// begin resolves the session identified by the caller's forwarded headers,
// creating a fresh one when no usable session cookie is present, and
// returns the session's identifier and data mapping.
func (s *Service) begin(ctx context.Context, body []byte) ([]byte, error) {
	var req BeginRequest
	if err := s.decodeRequest(body, s.schemas.BeginRequest, &req); err != nil {
		return nil, err
	}

	id := resolveID(req.Headers, s.manager.CookieName())
	sess, err := s.manager.LookupOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.encodeResponse(BeginResponse{ID: sess.ID, Data: sess.Data}, s.schemas.BeginResponse)
}

// finish replaces the identified session's data mapping wholesale, persists
// it, and returns the Set-Cookie pair the caller forwards to its client.
// The inbound shape is validated before the session write, so an invalid
// request leaves no partial state behind.
func (s *Service) finish(ctx context.Context, body []byte) ([]byte, error) {
	var req FinishRequest
	if err := s.decodeRequest(body, s.schemas.FinishRequest, &req); err != nil {
		return nil, err
	}

	sess, err := s.manager.Load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	sess.Data = req.Data
	if err := s.manager.Save(ctx, sess); err != nil {
		return nil, err
	}

	resp := FinishResponse{Headers: []string{"Set-Cookie", s.manager.SetCookie(sess)}}
	return s.encodeResponse(resp, s.schemas.FinishResponse)
}
