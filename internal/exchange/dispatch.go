package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bluefeet/starch-exchange/internal/metrics"
	"github.com/bluefeet/starch-exchange/internal/schema"
)

// Detach is a deliberate short-circuit: a handler aborts the rest of the
// pipeline and forces exactly this response. The dispatch boundary writes a
// Detach as-is and never converts it into a generic server error, so client
// input errors keep their descriptive bodies.
type Detach struct {
	Status int
	Body   string
}

// Error implements the error interface so handlers can return a Detach
// through the normal error path and the boundary can pick it out with
// errors.As.
func (d *Detach) Error() string {
	return fmt.Sprintf("detach: %d %s", d.Status, d.Body)
}

const (
	contentTypeJSON = "application/json"
	contentTypeText = "text/plain; charset=utf-8"

	notFoundBody      = "Not Found"
	internalErrorBody = "Internal Server Error"
)

// Metric label values for the endpoint dimension. Unhandled routes collapse
// into a single fixed value: the label set must stay bounded no matter what
// paths a client invents.
const (
	endpointBegin  = "POST /begin"
	endpointFinish = "POST /finish"
	endpointOther  = "other"
)

// ServeHTTP routes the exchange endpoints. POST /begin and POST /finish are
// handled; every other method+path combination is a plain 404. Unexpected
// failures, handler panics included, are logged with full detail and
// surface to the client as an opaque 500.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	endpoint := r.Method + " " + r.URL.Path
	start := time.Now()

	var handle func(ctx context.Context, body []byte) ([]byte, error)
	var label string
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/begin":
		handle = s.begin
		label = endpointBegin
	case r.Method == http.MethodPost && r.URL.Path == "/finish":
		handle = s.finish
		label = endpointFinish
	default:
		s.write(w, endpointOther, start, http.StatusNotFound, contentTypeText, []byte(notFoundBody))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("exchange: %s: read request body: %v", endpoint, err)
		s.write(w, label, start, http.StatusInternalServerError, contentTypeText, []byte(internalErrorBody))
		return
	}

	out, err := s.dispatch(r.Context(), handle, body)
	if err != nil {
		var d *Detach
		if errors.As(err, &d) {
			s.write(w, label, start, d.Status, contentTypeText, []byte(d.Body))
			return
		}
		log.Printf("exchange: %s: internal error: %v", endpoint, err)
		s.write(w, label, start, http.StatusInternalServerError, contentTypeText, []byte(internalErrorBody))
		return
	}

	s.write(w, label, start, http.StatusOK, contentTypeJSON, out)
}

// dispatch runs a handler and converts panics into ordinary errors so the
// boundary in ServeHTTP can log them and answer with the fixed 500 body.
func (s *Service) dispatch(ctx context.Context, handle func(context.Context, []byte) ([]byte, error), body []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during dispatch: %v", r)
		}
	}()
	return handle(ctx, body)
}

// write sends the response and records request metrics. label must be one
// of the fixed endpoint label values.
func (s *Service) write(w http.ResponseWriter, label string, start time.Time, status int, contentType string, body []byte) {
	metrics.RequestsTotal.WithLabelValues(label, strconv.Itoa(status)).Inc()
	metrics.RequestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Printf("exchange: %s: write response: %v", label, err)
	}
}

// decodeRequest parses body and checks it against the request's wire
// contract. Both failure modes detach with a 400 before any handler side
// effect occurs.
func (s *Service) decodeRequest(body []byte, contract *schema.Schema, into any) error {
	var generic any
	if err := json.Unmarshal(body, &generic); err != nil {
		return &Detach{
			Status: http.StatusBadRequest,
			Body:   "The request content contained invalid JSON: " + err.Error(),
		}
	}

	if problems := contract.Validate(generic); len(problems) > 0 {
		msg := "The request content contained incorrectly structured JSON:"
		for _, p := range problems {
			msg += "\n" + p
		}
		return &Detach{Status: http.StatusBadRequest, Body: msg}
	}

	if err := json.Unmarshal(body, into); err != nil {
		return fmt.Errorf("decode validated %s: %w", contract.Name(), err)
	}
	return nil
}

// encodeResponse serializes a response value, optionally checking it against
// its own wire contract first. A contract violation here means a handler
// produced a shape inconsistent with its declared schema; that is a service
// defect and is reported as an internal error, never as a client error.
func (s *Service) encodeResponse(v any, contract *schema.Schema) ([]byte, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", contract.Name(), err)
	}

	if s.validateResponses {
		var generic any
		if err := json.Unmarshal(out, &generic); err != nil {
			return nil, fmt.Errorf("re-decode %s: %w", contract.Name(), err)
		}
		if problems := contract.Validate(generic); len(problems) > 0 {
			return nil, fmt.Errorf("response violates the %s contract: %s", contract.Name(), strings.Join(problems, "; "))
		}
	}

	return out, nil
}
