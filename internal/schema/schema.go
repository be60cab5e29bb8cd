// Package schema defines the wire contracts of the session exchange protocol
// as explicit, injectable JSON Schema values. Each endpoint's request and
// response shape is a Schema that can be validated independently; handlers
// receive them as plain values, so tests can substitute a contract without
// any dynamic dispatch.
package schema

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Wire contract names.
const (
	NameBeginRequest   = "begin-request"
	NameBeginResponse  = "begin-response"
	NameFinishRequest  = "finish-request"
	NameFinishResponse = "finish-response"
)

// Schema is a named wire contract: a JSON Schema resolved once at
// construction, plus an optional structural predicate for constraints JSON
// Schema cannot express (such as the even-length rule on flattened header
// lists).
type Schema struct {
	name     string
	resolved *jsonschema.Resolved
	extra    func(v any) []string
}

// New resolves js and returns a Schema ready for validation. The extra
// predicate may be nil.
func New(name string, js *jsonschema.Schema, extra func(v any) []string) (*Schema, error) {
	resolved, err := js.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("schema: resolve %s: %w", name, err)
	}
	return &Schema{name: name, resolved: resolved, extra: extra}, nil
}

// Name returns the contract name, e.g. "begin-request".
func (s *Schema) Name() string { return s.name }

// Validate checks a decoded JSON value against the contract. It returns nil
// when the value conforms, otherwise one human-readable explanation per
// detected mismatch.
func (s *Schema) Validate(v any) []string {
	var problems []string
	if err := s.resolved.Validate(v); err != nil {
		problems = append(problems, err.Error())
	}
	if s.extra != nil {
		problems = append(problems, s.extra(v)...)
	}
	return problems
}

// Set bundles the four wire contracts used by the exchange endpoints.
type Set struct {
	BeginRequest   *Schema
	BeginResponse  *Schema
	FinishRequest  *Schema
	FinishResponse *Schema
}

// DefaultSet builds the standard wire contracts:
//
//	begin-request:   { headers: [string, ...] }  with an even element count
//	begin-response:  { id: string, data: object }
//	finish-request:  { id: string, data: object }
//	finish-response: { headers: [string, ...] }  with an even element count
//
// All contracts reject unknown keys.
func DefaultSet() (Set, error) {
	beginReq, err := New(NameBeginRequest, headerListSchema(), evenHeaders)
	if err != nil {
		return Set{}, err
	}
	beginResp, err := New(NameBeginResponse, sessionSchema(), nil)
	if err != nil {
		return Set{}, err
	}
	finishReq, err := New(NameFinishRequest, sessionSchema(), nil)
	if err != nil {
		return Set{}, err
	}
	finishResp, err := New(NameFinishResponse, headerListSchema(), evenHeaders)
	if err != nil {
		return Set{}, err
	}
	return Set{
		BeginRequest:   beginReq,
		BeginResponse:  beginResp,
		FinishRequest:  finishReq,
		FinishResponse: finishResp,
	}, nil
}

// headerListSchema describes an object with exactly one key, "headers",
// holding a flattened list of header name/value strings.
func headerListSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"headers": {
				Type:  "array",
				Items: &jsonschema.Schema{Type: "string"},
			},
		},
		Required:             []string{"headers"},
		AdditionalProperties: falseSchema(),
	}
}

// sessionSchema describes an object with exactly the keys "id" (string) and
// "data" (object with unconstrained value types).
func sessionSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"id":   {Type: "string"},
			"data": {Type: "object"},
		},
		Required:             []string{"id", "data"},
		AdditionalProperties: falseSchema(),
	}
}

// falseSchema is the JSON Schema that matches nothing; jsonschema-go
// represents it as a negated empty schema.
func falseSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}

// evenHeaders rejects header lists with an odd element count. The list is a
// flattened sequence of alternating name/value pairs, so a valid list is
// always even.
func evenHeaders(v any) []string {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	list, ok := obj["headers"].([]any)
	if !ok {
		return nil
	}
	if len(list)%2 != 0 {
		return []string{fmt.Sprintf("the headers list must hold name/value pairs, got %d elements", len(list))}
	}
	return nil
}
