// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// Generation failures. All of them are recovered at the handler boundary.
	ErrLLMUnavailable      = errors.New("llm unavailable")
	ErrEmptyResponse       = errors.New("llm returned empty response")
	ErrMalformedJSON       = errors.New("malformed json")
	ErrSchemaIncomplete    = errors.New("required field missing")
	ErrUnresolvedReference = errors.New("unresolved reference")
)
