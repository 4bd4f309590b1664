// Package common defines shared constants and sentinel errors used across
// the notescan server layers. Callers should use errors.Is to match these
// values; the HTTP layer maps them to status codes.
package common

import "errors"

var (
	// Repository-level errors. ErrorNotFound deliberately covers both a
	// missing record and a record owned by another caller, so an attacker
	// cannot enumerate other owners' note ids.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors on create/update input.
	ErrorValidation = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Ingestion pipeline errors. ErrExtraction is absorbed into the job
	// result and converted to a fallback transcript by the caller; it is
	// never surfaced raw to the end user.
	ErrExtraction       = errors.New("extraction failed")
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// Upload errors, distinct from extraction so the caller can decide to
	// retry the upload or save a transcript-only note.
	ErrUpload = errors.New("upload failed")
)
