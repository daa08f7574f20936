// Package handlers defines HTTP-layer error codes used across all API
// endpoints.
//
// Codes are lowercase snake_case and form a stable, machine-readable taxonomy
// that supplements the human-readable `error` message. Generic codes mirror
// common HTTP status semantics; domain-specific codes cover business failures
// that a status alone cannot convey. Handlers pick the most specific matching
// code and pass it to fail() together with the HTTP status.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeUpdateFailed     = "update_failed"
	ErrCodeDeleteFailed     = "delete_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeSessionFailed    = "session_failed"
	ErrCodeUpstream         = "upstream_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
