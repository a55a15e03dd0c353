// Package handlers defines the HTTP-layer error codes used across all API
// endpoints. The codes give clients a stable, machine-readable taxonomy that
// supplements the human-readable message in the error envelope.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes (bad_request, forbidden, conflict) mirror common HTTP
//     status semantics.
//   - Domain-specific codes (answer_failed, summary_failed) are reserved for
//     business errors the status alone cannot convey.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeAnswerFailed     = "answer_failed"
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeSummaryFailed    = "summary_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
