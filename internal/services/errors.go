// Package services defines the business logic for sessions, messages,
// feedback, and the analytics pipeline. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

var (
	// ErrSessionNotFound indicates that the requested session does not exist
	// or is not accessible to the current user.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidMode is returned when a session is created with a dialogue
	// mode outside the allowed set (Socratic, Direct).
	ErrInvalidMode = errors.New("invalid dialogue mode")

	// ErrEmptyPrompt is returned when a request to create a message contains
	// an empty prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrTooLong is returned when a request to create a message exceeds the
	// maximum configured length limit.
	ErrTooLong = errors.New("prompt too long")

	// ErrMessageNotFound indicates that the requested message does not exist
	// or is not accessible to the current user.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidRating is returned when a feedback rating is outside the
	// allowed set (0 negative, 1 positive).
	ErrInvalidRating = errors.New("feedback rating must be 0 or 1")

	// ErrForbiddenFeedback is returned when a user attempts to rate a message
	// they are not permitted to rate (not theirs, or not an assistant reply).
	ErrForbiddenFeedback = errors.New("cannot leave feedback on this message")

	// ErrDuplicateFeedback is returned when a user attempts to rate a message
	// that already carries a rating.
	ErrDuplicateFeedback = errors.New("feedback already exists")

	// ErrUpstreamFetch wraps event-store read failures during aggregation.
	// Callers receive it alongside a zero-valued snapshot, never a panic.
	ErrUpstreamFetch = errors.New("event store fetch failed")
)
