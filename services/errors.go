package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrKind classifies engine failures. Controllers map kinds to HTTP statuses
// and surface the message verbatim.
type ErrKind int

const (
	ErrKindInvalidTransition ErrKind = iota + 1
	ErrKindUnauthorized
	ErrKindDeadlineExceeded
	ErrKindValidationFailed
	ErrKindInvalidDateOrder
	ErrKindReviewLocked
	ErrKindNotFound
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindInvalidTransition:
		return "invalid_transition"
	case ErrKindUnauthorized:
		return "unauthorized"
	case ErrKindDeadlineExceeded:
		return "deadline_exceeded"
	case ErrKindValidationFailed:
		return "validation_failed"
	case ErrKindInvalidDateOrder:
		return "invalid_date_order"
	case ErrKindReviewLocked:
		return "review_locked"
	case ErrKindNotFound:
		return "not_found"
	}
	return "unknown"
}

// EngineError is the typed result returned by every guard failure. The engine
// never auto-corrects an invalid state; it reports and lets the caller decide.
type EngineError struct {
	Kind    ErrKind
	Message string
}

func (e *EngineError) Error() string {
	return e.Message
}

func newEngineError(kind ErrKind, format string, args ...interface{}) *EngineError {
	return &EngineError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the error kind, or zero if err is not an EngineError.
func KindOf(err error) ErrKind {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Kind
	}
	return 0
}

// HTTPStatus maps an error to the status code controllers respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrKindInvalidTransition, ErrKindReviewLocked:
		return http.StatusConflict
	case ErrKindUnauthorized:
		return http.StatusForbidden
	case ErrKindDeadlineExceeded, ErrKindValidationFailed, ErrKindInvalidDateOrder:
		return http.StatusUnprocessableEntity
	case ErrKindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Stable user-facing messages. Callers surface these verbatim.
const (
	MsgSubmissionDeadlinePassed = "submission deadline passed"
	MsgReviewDeadlinePassed     = "review deadline passed"
	MsgReviewDueDatePassed      = "review due date passed"
	MsgReviewLocked             = "review is locked and can no longer be edited"
	MsgProposalNotFound         = "proposal not found"
)
