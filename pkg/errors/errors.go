package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is allows errors.Is matching on the stable error code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for the ingestion pipeline.
var (
	// ErrSessionNotFound indicates the session-discovery literal was absent
	// from the landing page.
	ErrSessionNotFound = New("SESSION_NOT_FOUND", http.StatusBadGateway, "session code not found on landing page")
	// ErrSessionInvalid indicates the discovered session failed the probe query.
	ErrSessionInvalid = New("SESSION_INVALID", http.StatusBadGateway, "session code failed validity probe")
	// ErrInvalidSessionCode indicates a session code that does not match the
	// five digit grammar.
	ErrInvalidSessionCode = New("INVALID_SESSION_CODE", http.StatusBadRequest, "invalid session code")
	// ErrSourceUnavailable indicates the upstream source violated its
	// response contract.
	ErrSourceUnavailable = New("SOURCE_UNAVAILABLE", http.StatusBadGateway, "timetable source unavailable")
	// ErrUnknownOrganisation indicates a course payload referenced an
	// organisation absent from the crawl's organisation map.
	ErrUnknownOrganisation = New("UNKNOWN_ORGANISATION", http.StatusUnprocessableEntity, "unknown organisation")
	// ErrUnknownEnumValue indicates a source literal outside a closed
	// enumeration.
	ErrUnknownEnumValue = New("UNKNOWN_ENUM_VALUE", http.StatusUnprocessableEntity, "unknown enumeration value")
	// ErrMalformedTime indicates a meeting time string not in HH:MM form.
	ErrMalformedTime = New("MALFORMED_TIME", http.StatusUnprocessableEntity, "malformed time")
	// ErrSyncInProgress indicates an overlapping run was rejected.
	ErrSyncInProgress = New("SYNC_IN_PROGRESS", http.StatusConflict, "a sync run is already in progress")
	// ErrDuplicateCourse indicates the same course code was produced by two
	// organisations while the duplicate policy is set to error.
	ErrDuplicateCourse = New("DUPLICATE_COURSE", http.StatusConflict, "duplicate course code across organisations")

	ErrNotFound   = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal   = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
