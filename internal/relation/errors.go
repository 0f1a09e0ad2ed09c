package relation

import (
	"fmt"

	"socialgraph/backend/internal/models"
)

// Code is a stable identifier for a failure kind.
type Code string

const (
	CodeUnauthenticated  Code = "unauthenticated"
	CodeInvalidTarget    Code = "invalid_target"
	CodeInvalidType      Code = "invalid_type"
	CodeNotFound         Code = "not_found"
	CodeAlreadyExists    Code = "already_exists"
	CodeStoreUnavailable Code = "store_unavailable"
)

// Error is the error type returned by every Service operation.
type Error struct {
	Code    Code
	Message string
	// Existing is set on already_exists failures and reports the state of the
	// edge that blocked the operation.
	Existing *State
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so callers can test against the
// sentinels below with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrUnauthenticated  = &Error{Code: CodeUnauthenticated, Message: "authentication required"}
	ErrInvalidTarget    = &Error{Code: CodeInvalidTarget, Message: "invalid target user"}
	ErrInvalidType      = &Error{Code: CodeInvalidType, Message: "invalid list type"}
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists    = &Error{Code: CodeAlreadyExists, Message: "relationship already exists"}
	ErrStoreUnavailable = &Error{Code: CodeStoreUnavailable, Message: "storage unavailable"}
)

func invalidTarget(msg string) *Error {
	return &Error{Code: CodeInvalidTarget, Message: msg}
}

func notFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

func alreadyExists(existing State) *Error {
	return &Error{
		Code:     CodeAlreadyExists,
		Message:  "relationship already exists with status: " + existing.String(),
		Existing: &existing,
	}
}

func storeUnavailable(err error) *Error {
	return &Error{Code: CodeStoreUnavailable, Message: "storage unavailable", Err: err}
}

// ExistingStatus returns the edge status carried by an already_exists error.
func (e *Error) ExistingStatus() (models.EdgeStatus, models.FriendRequestStatus, bool) {
	if e.Existing == nil {
		return "", "", false
	}
	return e.Existing.Status(), e.Existing.Request, true
}
