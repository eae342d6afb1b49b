package models

import (
	"errors"
	"fmt"
	"strings"
)

// Validation failures. They always reach callers wrapped in a *ValidationError.
var (
	ErrEmptyTitle               = errors.New("title is required")
	ErrNonPositiveAmount        = errors.New("amount must be positive")
	ErrInsufficientParticipants = errors.New("an expense needs at least two participants")
	ErrDegenerateSplit          = errors.New("shares sum to zero")
	ErrNegativeShare            = errors.New("shares cannot be negative")
	ErrDuplicateParticipant     = errors.New("participant listed twice")
	ErrPayerNotParticipant      = errors.New("payer must be one of the participants")
	ErrInvalidSplitMode         = errors.New("unknown split mode")
	ErrUnknownUser              = errors.New("user does not exist")
	ErrUnknownGroup             = errors.New("group does not exist")
	ErrEmptyName                = errors.New("name is required")
	ErrNoMembers                = errors.New("a group needs at least one member")
	ErrMemberNotFriend          = errors.New("members must be friends of the group owner")
	ErrSelfFriend               = errors.New("you cannot add yourself as a friend")
	ErrDuplicateFriend          = errors.New("you already have this friend added")
	ErrHandleTaken              = errors.New("handle is already in use")
	ErrEmailTaken               = errors.New("email is already in use")
	ErrDateOutOfRange           = errors.New("date must be between 1900 and 2200")
)

var (
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the session user may not touch a record.
	ErrForbidden = errors.New("not allowed")
)

// ValidationError rejects input before anything is persisted.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Err.Error()
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid wraps err as a validation failure on field.
func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// NotFoundError reports a missing record. It is recoverable.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound returns a *NotFoundError for kind and id.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// IntegrityError reports a multi-record operation that could not complete as a whole.
// The store guarantees nothing was changed when it is returned.
type IntegrityError struct {
	Op  string
	Err error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: integrity violation: %v", e.Op, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// SyncError reports records that were not confirmed by the remote. Their dirty
// flags are preserved and they will be retried on the next pass.
type SyncError struct {
	Failed []string
	Err    error
}

func (e *SyncError) Error() string {
	var b strings.Builder
	b.WriteString("sync incomplete")
	if len(e.Failed) > 0 {
		fmt.Fprintf(&b, ": %d record(s) not confirmed", len(e.Failed))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *SyncError) Unwrap() error { return e.Err }
