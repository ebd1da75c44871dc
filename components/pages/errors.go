package pages

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned (wrapped) when a document, section or item does not exist.
	ErrNotFound = errors.New("pages: not found")
	// ErrClosed is returned by operations on an editor that was torn down.
	ErrClosed = errors.New("pages: editor closed")

	errMissingBackend     = errors.New("pages: backend not configured")
	errInvalidPage        = errors.New("pages: page code is required")
	errNoActiveSession    = errors.New("pages: no active edit session")
	errDuplicateIdentity  = errors.New("pages: duplicate item identity")
	errPositionOutOfRange = errors.New("pages: position out of range")
)

// FieldError is a single (field, message) pair.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is raised locally before any request is issued. Only the first
// failing field is reported.
type ValidationError struct {
	Section string
	Item    Identity
	FieldError
}

func (e *ValidationError) Error() string {
	if e.Section == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Section, e.Message)
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{FieldError: FieldError{Field: field, Message: message}}
}

// ItemNotFoundError is returned when an identity is absent from a collection.
type ItemNotFoundError struct {
	Collection string
	ID         Identity
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("pages: item %s not found in %s", e.ID, e.Collection)
}

// Is lets callers match with errors.Is(err, ErrNotFound).
func (e *ItemNotFoundError) Is(target error) bool { return target == ErrNotFound }

// RemoteError wraps a failed backend call. StatusCode is zero for transport failures.
type RemoteError struct {
	Op               string
	StatusCode       int
	Message          string
	ValidationErrors []FieldError
	Err              error
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	b.WriteString("pages: ")
	b.WriteString(e.Op)
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, ": remote error %d", e.StatusCode)
	} else {
		b.WriteString(": network error")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.ValidationErrors) > 0 {
		fmt.Fprintf(&b, " (%s: %s)", e.ValidationErrors[0].Field, e.ValidationErrors[0].Message)
	}
	if e.Err != nil && e.Message == "" {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Network reports whether the request never produced a response.
func (e *RemoteError) Network() bool { return e.StatusCode == 0 }

// UploadError is a client-side precondition failure; no request was issued.
type UploadError struct {
	Field  string
	Reason string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("pages: upload %s rejected: %s", e.Field, e.Reason)
}

// SectionFailure records one failed request of a per-section save.
type SectionFailure struct {
	Section string
	Err     error
}

// SaveError reports a partially applied per-section save. Sections not listed
// may have been committed.
type SaveError struct {
	Page     string
	Failures []SectionFailure
}

func (e *SaveError) Error() string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Section
	}
	return fmt.Sprintf("pages: save %s failed for %d section(s): %s: %v",
		e.Page, len(e.Failures), strings.Join(names, ", "), e.Failures[0].Err)
}

// Unwrap exposes every section failure to errors.Is/As.
func (e *SaveError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
