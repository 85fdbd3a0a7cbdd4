package domain

import "errors"

// Kind classifies a failure so the API layer can pick a status code
// without inspecting message strings.
type Kind int

const (
	// KindInvalid is missing or malformed input (HTTP 400).
	KindInvalid Kind = iota
	// KindNotFound is an unresolved entity reference (HTTP 404).
	KindNotFound
	// KindUnprocessable is a business-rule violation on an otherwise valid
	// request: unavailable book, loan limit, double return (HTTP 400).
	KindUnprocessable
	// KindConflict is a state conflict: deleting an in-use entity, or a
	// transaction conflict the caller may retry (HTTP 409).
	KindConflict
	// KindInternal is an unexpected failure (HTTP 500).
	KindInternal
)

// Error carries a classification plus the client-facing message.
// Messages are in French to preserve the public API contract.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the caller may retry the operation as-is.
func (e *Error) Retryable() bool { return e.Kind == KindConflict && e.Err != nil }

func Invalid(msg string) *Error       { return &Error{Kind: KindInvalid, Message: msg} }
func NotFound(msg string) *Error      { return &Error{Kind: KindNotFound, Message: msg} }
func Unprocessable(msg string) *Error { return &Error{Kind: KindUnprocessable, Message: msg} }
func Conflict(msg string) *Error      { return &Error{Kind: KindConflict, Message: msg} }

// Internal wraps an unexpected error behind the generic client message.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Une erreur est survenue", Err: err}
}

// KindOf extracts the classification from err, defaulting to KindInternal
// for errors that did not originate in this package.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
