package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes an error so callers can branch on failure class
// without string matching.
type Kind int

const (
	// KindConnection - transport to the graph store not established or lost
	KindConnection Kind = iota
	// KindQuery - the store rejected a query
	KindQuery
	// KindNotFound - an operation targeted an id that does not exist
	KindNotFound
	// KindDuplicateID - uniqueness violation on create
	KindDuplicateID
	// KindConfig - missing or invalid configuration
	KindConfig
	// KindValidation - invalid input data
	KindValidation
)

// Error is a structured error with a kind, an optional wrapped cause,
// and a context map for diagnostics (query text, params, ids).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext attaches a diagnostic key/value pair and returns the error
// for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Is matches errors by kind so errors.Is works across wrap layers.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// DetailedString returns the message, cause, and context on separate lines.
func (e *Error) DetailedString() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s\n", kindString(e.Kind), e.Message))
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("Caused by: %v\n", e.Cause))
	}
	if len(e.Context) > 0 {
		sb.WriteString("Context:\n")
		for k, v := range e.Context {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, v))
		}
	}
	return sb.String()
}

func kindString(k Kind) string {
	switch k {
	case KindConnection:
		return "CONNECTION"
	case KindQuery:
		return "QUERY"
	case KindNotFound:
		return "NOT_FOUND"
	case KindDuplicateID:
		return "DUPLICATE_ID"
	case KindConfig:
		return "CONFIG"
	case KindValidation:
		return "VALIDATION"
	default:
		return "UNKNOWN"
	}
}

// New creates a new error with the given kind and message
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap wraps an existing error with a kind and message. Returns nil for
// a nil cause so call sites can wrap unconditionally.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   err,
		Context: make(map[string]any),
	}
}

// Convenience constructors for the core taxonomy

// ConnectionError reports that the graph transport is not usable.
func ConnectionError(message string) *Error {
	return New(KindConnection, message)
}

// ConnectionErrorf creates a connection error with formatting
func ConnectionErrorf(format string, args ...any) *Error {
	return New(KindConnection, fmt.Sprintf(format, args...))
}

// QueryError wraps a store-level query failure, carrying the original
// query text and parameters for diagnostics. A nil cause still yields
// an error; some failures (a malformed result shape) have no underlying
// store error.
func QueryError(err error, query string, params map[string]any) *Error {
	e := Wrap(err, KindQuery, "graph query failed")
	if e == nil {
		e = New(KindQuery, "graph query failed")
	}
	e.WithContext("query", query)
	if len(params) > 0 {
		e.WithContext("params", params)
	}
	return e
}

// NotFoundError reports a missing entity where existence was required.
func NotFoundError(message string) *Error {
	return New(KindNotFound, message)
}

// NotFoundErrorf creates a not-found error with formatting
func NotFoundErrorf(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

// DuplicateIDError reports a uniqueness violation on create.
func DuplicateIDError(err error, id string) *Error {
	e := Wrap(err, KindDuplicateID, fmt.Sprintf("duplicate id %q", id))
	if e == nil {
		e = New(KindDuplicateID, fmt.Sprintf("duplicate id %q", id))
	}
	return e.WithContext("id", id)
}

// ConfigError creates a configuration error
func ConfigError(message string) *Error {
	return New(KindConfig, message)
}

// ConfigErrorf creates a configuration error with formatting
func ConfigErrorf(format string, args ...any) *Error {
	return New(KindConfig, fmt.Sprintf(format, args...))
}

// ValidationErrorf creates a validation error with formatting
func ValidationErrorf(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

// IsKind reports whether err (or anything it wraps) is an Error of the
// given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// GetKind returns the kind of an error, KindQuery for foreign errors.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindQuery
}
