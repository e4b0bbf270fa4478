package eachlabs

import (
	"errors"
	"fmt"
)

// ErrNoResult is matched by every recoverable failure of a client operation.
// Callers that only care whether a value was produced can test
// errors.Is(err, ErrNoResult).
var ErrNoResult = errors.New("eachlabs: no result")

var (
	// ErrInvalidURL is returned when base URL and path do not form an
	// absolute URL. It is a configuration error, not an absence.
	ErrInvalidURL = errors.New("eachlabs: invalid url")

	// ErrEncode is returned when the request envelope cannot be serialized.
	ErrEncode = errors.New("eachlabs: encode request body")

	// ErrTransport is returned when the HTTP round trip fails.
	ErrTransport = errors.New("eachlabs: transport failure")

	// ErrStatus is returned for non-2xx responses.
	ErrStatus = errors.New("eachlabs: unexpected status")

	// ErrDecode is returned when the body is missing or not valid JSON.
	ErrDecode = errors.New("eachlabs: decode response")

	// ErrShape is returned when the top-level JSON value is not an object.
	ErrShape = errors.New("eachlabs: response is not a json object")

	// ErrMissingField is returned when the expected key is absent or has
	// the wrong type.
	ErrMissingField = errors.New("eachlabs: missing field")

	// ErrPollExhausted is returned by WaitForStatus when MaxAttempts status
	// reads did not reach a terminal state.
	ErrPollExhausted = errors.New("eachlabs: poll attempts exhausted")
)

// Kind classifies an Error.
type Kind int

const (
	KindInvalidURL Kind = iota + 1
	KindEncode
	KindTransport
	KindStatus
	KindDecode
	KindShape
	KindMissingField
)

func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid_url"
	case KindEncode:
		return "encode"
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	case KindShape:
		return "shape"
	case KindMissingField:
		return "missing_field"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidURL:
		return ErrInvalidURL
	case KindEncode:
		return ErrEncode
	case KindTransport:
		return ErrTransport
	case KindStatus:
		return ErrStatus
	case KindDecode:
		return ErrDecode
	case KindShape:
		return ErrShape
	case KindMissingField:
		return ErrMissingField
	default:
		return nil
	}
}

// Error carries the reason an operation produced no value.
type Error struct {
	// Op is the client operation, e.g. "start_task".
	Op   string
	Kind Kind

	// StatusCode is the HTTP status when a response was received, else 0.
	StatusCode int

	// Field names the missing key for KindMissingField.
	Field string

	Err error
}

func (e *Error) Error() string {
	msg := "eachlabs"
	if e.Op != "" {
		msg += " " + e.Op
	}
	msg += ": " + e.Kind.String()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" %q", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrNoResult (for every kind except
// KindInvalidURL) or the sentinel of e.Kind.
func (e *Error) Is(target error) bool {
	if target == ErrNoResult {
		return e.Kind != KindInvalidURL
	}
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// withOp returns err annotated with op when it is an *Error without one.
func withOp(op string, err error) error {
	var e *Error
	if errors.As(err, &e) && e.Op == "" {
		cp := *e
		cp.Op = op
		return &cp
	}
	return err
}
