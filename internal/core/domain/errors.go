package domain

import (
	"errors"
	"strconv"
	"strings"
)

// DomainError is an error with a stable code of the form TU-<AREA>-NNNN.
// The first three of the four digits are the HTTP status the error maps
// to, so TU-CODC-4030 is a 403.
type DomainError struct {
	Code    string
	Message string
	Details string
	Cause   error
}

func newError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string {
	s := "[" + e.Code + "] " + e.Message
	if e.Details != "" {
		s += ": " + e.Details
	}
	return s
}

func (e *DomainError) Unwrap() error { return e.Cause }

// Is matches any *DomainError with the same code, so a copy made by
// WithDetails or WithCause still satisfies errors.Is(err, ErrX).
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Code == t.Code
}

// WithDetails returns a copy carrying details.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// Status returns the HTTP status encoded in the code, or 500 when the code
// does not carry a 4xx or 5xx status.
func (e *DomainError) Status() int {
	i := strings.LastIndexByte(e.Code, '-')
	if i < 0 || len(e.Code)-i-1 != 4 {
		return 500
	}
	n, err := strconv.Atoi(e.Code[i+1:])
	if err != nil || n/10 < 400 || n/10 > 599 {
		return 500
	}
	return n / 10
}

// Code returns the code of the first DomainError in err's chain, or "".
func Code(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Codec.
var (
	// ErrMalformedInput: empty token, not URL-safe Base64, or shorter than
	// the minimum record.
	ErrMalformedInput = newError("TU-CODC-4000", "malformed tag url")
	// ErrMalformedPayload: the record authenticated but the payload parser
	// rejected it.
	ErrMalformedPayload = newError("TU-CODC-4001", "malformed payload")
	ErrUnknownTag       = newError("TU-CODC-4030", "unknown tag")
	ErrNoMatchingKey    = newError("TU-CODC-4031", "no matching key")
	ErrReplay           = newError("TU-CODC-4090", "counter replay detected")
	// ErrConfiguration: a cipher precondition failed (key length or buffer
	// range). Unreachable in a correct integration.
	ErrConfiguration = newError("TU-CODC-5000", "codec configuration error")
)

// Key store.
var (
	ErrInvalidTagIdentifier = newError("TU-KEYS-4000", "invalid tag identifier")
	ErrInvalidTagKey        = newError("TU-KEYS-4001", "invalid tag key")
	ErrKeyNotFound          = newError("TU-KEYS-4040", "key not found")
	ErrKeyStoreReadOnly     = newError("TU-KEYS-4050", "key store is read-only")
	ErrKeyLookupFailed      = newError("TU-KEYS-5030", "key lookup failed")
)

// Requests and arguments.
var (
	ErrBadRequest      = newError("TU-SYS-4000", "bad request")
	ErrRateLimited     = newError("TU-SYS-4290", "too many requests")
	ErrInvalidArgument = newError("TU-ARG-4000", "invalid argument")
	ErrMissingArgument = newError("TU-ARG-4001", "missing required argument")
)

// System.
var (
	ErrInternalServer     = newError("TU-SYS-5000", "internal server error")
	ErrStorageError       = newError("TU-SYS-5001", "storage error")
	ErrServiceUnavailable = newError("TU-SYS-5030", "service unavailable")
)
