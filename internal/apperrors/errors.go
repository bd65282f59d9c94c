package apperrors

import (
	"errors"
	"net/http"
)

// Kind classifies a domain failure so transports can map it to their own status codes.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicateUser
	KindNotFound
	KindInvalidCredentials
	KindUnauthorized
	KindInvalidToken
	KindExpiredToken
	KindTokenReuse
	KindUploadFailed
	KindTooManyRequests
)

var kindNames = map[Kind]string{
	KindInternal:           "internal error",
	KindValidation:         "validation error",
	KindDuplicateUser:      "duplicate user",
	KindNotFound:           "not found",
	KindInvalidCredentials: "invalid credentials",
	KindUnauthorized:       "unauthorized",
	KindInvalidToken:       "invalid token",
	KindExpiredToken:       "expired token",
	KindTokenReuse:         "token reuse detected",
	KindUploadFailed:       "upload failed",
	KindTooManyRequests:    "too many requests",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// HTTPStatus returns the status code used when a failure of this kind reaches the HTTP boundary.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindDuplicateUser:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidCredentials, KindUnauthorized, KindInvalidToken, KindExpiredToken, KindTokenReuse:
		return http.StatusUnauthorized
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure returned by the service layer.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

// Sentinels for errors.Is comparisons; they match any *Error of the same kind.
var (
	ErrInternal           = &Error{Kind: KindInternal}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrDuplicateUser      = &Error{Kind: KindDuplicateUser}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrInvalidToken       = &Error{Kind: KindInvalidToken}
	ErrExpiredToken       = &Error{Kind: KindExpiredToken}
	ErrTokenReuse         = &Error{Kind: KindTokenReuse}
	ErrUploadFailed       = &Error{Kind: KindUploadFailed}
	ErrTooManyRequests    = &Error{Kind: KindTooManyRequests}
)

// New constructs an Error of the given kind.
func New(kind Kind, message string, details ...string) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// Wrap constructs an Error of the given kind that retains the underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Internal wraps an unexpected failure. The cause is kept for logging only.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "something went wrong", Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf extracts the Kind of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
