package models

import (
	"errors"
	"fmt"

	dErrors "atelier/pkg/domain-errors"
)

// ErrorCode is the stable numeric rejection code returned to callers.
type ErrorCode int

const (
	ErrCodeNotAdmin         ErrorCode = 100
	ErrCodeNotAuthorized    ErrorCode = 101
	ErrCodeTokenNotFound    ErrorCode = 102
	ErrCodePaused           ErrorCode = 103
	ErrCodeNullAddress      ErrorCode = 104
	ErrCodeAlreadyApproved  ErrorCode = 105
	ErrCodeInvalidRoyalty   ErrorCode = 106
	ErrCodeMaxSupply        ErrorCode = 107
	ErrCodeMetadataFrozen   ErrorCode = 108
	ErrCodeOwnerIndexFull   ErrorCode = 109
	ErrCodeInvalidStringLen ErrorCode = 110
)

// Kind is the error taxonomy a code belongs to.
type Kind string

const (
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindState         Kind = "state"
	KindValidation    Kind = "validation"
)

// Kind returns the taxonomy bucket for the code.
func (c ErrorCode) Kind() Kind {
	switch c {
	case ErrCodeNotAdmin, ErrCodeNotAuthorized:
		return KindAuthorization
	case ErrCodeTokenNotFound:
		return KindNotFound
	case ErrCodePaused, ErrCodeAlreadyApproved, ErrCodeMetadataFrozen:
		return KindState
	default:
		return KindValidation
	}
}

func (c ErrorCode) category() dErrors.Code {
	switch c.Kind() {
	case KindAuthorization:
		return dErrors.CodeForbidden
	case KindNotFound:
		return dErrors.CodeNotFound
	case KindState:
		return dErrors.CodeConflict
	default:
		return dErrors.CodeValidation
	}
}

// Error is a registry rejection. It unwraps to a coded domain error so
// transports can map it without knowing registry codes.
type Error struct {
	Code ErrorCode
	Err  *dErrors.Error
}

// Reject builds a rejection for code with a caller-facing message.
func Reject(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Err: dErrors.New(code.category(), msg)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d)", e.Err.Message, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Reason exposes the numeric code to transports.
func (e *Error) Reason() int {
	return int(e.Code)
}

// CodeOf extracts the numeric rejection code from err.
func CodeOf(err error) (ErrorCode, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Code, true
	}
	return 0, false
}
