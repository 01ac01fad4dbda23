package core

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

// Error is a failure the caller is meant to see. Code follows the gRPC code
// set used by Firebase callable functions.
type Error struct {
	Code    codes.Code
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetails attaches the details object returned to the client.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// NewError creates an Error with code and message.
func NewError(code codes.Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates an Error with a formatted message.
func Errorf(code codes.Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure as "<operation> failed: <cause>".
func Internal(operation string, err error) *Error {
	return &Error{Code: codes.Internal, Message: fmt.Sprintf("%s failed: %v", operation, err), Err: err}
}

// AsError returns the *Error in err's chain, or wraps err as Internal.
func AsError(operation string, err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(operation, err)
}

// CodeOf returns the code of err, codes.Unknown for foreign errors.
func CodeOf(err error) codes.Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return codes.Unknown
}
