// Package errors provides the typed, coded error used throughout axiomd.
// It is compatible with the standard library's errors.Is/errors.As.
package errors

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
)

// Error is the application-wide error type. Every error surfaced across a
// package boundary is either a *Error or is wrapped into one.
type Error struct {
	code       ERR
	message    string
	WrappedErr error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.WrappedErr == nil {
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
	return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.WrappedErr)
}

// Code returns the error's code.
func (e *Error) Code() ERR { return e.code }

// Message returns the human-readable message, independent of any wrapped
// cause.
func (e *Error) Message() string { return e.message }

func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}

	var ue *Error
	if stderrors.As(target, &ue) {
		if e.code == ue.code {
			return true
		}
	}

	if unwrapped := stderrors.Unwrap(e); unwrapped != nil {
		if ue, ok := unwrapped.(*Error); ok {
			return ue.Is(target)
		}
	}

	return false
}

func (e *Error) As(target interface{}) bool {
	if e == nil {
		return false
	}

	if targetErr, ok := target.(**Error); ok {
		*targetErr = e
		return true
	}

	if e.WrappedErr != nil {
		if reflect.ValueOf(e.WrappedErr).IsNil() {
			return false
		}
		return stderrors.As(e.WrappedErr, target)
	}

	return false
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.WrappedErr
}

// New builds an *Error. If the last element of params is an error, it is
// recorded as the wrapped cause and excluded from message formatting; any
// remaining params are passed to fmt.Sprintf against message.
func New(code ERR, message string, params ...interface{}) *Error {
	var wrapped error

	if len(params) > 0 {
		if err, ok := params[len(params)-1].(error); ok {
			wrapped = err
			params = params[:len(params)-1]
		}
	}

	if len(params) > 0 {
		message = fmt.Sprintf(message, params...)
	}

	return &Error{code: code, message: message, WrappedErr: wrapped}
}

// Join concatenates error messages, matching the teacher's convention of a
// flat joined error for reporting multiple independent validation failures.
func Join(errs ...error) error {
	var parts []string
	for _, err := range errs {
		if err != nil {
			parts = append(parts, err.Error())
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return stderrors.New(strings.Join(parts, ", "))
}

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
