package errorx

import (
	"errors"
	"fmt"
)

type Error struct {
	Code    Code
	Message string

	cause error
}

func New(code Code, format string, a ...any) Error {
	return Error{Code: code, Message: fmt.Sprintf(format, a...)}
}

// Wrap creates an error whose message is suffixed with the message of cause.
// The cause stays reachable through errors.Is and errors.As.
func Wrap(code Code, cause error, format string, a ...any) Error {
	msg := fmt.Sprintf(format, a...)
	if cause != nil {
		msg = msg + ": " + cause.Error()
	}

	return Error{Code: code, Message: msg, cause: cause}
}

func (e Error) Error() string {
	return e.Message
}

func (e Error) Unwrap() error {
	return e.cause
}

// Is matches any errorx.Error with the same code.
func (e Error) Is(target error) bool {
	var t Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Code == e.Code
}

// HasCode reports whether err or any error it wraps is an Error with code.
func HasCode(err error, code Code) bool {
	var e Error
	for errors.As(err, &e) {
		if e.Code == code {
			return true
		}

		err = e.cause
	}

	return false
}
