// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
)

// ErrorKind separates bad input signals from bad options.
type ErrorKind int

const (
	InputError ErrorKind = iota + 1
	ConfigurationError
)

func (k ErrorKind) String() string {
	switch k {
	case InputError:
		return "input error"
	case ConfigurationError:
		return "configuration error"
	default:
		return "error"
	}
}

// Input error codes.
const (
	CodeEmptySignal       = "EMPTY_SIGNAL"
	CodeInvalidSampleRate = "INVALID_SAMPLE_RATE"
	CodeSignalTooShort    = "SIGNAL_TOO_SHORT"
)

// Configuration error codes.
const (
	CodeInvalidRange     = "INVALID_RANGE"
	CodeUnsupportedValue = "UNSUPPORTED_VALUE"
	CodeInvalidValue     = "INVALID_VALUE"
)

// Error is returned by every Analyze call that fails before producing a
// result. Field names the offending option key for configuration errors.
type Error struct {
	Kind    ErrorKind
	Code    string
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s [%s]", e.Kind, e.Code)
	if e.Field != "" {
		msg += " " + e.Field
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// IsInputError reports whether err carries an InputError.
func IsInputError(err error) bool { return hasKind(err, InputError) }

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool { return hasKind(err, ConfigurationError) }

// ErrorCode returns the code of the first *Error in err's chain, or "".
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func hasKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func inputError(code, format string, args ...any) *Error {
	return &Error{Kind: InputError, Code: code, Message: fmt.Sprintf(format, args...)}
}

func configError(code, field, format string, args ...any) *Error {
	return &Error{Kind: ConfigurationError, Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}
