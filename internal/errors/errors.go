// Package errors provides structured error types and exit codes for wbtest.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Exit codes. They mirror the public constants in pkg/wbtest.
const (
	ExitSuccess          = 0 // Success
	ExitRuntimeError     = 1 // Test failed, probe failed, command failed
	ExitConfigError      = 2 // Invalid suite file or flags
	ExitEnvironmentError = 3 // Browser driver missing, unwritable directories, etc.
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	KindNotFound
	KindValidation
	KindEnvironment
	KindTimeout
	// KindElementNotFound is raised by probe steps when a required element
	// is absent or invisible. It is non-fatal: the step is skipped.
	KindElementNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindRuntime:
		return "runtime"
	case KindConfig:
		return "config"
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation"
	case KindEnvironment:
		return "environment"
	case KindTimeout:
		return "timeout"
	case KindElementNotFound:
		return "element not found"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// WbError is the base error type for wbtest.
type WbError struct {
	Kind    ErrorKind
	Message string
	Test    string // Test or probe name if applicable
	Cause   error  // Underlying error
}

func (e *WbError) Error() string {
	msg := e.Message
	if e.Cause != nil && msg == "" {
		msg = e.Cause.Error()
	}
	if e.Test != "" {
		return fmt.Sprintf("[%s] %s", e.Test, msg)
	}
	return msg
}

func (e *WbError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *WbError) ExitCode() int {
	switch e.Kind {
	case KindConfig, KindValidation:
		return ExitConfigError
	case KindEnvironment:
		return ExitEnvironmentError
	default:
		return ExitRuntimeError
	}
}

// Newf creates a new runtime error with formatting.
func Newf(format string, args ...interface{}) *WbError {
	return &WbError{
		Kind:    KindRuntime,
		Message: fmt.Sprintf(format, args...),
	}
}

// Config creates a new configuration error.
func Config(message string) *WbError {
	return &WbError{
		Kind:    KindConfig,
		Message: message,
	}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...interface{}) *WbError {
	return Config(fmt.Sprintf(format, args...))
}

// Environmentf creates a new environment error with formatting.
func Environmentf(format string, args ...interface{}) *WbError {
	return &WbError{
		Kind:    KindEnvironment,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapKind wraps an error and tags it with the given kind.
func WrapKind(kind ErrorKind, err error, message string) *WbError {
	return &WbError{
		Kind:    kind,
		Message: message,
		Cause:   err,
	}
}

// TestError attributes a runtime failure to a test or probe. The cause's
// message is kept.
func TestError(test string, cause error) *WbError {
	return &WbError{
		Kind:  KindRuntime,
		Test:  test,
		Cause: cause,
	}
}

// NotFound creates a not found error.
func NotFound(what, name string) *WbError {
	return &WbError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found: %s", what, name),
	}
}

// Timeout creates a timeout error for a bounded wait.
func Timeout(what string, cause error) *WbError {
	return &WbError{
		Kind:    KindTimeout,
		Message: fmt.Sprintf("timed out waiting for %s", what),
		Cause:   cause,
	}
}

// ElementNotFound creates the non-fatal locate failure used by probe steps.
func ElementNotFound(description string) *WbError {
	return &WbError{
		Kind:    KindElementNotFound,
		Message: fmt.Sprintf("%s not found", description),
	}
}

// IsKind reports whether err is or wraps a WbError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var we *WbError
	if stderrors.As(err, &we) {
		return we.Kind == kind
	}
	return false
}
