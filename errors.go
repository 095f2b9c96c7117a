package thimble

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danpasecinic/thimble/internal/container"
)

type ErrorCode uint16

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeNotFound
	ErrCodeAmbiguous
	ErrCodeMalformedRegistration
	ErrCodeReflectiveFailure
	ErrCodeCircularDependency
	ErrCodeScopeNotFound
	ErrCodeStartupFailed
	ErrCodeShutdownFailed
	ErrCodeHealthCheckFailed
	ErrCodeValidationFailed
	ErrCodeModuleApplyFailed
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:               "UNKNOWN",
	ErrCodeNotFound:              "NOT_FOUND",
	ErrCodeAmbiguous:             "AMBIGUOUS",
	ErrCodeMalformedRegistration: "MALFORMED_REGISTRATION",
	ErrCodeReflectiveFailure:     "REFLECTIVE_FAILURE",
	ErrCodeCircularDependency:    "CIRCULAR_DEPENDENCY",
	ErrCodeScopeNotFound:         "SCOPE_NOT_FOUND",
	ErrCodeStartupFailed:         "STARTUP_FAILED",
	ErrCodeShutdownFailed:        "SHUTDOWN_FAILED",
	ErrCodeHealthCheckFailed:     "HEALTH_CHECK_FAILED",
	ErrCodeValidationFailed:      "VALIDATION_FAILED",
	ErrCodeModuleApplyFailed:     "MODULE_APPLY_FAILED",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

type Error struct {
	Code    ErrorCode
	Message string
	Service string
	Cause   error
	Stack   []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Service != "" {
		b.WriteString(fmt.Sprintf(" service=%q:", e.Service))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) WithService(service string) *Error {
	e.Service = service
	return e
}

func (e *Error) WithStack(stack []string) *Error {
	e.Stack = stack
	return e
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// sentinels maps internal failures to codes. Order matters: a cycle or an
// ambiguity found while injecting a dependency is reported as such, not as
// the reflective failure that carries it.
var sentinels = []struct {
	err  error
	code ErrorCode
	msg  string
}{
	{container.ErrCircularDependency, ErrCodeCircularDependency, "circular dependency"},
	{container.ErrAmbiguous, ErrCodeAmbiguous, "ambiguous implementations"},
	{container.ErrMalformedRegistration, ErrCodeMalformedRegistration, "malformed registration"},
	{container.ErrScopeNotFound, ErrCodeScopeNotFound, "scope not found"},
	{container.ErrNotFound, ErrCodeNotFound, "no implementation found"},
	{container.ErrReflectiveFailure, ErrCodeReflectiveFailure, "failed to create instance"},
}

// wrapError turns an internal failure into a coded *Error for service.
func wrapError(err error, service string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			wrapped := newError(s.code, s.msg, err).WithService(service)
			var circular *container.CircularError
			if errors.As(err, &circular) {
				wrapped.WithStack(circular.Chain)
			}
			return wrapped
		}
	}
	return newError(ErrCodeUnknown, "resolution failed", err).WithService(service)
}

func errStartupFailed(service string, cause error) *Error {
	return newError(
		ErrCodeStartupFailed,
		fmt.Sprintf("failed to start %s", service),
		cause,
	).WithService(service)
}

func errShutdownFailed(service string, cause error) *Error {
	return newError(
		ErrCodeShutdownFailed,
		fmt.Sprintf("failed to stop %s", service),
		cause,
	).WithService(service)
}

func errTypeMismatch(service string, value any) *Error {
	return newError(
		ErrCodeReflectiveFailure,
		fmt.Sprintf("resolved value of type %T", value),
		nil,
	).WithService(service)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsNotFound reports whether nothing satisfied a request, either the one
// made or one of its dependencies.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound) || errors.Is(err, container.ErrNotFound)
}

func IsAmbiguous(err error) bool {
	return hasCode(err, ErrCodeAmbiguous) || errors.Is(err, container.ErrAmbiguous)
}

func IsMalformedRegistration(err error) bool {
	return hasCode(err, ErrCodeMalformedRegistration) || errors.Is(err, container.ErrMalformedRegistration)
}

func IsReflectiveFailure(err error) bool {
	return hasCode(err, ErrCodeReflectiveFailure) || errors.Is(err, container.ErrReflectiveFailure)
}

func IsCircularDependency(err error) bool {
	return hasCode(err, ErrCodeCircularDependency) || errors.Is(err, container.ErrCircularDependency)
}

func IsScopeNotFound(err error) bool {
	return hasCode(err, ErrCodeScopeNotFound) || errors.Is(err, container.ErrScopeNotFound)
}

func IsStartupFailed(err error) bool {
	return hasCode(err, ErrCodeStartupFailed)
}

func IsShutdownFailed(err error) bool {
	return hasCode(err, ErrCodeShutdownFailed)
}

func IsHealthCheckFailed(err error) bool {
	return hasCode(err, ErrCodeHealthCheckFailed)
}

func IsValidationFailed(err error) bool {
	return hasCode(err, ErrCodeValidationFailed)
}
