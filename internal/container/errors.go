package container

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	ireflect "github.com/danpasecinic/thimble/internal/reflect"
)

var (
	ErrNotFound              = errors.New("no implementation found")
	ErrAmbiguous             = errors.New("ambiguous implementations")
	ErrMalformedRegistration = errors.New("malformed registration")
	ErrReflectiveFailure     = errors.New("reflective failure")
	ErrCircularDependency    = errors.New("circular dependency")
	ErrScopeNotFound         = errors.New("scope not found")
)

// AmbiguityError names the first two distinct candidates that satisfied the
// same request.
type AmbiguityError struct {
	Request Request
	First   reflect.Type
	Second  reflect.Type
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("%s for %s: %s and %s",
		ErrAmbiguous, e.Request, ireflect.TypeKey(e.First), ireflect.TypeKey(e.Second))
}

func (e *AmbiguityError) Unwrap() error {
	return ErrAmbiguous
}

// CircularError carries the creation chain that led back to a type already
// under construction.
type CircularError struct {
	Chain []string
}

func (e *CircularError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCircularDependency, strings.Join(e.Chain, " -> "))
}

func (e *CircularError) Unwrap() error {
	return ErrCircularDependency
}

// NotFoundError reports the request that nothing satisfied.
type NotFoundError struct {
	Request Request
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s for %s", ErrNotFound, e.Request)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func notFound(req Request) error {
	return &NotFoundError{Request: req}
}

// notFoundFor reports whether err says that req itself, rather than something
// it depends on, has no implementation.
func notFoundFor(err error, req Request) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) && nf.Request.Key().ID() == req.Key().ID()
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedRegistration, fmt.Sprintf(format, args...))
}

// reflective keeps both the failure class and the underlying cause reachable
// through errors.Is.
func reflective(target string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrReflectiveFailure, target, cause)
}
