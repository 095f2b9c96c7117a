// Package thimbletest wraps an Environment with helpers that fail the test
// instead of returning errors.
package thimbletest

import (
	"context"

	"github.com/danpasecinic/thimble"
)

type TB interface {
	Helper()
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Cleanup(f func())
}

type TestEnvironment struct {
	*thimble.Environment
	tb TB
}

// New creates an environment that is stopped when the test ends.
func New(tb TB, opts ...thimble.Option) *TestEnvironment {
	tb.Helper()

	env := thimble.New(opts...)
	te := &TestEnvironment{
		Environment: env,
		tb:          tb,
	}

	tb.Cleanup(func() {
		if err := env.Stop(context.Background()); err != nil {
			tb.Fatalf("failed to stop environment: %v", err)
		}
	})

	return te
}

func (te *TestEnvironment) RequireStart(ctx context.Context) {
	te.tb.Helper()

	if err := te.Start(ctx); err != nil {
		te.tb.Fatalf("failed to start environment: %v", err)
	}
}

func (te *TestEnvironment) RequireStop(ctx context.Context) {
	te.tb.Helper()

	if err := te.Stop(ctx); err != nil {
		te.tb.Fatalf("failed to stop environment: %v", err)
	}
}

func (te *TestEnvironment) RequireValidate() {
	te.tb.Helper()

	if err := te.Validate(); err != nil {
		te.tb.Fatalf("environment validation failed: %v", err)
	}
}

// Replace makes value answer every request for T, ahead of any registered
// implementation.
func Replace[T any](te *TestEnvironment, value T) {
	te.tb.Helper()

	if err := thimble.ReplaceValue(te.Environment, value); err != nil {
		te.tb.Fatalf("failed to replace %s: %v", thimble.TypeName[T](), err)
	}
}

func ReplaceNamed[T any](te *TestEnvironment, name string, value T) {
	te.tb.Helper()

	if err := thimble.ReplaceNamedValue(te.Environment, name, value); err != nil {
		te.tb.Fatalf("failed to replace %s %q: %v", thimble.TypeName[T](), name, err)
	}
}

func ReplaceProvider[T any](te *TestEnvironment, provider thimble.Provider[T], opts ...thimble.ProviderOption) {
	te.tb.Helper()

	if err := thimble.Replace(te.Environment, provider, opts...); err != nil {
		te.tb.Fatalf("failed to replace provider %s: %v", thimble.TypeName[T](), err)
	}
}

func AssertHas[T any](te *TestEnvironment, qualifiers ...thimble.Qualifier) {
	te.tb.Helper()

	if !thimble.Has[T](te.Environment, qualifiers...) {
		te.tb.Fatalf("expected environment to have %s", thimble.TypeName[T]())
	}
}

func AssertHasNamed[T any](te *TestEnvironment, name string) {
	te.tb.Helper()

	if !thimble.HasNamed[T](te.Environment, name) {
		te.tb.Fatalf("expected environment to have %s %q", thimble.TypeName[T](), name)
	}
}

func AssertNotHas[T any](te *TestEnvironment, qualifiers ...thimble.Qualifier) {
	te.tb.Helper()

	if thimble.Has[T](te.Environment, qualifiers...) {
		te.tb.Fatalf("expected environment to not have %s", thimble.TypeName[T]())
	}
}

func MustGet[T any](te *TestEnvironment, qualifiers ...thimble.Qualifier) T {
	te.tb.Helper()

	v, err := thimble.Get[T](te.Environment, qualifiers...)
	if err != nil {
		te.tb.Fatalf("failed to get %s: %v", thimble.TypeName[T](), err)
	}
	return v
}

func MustGetNamed[T any](te *TestEnvironment, name string) T {
	te.tb.Helper()

	v, err := thimble.GetNamed[T](te.Environment, name)
	if err != nil {
		te.tb.Fatalf("failed to get %s %q: %v", thimble.TypeName[T](), name, err)
	}
	return v
}

func MustRegister[T any](te *TestEnvironment, opts ...thimble.ProviderOption) {
	te.tb.Helper()

	if err := thimble.Register[T](te.Environment, opts...); err != nil {
		te.tb.Fatalf("failed to register %s: %v", thimble.TypeName[T](), err)
	}
}

func MustProvide[T any](te *TestEnvironment, provider thimble.Provider[T], opts ...thimble.ProviderOption) {
	te.tb.Helper()

	if err := thimble.Provide(te.Environment, provider, opts...); err != nil {
		te.tb.Fatalf("failed to provide %s: %v", thimble.TypeName[T](), err)
	}
}

func MustProvideValue[T any](te *TestEnvironment, value T, opts ...thimble.ProviderOption) {
	te.tb.Helper()

	if err := thimble.ProvideValue(te.Environment, value, opts...); err != nil {
		te.tb.Fatalf("failed to provide value %s: %v", thimble.TypeName[T](), err)
	}
}

func MustProvideNamedValue[T any](te *TestEnvironment, name string, value T, opts ...thimble.ProviderOption) {
	te.tb.Helper()

	if err := thimble.ProvideNamedValue(te.Environment, name, value, opts...); err != nil {
		te.tb.Fatalf("failed to provide value %s %q: %v", thimble.TypeName[T](), name, err)
	}
}
