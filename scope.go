package thimble

import (
	"context"

	"github.com/danpasecinic/thimble/internal/container"
	"github.com/danpasecinic/thimble/internal/scope"
)

type Scope = scope.Scope

const (
	Prototype = scope.Prototype
	Singleton = scope.Singleton
	Request   = scope.Request
)

// WithRequestScope returns a context that caches Request scoped instances
// until ReleaseRequestScope is called with it.
func WithRequestScope(ctx context.Context) context.Context {
	return container.WithRequestScope(ctx)
}

// ReleaseRequestScope destroys the instances cached in the request scope of
// ctx, newest first.
func ReleaseRequestScope(ctx context.Context) error {
	return container.ReleaseRequestScope(ctx)
}
