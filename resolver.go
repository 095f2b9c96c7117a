package thimble

import (
	"context"
	"reflect"

	"github.com/danpasecinic/thimble/internal/container"
	"github.com/danpasecinic/thimble/internal/qualifier"
	ireflect "github.com/danpasecinic/thimble/internal/reflect"
)

// Resolver is the view of the environment handed to providers and decorators.
type Resolver interface {
	Resolve(ctx context.Context, t reflect.Type, qualifiers ...Qualifier) (any, error)
	Find(ctx context.Context, name string) (any, error)
	Has(t reflect.Type, qualifiers ...Qualifier) bool
}

type resolverAdapter struct {
	env *Environment
}

func (r *resolverAdapter) Resolve(ctx context.Context, t reflect.Type, qualifiers ...Qualifier) (any, error) {
	v, err := r.env.internal.Get(ctx, container.RequestFor(t, qualifiers...))
	if err != nil {
		return nil, wrapError(err, ireflect.TypeKey(t))
	}
	return v, nil
}

func (r *resolverAdapter) Find(ctx context.Context, name string) (any, error) {
	return Find(ctx, r.env, name)
}

func (r *resolverAdapter) Has(t reflect.Type, qualifiers ...Qualifier) bool {
	return r.env.internal.Has(container.RequestFor(t, qualifiers...))
}

// Resolver returns the environment as a Resolver.
func (e *Environment) Resolver() Resolver {
	return &resolverAdapter{env: e}
}

// TypeName is the name T is known by in keys, graphs and priority maps.
func TypeName[T any]() string {
	return ireflect.TypeKeyOf[T]()
}

func Get[T any](e *Environment, qualifiers ...Qualifier) (T, error) {
	return GetCtx[T](context.Background(), e, qualifiers...)
}

// GetCtx resolves T. Request scoped registrations need a ctx prepared with
// WithRequestScope.
func GetCtx[T any](ctx context.Context, e *Environment, qualifiers ...Qualifier) (T, error) {
	return get[T](ctx, e, container.RequestFor(ireflect.TypeOf[T](), qualifiers...))
}

func GetNamed[T any](e *Environment, name string) (T, error) {
	return GetNamedCtx[T](context.Background(), e, name)
}

func GetNamedCtx[T any](ctx context.Context, e *Environment, name string) (T, error) {
	return GetCtx[T](ctx, e, qualifier.Named(name))
}

// GetGeneric resolves T among the candidates that also embed or implement
// the instantiated type G, such as Repository[User].
func GetGeneric[T, G any](ctx context.Context, e *Environment, qualifiers ...Qualifier) (T, error) {
	req := container.Request{
		Type:       ireflect.TypeOf[T](),
		Generic:    ireflect.TypeOf[G](),
		Qualifiers: qualifier.NewSet(qualifiers...),
	}
	return get[T](ctx, e, req)
}

func get[T any](ctx context.Context, e *Environment, req container.Request) (T, error) {
	var zero T

	instance, err := e.internal.Get(ctx, req)
	if err != nil {
		return zero, wrapError(err, req.String())
	}
	if instance == nil {
		return zero, nil
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, errTypeMismatch(req.String(), instance)
	}
	return typed, nil
}

func MustGet[T any](e *Environment, qualifiers ...Qualifier) T {
	v, err := Get[T](e, qualifiers...)
	if err != nil {
		panic(err)
	}
	return v
}

func MustGetCtx[T any](ctx context.Context, e *Environment, qualifiers ...Qualifier) T {
	v, err := GetCtx[T](ctx, e, qualifiers...)
	if err != nil {
		panic(err)
	}
	return v
}

func MustGetNamed[T any](e *Environment, name string) T {
	v, err := GetNamed[T](e, name)
	if err != nil {
		panic(err)
	}
	return v
}

func TryGet[T any](e *Environment, qualifiers ...Qualifier) (T, bool) {
	v, err := Get[T](e, qualifiers...)
	return v, err == nil
}

// Find resolves the registration carrying name, whatever its type.
func Find(ctx context.Context, e *Environment, name string) (any, error) {
	v, err := e.internal.Find(ctx, name)
	if err != nil {
		return nil, wrapError(err, name)
	}
	return v, nil
}

func FindAs[T any](ctx context.Context, e *Environment, name string) (T, error) {
	var zero T

	v, err := Find(ctx, e, name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, errTypeMismatch(name, v)
	}
	return typed, nil
}

// FindSupplier returns an accessor that resolves T on each call and reports
// false where GetCtx would fail.
func FindSupplier[T any](ctx context.Context, e *Environment, qualifiers ...Qualifier) func() (T, bool) {
	supplier := e.internal.FindSupplier(ctx, container.RequestFor(ireflect.TypeOf[T](), qualifiers...))
	return func() (T, bool) {
		var zero T
		v, ok := supplier()
		if !ok {
			return zero, false
		}
		typed, ok := v.(T)
		return typed, ok
	}
}

func Has[T any](e *Environment, qualifiers ...Qualifier) bool {
	return e.internal.Has(container.RequestFor(ireflect.TypeOf[T](), qualifiers...))
}

func HasNamed[T any](e *Environment, name string) bool {
	return Has[T](e, qualifier.Named(name))
}

// Optional is injected present when its element resolves and empty when
// nothing implements it. Other failures still fail the injection.
type Optional[T any] = container.Optional[T]

func Some[T any](value T) Optional[T] {
	return container.Some(value)
}

func None[T any]() Optional[T] {
	return container.None[T]()
}

// Lazy defers resolving T until Get is called. Each call on a prototype
// element creates a new instance.
type Lazy[T any] = container.Lazy[T]

func GetOptional[T any](ctx context.Context, e *Environment, qualifiers ...Qualifier) (Optional[T], error) {
	return GetCtx[Optional[T]](ctx, e, qualifiers...)
}
