package thimble

import (
	"context"
	"reflect"

	"github.com/danpasecinic/thimble/internal/container"
	ireflect "github.com/danpasecinic/thimble/internal/reflect"
)

type Decorator[T any] func(ctx context.Context, r Resolver, base T) (T, error)

// Bind makes T the answer to requests for I with the binding's qualifiers,
// overriding whatever the registered candidates would select.
func Bind[I, T any](e *Environment, opts ...ProviderOption) error {
	return e.bindingFor(ireflect.TypeOf[I](), opts).ImplementedBy(ireflect.TypeOf[T]())
}

// BindFunc binds I to the value built by constructor.
func BindFunc[I any](e *Environment, constructor any, opts ...ProviderOption) error {
	return e.bindingFor(ireflect.TypeOf[I](), opts).ImplementedByConstructor(constructor)
}

func BindNamed[I, T any](e *Environment, name string, opts ...ProviderOption) error {
	opts = append(opts, WithName(name))
	return Bind[I, T](e, opts...)
}

func (e *Environment) bindingFor(t reflect.Type, opts []ProviderOption) *bindingBuilder {
	cfg := newProviderConfig(opts)
	b := e.internal.AddBinding(t).Qualified(cfg.qualifiers...).InScope(cfg.scope)
	if cfg.priority != nil {
		b.WithPriority(*cfg.priority)
	}
	return &bindingBuilder{builder: b, service: ireflect.TypeKey(t)}
}

type bindingBuilder struct {
	builder *container.BindingBuilder
	service string
}

func (b *bindingBuilder) ImplementedBy(impl reflect.Type) error {
	return wrapError(b.builder.ImplementedBy(impl), b.service)
}

func (b *bindingBuilder) ImplementedByConstructor(fn any) error {
	return wrapError(b.builder.ImplementedByConstructor(fn), b.service)
}

// Decorate replaces every T created from now on with what decorator returns.
// T must be the registered type itself; lifecycle methods keep running on the
// undecorated value.
func Decorate[T any](e *Environment, decorator Decorator[T]) {
	resolver := &resolverAdapter{env: e}
	e.internal.AddValueDecorator(ireflect.TypeOf[T](), func(ctx context.Context, value any) (any, error) {
		typed, ok := value.(T)
		if !ok {
			return nil, errTypeMismatch(TypeName[T](), value)
		}
		return decorator(ctx, resolver, typed)
	})
}
