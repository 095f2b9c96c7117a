package thimble

import (
	"context"
	"reflect"

	"github.com/danpasecinic/thimble/internal/container"
	ireflect "github.com/danpasecinic/thimble/internal/reflect"
)

const (
	// InjectTag marks a field for injection. A non-empty value names the
	// registration to inject.
	InjectTag = "inject"

	// QualifierTag lists the qualifiers a field requires, "@fast @region(zone=eu)".
	// A field carrying it is injected even without InjectTag.
	QualifierTag = "qualifier"
)

// Register adds the struct pointer type T as a candidate implementation of
// every type it is assignable to. Instances are allocated, their tagged
// fields and Inject methods are injected, then PostConstruct methods run.
func Register[T any](e *Environment, opts ...ProviderOption) error {
	return e.register(ireflect.TypeOf[T](), nil, opts)
}

// RegisterFunc is Register with a constructor building the instance. The
// constructor takes an optional context.Context followed by its dependencies
// and returns T, or T and an error.
func RegisterFunc[T any](e *Environment, constructor any, opts ...ProviderOption) error {
	ctor, err := ireflect.InspectConstructor(constructor)
	if err != nil {
		return newError(ErrCodeMalformedRegistration, "invalid constructor", err).WithService(TypeName[T]())
	}
	return e.register(ireflect.TypeOf[T](), ctor, opts)
}

func MustRegister[T any](e *Environment, opts ...ProviderOption) {
	if err := Register[T](e, opts...); err != nil {
		panic(err)
	}
}

func MustRegisterFunc[T any](e *Environment, constructor any, opts ...ProviderOption) {
	if err := RegisterFunc[T](e, constructor, opts...); err != nil {
		panic(err)
	}
}

// RegisterType is the non-generic form of Register.
func (e *Environment) RegisterType(t reflect.Type, opts ...ProviderOption) error {
	return e.register(t, nil, opts)
}

func (e *Environment) register(t reflect.Type, ctor *ireflect.Constructor, opts []ProviderOption) error {
	cfg := newProviderConfig(opts)
	class := &container.Class{
		Type:        t,
		Qualifiers:  cfg.qualifierSet(),
		Scope:       cfg.scope,
		Priority:    cfg.priority,
		Constructor: ctor,
		Eager:       cfg.eager,
	}

	if err := e.internal.AddClasses(class); err != nil {
		return wrapError(err, ireflect.TypeKey(t))
	}
	return nil
}

// Inject fills the tagged fields and calls the Inject methods of target, a
// struct pointer that is not registered.
func Inject(ctx context.Context, e *Environment, target any) error {
	if err := e.internal.Inject(ctx, target); err != nil {
		return wrapError(err, ireflect.TypeKeyFromValue(target))
	}
	return nil
}

// InjectStruct allocates a T, which must be a struct pointer, and injects it.
func InjectStruct[T any](ctx context.Context, e *Environment) (T, error) {
	var zero T

	t := ireflect.TypeOf[T]()
	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return zero, newError(
			ErrCodeMalformedRegistration,
			"InjectStruct requires a struct pointer",
			nil,
		).WithService(TypeName[T]())
	}

	v := reflect.New(t.Elem()).Interface()
	if err := Inject(ctx, e, v); err != nil {
		return zero, err
	}
	return v.(T), nil
}
