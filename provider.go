package thimble

import (
	"context"
	"reflect"

	"github.com/danpasecinic/thimble/internal/container"
	"github.com/danpasecinic/thimble/internal/qualifier"
	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/internal/scope"
)

// Provider builds a T on demand. Unlike registered implementations, provided
// values skip field injection and lifecycle methods.
type Provider[T any] func(ctx context.Context, r Resolver) (T, error)

type ProviderOption func(*providerConfig)

type providerConfig struct {
	qualifiers []Qualifier
	scope      Scope
	priority   *int
	eager      bool
}

func newProviderConfig(opts []ProviderOption) *providerConfig {
	cfg := &providerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (cfg *providerConfig) qualifierSet() qualifier.Set {
	return qualifier.NewSet(cfg.qualifiers...)
}

// Provide registers a factory for T. Provided factories are singletons
// unless WithScope says otherwise.
func Provide[T any](e *Environment, provider Provider[T], opts ...ProviderOption) error {
	cfg := newProviderConfig(opts)
	t := ireflect.TypeOf[T]()
	key := container.NewKey(t, cfg.qualifierSet())
	if provider == nil {
		return newError(ErrCodeMalformedRegistration, "nil provider", nil).WithService(key.String())
	}
	if cfg.priority != nil {
		return errPriorityNotApplicable(key.String())
	}

	resolver := &resolverAdapter{env: e}
	fn := func(ctx context.Context) (any, error) {
		return provider(ctx, resolver)
	}

	if _, err := e.internal.AddProvider(key, cfg.scope.Or(scope.Singleton), fn); err != nil {
		return wrapError(err, key.String())
	}
	if cfg.eager {
		e.internal.MarkEager(key)
	}
	return nil
}

// errPriorityNotApplicable rejects WithPriority outside class registration:
// provided factories and values are never candidates of a selection.
func errPriorityNotApplicable(service string) *Error {
	return newError(ErrCodeMalformedRegistration, "WithPriority only applies to registered implementations", nil).
		WithService(service)
}

// ProvideValue registers an existing value as T. Its tagged fields and
// Inject methods are injected immediately; lifecycle methods are not run.
func ProvideValue[T any](e *Environment, value T, opts ...ProviderOption) error {
	return e.put(context.Background(), value, ireflect.TypeOf[T](), opts)
}

func ProvideNamed[T any](e *Environment, name string, provider Provider[T], opts ...ProviderOption) error {
	opts = append(opts, WithName(name))
	return Provide(e, provider, opts...)
}

func ProvideNamedValue[T any](e *Environment, name string, value T, opts ...ProviderOption) error {
	opts = append(opts, WithName(name))
	return ProvideValue(e, value, opts...)
}

func (e *Environment) put(ctx context.Context, value any, t reflect.Type, opts []ProviderOption) error {
	cfg := newProviderConfig(opts)
	if cfg.priority != nil {
		return errPriorityNotApplicable(ireflect.TypeKeyFromValue(value))
	}
	if _, err := e.internal.Put(ctx, value, t, cfg.qualifierSet()); err != nil {
		return wrapError(err, ireflect.TypeKeyFromValue(value))
	}
	return nil
}

// Remove forgets whatever currently answers requests for T with the given
// qualifiers and destroys its instances.
func Remove[T any](e *Environment, opts ...ProviderOption) error {
	cfg := newProviderConfig(opts)
	t := ireflect.TypeOf[T]()
	if err := e.internal.Remove(t, cfg.qualifierSet()); err != nil {
		return wrapError(err, ireflect.TypeKey(t))
	}
	return nil
}

func WithName(name string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.qualifiers = append(cfg.qualifiers, qualifier.Named(name))
	}
}

func WithQualifiers(qualifiers ...Qualifier) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.qualifiers = append(cfg.qualifiers, qualifiers...)
	}
}

func WithScope(s Scope) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.scope = s
	}
}

// WithPriority orders registrations that satisfy the same request; lower
// values are considered first.
func WithPriority(priority int) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.priority = &priority
	}
}

// Eager realizes a registration or a provided factory during Start instead
// of on first use.
func Eager() ProviderOption {
	return func(cfg *providerConfig) {
		cfg.eager = true
	}
}
