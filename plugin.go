package thimble

import (
	"reflect"

	"github.com/danpasecinic/thimble/internal/container"
	"github.com/danpasecinic/thimble/internal/qualifier"
)

// The types below are the engine's own. Plugins registered with the Add*
// methods receive and return them unchanged.
type (
	// Key identifies a cached provider: a type plus a qualifier set.
	Key = container.Key

	// ResolveRequest is one request to the resolution algorithm.
	ResolveRequest = container.Request

	// Class is a candidate implementation and its registration attributes.
	Class = container.Class

	QualifierSet = qualifier.Set

	// InstanceProvider produces the instances for one key.
	InstanceProvider = container.Provider
	Instance         = container.Instance
	ProviderSpec     = container.ProviderSpec
	MetaData         = container.MetaData

	// Lookup is the part of the environment plugins may resolve through.
	Lookup = container.Lookup

	// TypeResolver answers requests that no class or binding satisfies. A
	// nil provider with a nil error passes to the next resolver.
	TypeResolver = container.Resolver

	// ScopeStrategy builds the provider for classes of one scope.
	ScopeStrategy     = container.ScopeStrategy
	PrototypeStrategy = container.PrototypeStrategy
	SingletonStrategy = container.SingletonStrategy

	InjectionPoint        = container.InjectionPoint
	InjectionPointBuilder = container.InjectionPointBuilder
	FieldPoint            = container.FieldPoint

	// FactoryBuilder picks how a class is allocated. A nil factory with a
	// nil error passes to the next builder.
	FactoryBuilder  = container.FactoryBuilder
	InstanceFactory = container.InstanceFactory

	// ProviderDecorator wraps every provider built after it is added.
	ProviderDecorator = container.Decorator
)

func NewKey(t reflect.Type, qualifiers ...Qualifier) Key {
	return container.NewKey(t, qualifier.NewSet(qualifiers...))
}

func NewResolveRequest(t reflect.Type, qualifiers ...Qualifier) ResolveRequest {
	return container.RequestFor(t, qualifiers...)
}

func NewQualifierSet(qualifiers ...Qualifier) QualifierSet {
	return qualifier.NewSet(qualifiers...)
}

// NewValueProvider returns a provider that always answers value. Resolvers
// use it for values they compute themselves.
func NewValueProvider(key Key, value any) InstanceProvider {
	return container.NewFixedProvider(key, key.Type(), value)
}

// AddResolver appends r to the resolver chain, after the built-in Lazy and
// Optional resolvers.
func (e *Environment) AddResolver(r TypeResolver) {
	e.internal.AddResolver(r)
}

// AddScopeStrategy registers or replaces the strategy for s.
func (e *Environment) AddScopeStrategy(s Scope, strategy ScopeStrategy) {
	e.internal.AddScopeStrategy(s, strategy)
}

// AddInjectionPointBuilder appends b to the injection point discovery chain.
// Every builder contributes points for every class built afterwards.
func (e *Environment) AddInjectionPointBuilder(b InjectionPointBuilder) {
	e.internal.AddInjectionPointBuilder(b)
}

// AddFactoryBuilder puts b ahead of the constructor and allocation builders.
func (e *Environment) AddFactoryBuilder(b FactoryBuilder) {
	e.internal.AddFactoryBuilder(b)
}

func (e *Environment) AddProviderDecorator(d ProviderDecorator) {
	e.internal.AddDecorator(d)
}
