package container

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/danpasecinic/thimble/internal/scope"
)

// Provider is the cached handle that produces instances for one key.
type Provider interface {
	Key() Key
	Type() reflect.Type
	Generic() reflect.Type
	ResolvedType() reflect.Type
	Scope() scope.Scope
	Get(ctx context.Context) (*Instance, error)
	Create(ctx context.Context) (*Instance, error)
	Destroy(inst *Instance) error
	Stop() error
	MetaData(ctx context.Context) (*MetaData, error)
}

// Peeker is implemented by providers that can report an already realized
// value without creating one.
type Peeker interface {
	Peek() (any, bool)
}

// Source creates and tears down the values behind a provider.
type Source interface {
	NewInstance(ctx context.Context, p Provider) (*Instance, error)
	DestroyInstance(inst *Instance) error
	MetaData(ctx context.Context) (*MetaData, error)
}

// ProviderSpec is what a scope strategy needs to build a provider.
type ProviderSpec struct {
	Key     Key
	Type    reflect.Type
	Generic reflect.Type
	Class   *Class
	Source  Source
}

type baseProvider struct {
	spec  ProviderSpec
	scope scope.Scope
}

func (p *baseProvider) Key() Key {
	return p.spec.Key
}

func (p *baseProvider) Type() reflect.Type {
	return p.spec.Type
}

func (p *baseProvider) Generic() reflect.Type {
	if p.spec.Generic == nil {
		return p.spec.Type
	}
	return p.spec.Generic
}

func (p *baseProvider) ResolvedType() reflect.Type {
	if p.spec.Class != nil {
		return p.spec.Class.Type
	}
	return p.spec.Type
}

func (p *baseProvider) Scope() scope.Scope {
	return p.scope
}

func (p *baseProvider) Destroy(inst *Instance) error {
	if p.spec.Source == nil || inst == nil {
		return nil
	}
	return p.spec.Source.DestroyInstance(inst)
}

func (p *baseProvider) MetaData(ctx context.Context) (*MetaData, error) {
	if p.spec.Source == nil {
		return &MetaData{}, nil
	}
	return p.spec.Source.MetaData(ctx)
}

// PrototypeProvider creates a fresh instance on every call.
type PrototypeProvider struct {
	baseProvider
}

func NewPrototypeProvider(spec ProviderSpec) *PrototypeProvider {
	return &PrototypeProvider{baseProvider{spec: spec, scope: scope.Prototype}}
}

func (p *PrototypeProvider) Get(ctx context.Context) (*Instance, error) {
	return p.Create(ctx)
}

func (p *PrototypeProvider) Create(ctx context.Context) (*Instance, error) {
	return p.spec.Source.NewInstance(ctx, p)
}

func (p *PrototypeProvider) Stop() error {
	return nil
}

// SingletonProvider holds at most one instance until stopped.
type SingletonProvider struct {
	baseProvider
	mu       sync.Mutex
	instance atomic.Pointer[Instance]
}

func NewSingletonProvider(spec ProviderSpec) *SingletonProvider {
	return &SingletonProvider{baseProvider: baseProvider{spec: spec, scope: scope.Singleton}}
}

func (p *SingletonProvider) Get(ctx context.Context) (*Instance, error) {
	if inst := p.instance.Load(); inst != nil {
		return inst, nil
	}

	if err := checkCreation(ctx, p.ResolvedType()); err != nil {
		return nil, err
	}
	if err := checkDependencyCycle(ctx, p); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if inst := p.instance.Load(); inst != nil {
		return inst, nil
	}

	inst, err := p.Create(ctx)
	if err != nil {
		return nil, err
	}
	p.instance.Store(inst)
	return inst, nil
}

func (p *SingletonProvider) Create(ctx context.Context) (*Instance, error) {
	return p.spec.Source.NewInstance(ctx, p)
}

func (p *SingletonProvider) Peek() (any, bool) {
	if inst := p.instance.Load(); inst != nil {
		return inst.Value(), true
	}
	return nil, false
}

func (p *SingletonProvider) Stop() error {
	p.mu.Lock()
	inst := p.instance.Swap(nil)
	p.mu.Unlock()

	if inst == nil {
		return nil
	}
	return inst.Destroy()
}

// realizer is implemented by wrapper values that know whether their inner
// value was ever produced.
type realizer interface {
	Realized() bool
}

// FixedProvider wraps a value that already exists.
type FixedProvider struct {
	baseProvider
	instance *Instance
}

func NewFixedProvider(key Key, t reflect.Type, value any) *FixedProvider {
	p := &FixedProvider{baseProvider: baseProvider{
		spec:  ProviderSpec{Key: key, Type: t, Generic: key.Type()},
		scope: scope.Singleton,
	}}
	p.instance = NewInstance(value, key, p)
	return p
}

func (p *FixedProvider) Get(context.Context) (*Instance, error) {
	return p.instance, nil
}

func (p *FixedProvider) Create(context.Context) (*Instance, error) {
	return p.instance, nil
}

func (p *FixedProvider) ResolvedType() reflect.Type {
	if v := p.instance.Value(); v != nil {
		return reflect.TypeOf(v)
	}
	return p.spec.Type
}

// Peek reports the held value. Wrappers that defer their own inner value
// count as realized only once used.
func (p *FixedProvider) Peek() (any, bool) {
	v := p.instance.Value()
	if r, ok := v.(realizer); ok && !r.Realized() {
		return nil, false
	}
	return v, true
}

// Stop releases whatever was created to inject the value. The value itself is
// owned by whoever supplied it.
func (p *FixedProvider) Stop() error {
	return p.instance.destroyDependents()
}

// SuppliedSource delegates creation to a caller-given factory.
type SuppliedSource struct {
	Fn func(ctx context.Context) (any, error)
}

func (s SuppliedSource) NewInstance(ctx context.Context, p Provider) (*Instance, error) {
	v, err := s.Fn(ctx)
	if err != nil {
		return nil, reflective(p.Key().String(), err)
	}
	return NewInstance(v, p.Key(), p), nil
}

func (SuppliedSource) DestroyInstance(*Instance) error {
	return nil
}

func (SuppliedSource) MetaData(context.Context) (*MetaData, error) {
	return &MetaData{}, nil
}
