package container

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/internal/scope"
)

const (
	injectPrefix        = "Inject"
	postConstructPrefix = "PostConstruct"
	preDestroyPrefix    = "PreDestroy"
)

// Lookup is the slice of the environment that builders and resolvers see.
type Lookup interface {
	Provider(ctx context.Context, req Request) (Provider, error)
}

// MetaData is everything learned about a class before its first instance:
// how to allocate it, what to inject, and which lifecycle methods to call.
// Lifecycle hooks are grouped by embedding level, base level first.
type MetaData struct {
	Factory         InstanceFactory
	InjectionPoints []InjectionPoint
	PostConstruct   [][]Hook
	PreDestroy      [][]Hook
}

// Dependencies lists every provider the class needs, in injection order.
func (m *MetaData) Dependencies() []Provider {
	var out []Provider
	if m.Factory != nil {
		out = append(out, m.Factory.Providers()...)
	}
	for _, ip := range m.InjectionPoints {
		out = append(out, ip.Providers()...)
	}
	return out
}

// InstanceFactory allocates the raw value for a class. record receives every
// prototype instance created along the way.
type InstanceFactory interface {
	Allocate(ctx context.Context, record func(*Instance)) (reflect.Value, error)
	Providers() []Provider
}

// FactoryBuilder picks a construction strategy. A nil factory with a nil
// error passes to the next builder in the chain.
type FactoryBuilder interface {
	BuildFactory(ctx context.Context, l Lookup, c *Class) (InstanceFactory, error)
}

// Hook is one lifecycle method.
type Hook struct {
	Name string
	Call ireflect.LifecycleCall
}

func (h Hook) invoke(ctx context.Context, target reflect.Value) error {
	m := target.MethodByName(h.Name)
	if !m.IsValid() {
		return fmt.Errorf("method %s not found on %s", h.Name, target.Type())
	}

	var args []reflect.Value
	if h.Call.TakesCtx {
		args = append(args, reflect.ValueOf(ctx))
	}
	out := m.Call(args)
	if h.Call.ReturnsErr && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

func lifecycleHooks(t reflect.Type, prefix string) ([][]Hook, error) {
	methods := ireflect.MethodsWithPrefix(t, prefix)
	if len(methods) == 0 {
		return nil, nil
	}

	levels := make([][]Hook, methods[len(methods)-1].Level+1)
	for _, m := range methods {
		call, err := ireflect.InspectLifecycle(m.Method)
		if err != nil {
			return nil, malformed("%s: %v", ireflect.TypeKey(t), err)
		}
		levels[m.Level] = append(levels[m.Level], Hook{Name: m.Method.Name, Call: call})
	}
	return levels, nil
}

// InstanceBuilder creates and destroys instances of one resolved class.
type InstanceBuilder struct {
	lookup     Lookup
	class      *Class
	factories  []FactoryBuilder
	injections []InjectionPointBuilder
	onBuilt    func(*MetaData)

	mu   sync.Mutex
	meta *MetaData
}

func NewInstanceBuilder(l Lookup, c *Class, factories []FactoryBuilder, injections []InjectionPointBuilder) *InstanceBuilder {
	return &InstanceBuilder{lookup: l, class: c, factories: factories, injections: injections}
}

// MetaData returns the class metadata, building it on first use. Lookups
// made while building run outside the builder lock; the first result
// published wins.
func (b *InstanceBuilder) MetaData(ctx context.Context) (*MetaData, error) {
	b.mu.Lock()
	meta := b.meta
	b.mu.Unlock()
	if meta != nil {
		return meta, nil
	}

	built, err := b.build(ctx)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if b.meta != nil {
		meta = b.meta
		b.mu.Unlock()
		return meta, nil
	}
	b.meta = built
	b.mu.Unlock()

	if b.onBuilt != nil {
		b.onBuilt(built)
	}
	return built, nil
}

func (b *InstanceBuilder) build(ctx context.Context) (*MetaData, error) {
	meta := &MetaData{}

	for _, fb := range b.factories {
		f, err := fb.BuildFactory(ctx, b.lookup, b.class)
		if err != nil {
			return nil, err
		}
		if f != nil {
			meta.Factory = f
			break
		}
	}
	if meta.Factory == nil {
		return nil, malformed("no construction strategy for %s", b.class)
	}

	for _, ib := range b.injections {
		points, err := ib.BuildInjectionPoints(ctx, b.lookup, b.class)
		if err != nil {
			return nil, err
		}
		meta.InjectionPoints = append(meta.InjectionPoints, points...)
	}

	var err error
	if meta.PostConstruct, err = lifecycleHooks(b.class.Type, postConstructPrefix); err != nil {
		return nil, err
	}
	if b.class.Scope.Or(scope.Default) != scope.Prototype {
		if meta.PreDestroy, err = lifecycleHooks(b.class.Type, preDestroyPrefix); err != nil {
			return nil, err
		}
	}
	return meta, nil
}

func (b *InstanceBuilder) NewInstance(ctx context.Context, p Provider) (*Instance, error) {
	ctx, err := enterCreation(ctx, b.class.Type)
	if err != nil {
		return nil, err
	}

	meta, err := b.MetaData(ctx)
	if err != nil {
		return nil, err
	}

	inst := NewInstance(nil, p.Key(), p)
	fail := func(target string, cause error) (*Instance, error) {
		return nil, errors.Join(reflective(target, cause), inst.destroyDependents())
	}

	rv, err := meta.Factory.Allocate(ctx, inst.AddDependent)
	if err != nil {
		return fail(b.class.String(), err)
	}

	for _, ip := range meta.InjectionPoints {
		if err := ip.Inject(ctx, rv, inst.AddDependent); err != nil {
			return fail(ip.Target(), err)
		}
	}

	for _, level := range meta.PostConstruct {
		for _, h := range level {
			if err := h.invoke(ctx, rv); err != nil {
				return fail(fmt.Sprintf("%s.%s", b.class, h.Name), err)
			}
		}
	}

	inst.value = rv.Interface()
	return inst, nil
}

// DestroyInstance runs pre-destroy hooks outermost level first.
func (b *InstanceBuilder) DestroyInstance(inst *Instance) error {
	rv := reflect.ValueOf(inst.Raw())
	if !rv.IsValid() {
		return nil
	}

	var levels [][]Hook
	if b.class.Scope.Or(scope.Default) == scope.Prototype {
		hooks, err := lifecycleHooks(b.class.Type, preDestroyPrefix)
		if err != nil {
			return err
		}
		levels = hooks
	} else {
		meta, err := b.MetaData(context.Background())
		if err != nil {
			return err
		}
		levels = meta.PreDestroy
	}

	var errs []error
	for i := len(levels) - 1; i >= 0; i-- {
		for _, h := range levels[i] {
			if err := h.invoke(context.Background(), rv); err != nil {
				errs = append(errs, reflective(fmt.Sprintf("%s.%s", b.class, h.Name), err))
			}
		}
	}
	return errors.Join(errs...)
}

// ConstructorFactoryBuilder applies to classes registered with a constructor
// function and resolves a provider per parameter.
type ConstructorFactoryBuilder struct{}

func (ConstructorFactoryBuilder) BuildFactory(ctx context.Context, l Lookup, c *Class) (InstanceFactory, error) {
	if c.Constructor == nil {
		return nil, nil
	}

	providers := make([]Provider, len(c.Constructor.Params))
	for i, param := range c.Constructor.Params {
		p, err := l.Provider(ctx, RequestFor(param))
		if err != nil {
			return nil, fmt.Errorf("parameter %d of %s constructor: %w", i, c, err)
		}
		providers[i] = p
	}
	return &constructorFactory{ctor: c.Constructor, providers: providers}, nil
}

type constructorFactory struct {
	ctor      *ireflect.Constructor
	providers []Provider
}

func (f *constructorFactory) Providers() []Provider {
	return f.providers
}

func (f *constructorFactory) Allocate(ctx context.Context, record func(*Instance)) (reflect.Value, error) {
	args := make([]reflect.Value, 0, len(f.providers)+1)
	if f.ctor.TakesCtx {
		args = append(args, reflect.ValueOf(&ctx).Elem())
	}
	for i, p := range f.providers {
		v, err := obtain(ctx, p, f.ctor.Params[i], record)
		if err != nil {
			return reflect.Value{}, err
		}
		args = append(args, v)
	}

	out := f.ctor.Func.Call(args)
	if f.ctor.ReturnsErr && !out[1].IsNil() {
		return reflect.Value{}, out[1].Interface().(error)
	}
	if ireflect.IsNil(out[0].Interface()) {
		return reflect.Value{}, fmt.Errorf("constructor %s returned nil", f.ctor.Func.Type())
	}
	return out[0], nil
}

// AllocationFactoryBuilder allocates struct pointers with reflect.New. It is
// the last builder of the default chain.
type AllocationFactoryBuilder struct{}

func (AllocationFactoryBuilder) BuildFactory(_ context.Context, _ Lookup, c *Class) (InstanceFactory, error) {
	if c.Type.Kind() != reflect.Ptr || c.Type.Elem().Kind() != reflect.Struct {
		return nil, nil
	}

	var embedded []ireflect.Level
	for _, level := range ireflect.Hierarchy(c.Type) {
		if level.Pointer {
			embedded = append(embedded, level)
		}
	}
	sort.SliceStable(embedded, func(i, j int) bool {
		return len(embedded[i].Index) < len(embedded[j].Index)
	})
	return &allocationFactory{typ: c.Type.Elem(), embedded: embedded}, nil
}

type allocationFactory struct {
	typ      reflect.Type
	embedded []ireflect.Level
}

func (f *allocationFactory) Providers() []Provider {
	return nil
}

// Allocate also fills nil embedded pointers, outermost first, so promoted
// fields and methods of every level are reachable.
func (f *allocationFactory) Allocate(context.Context, func(*Instance)) (reflect.Value, error) {
	rv := reflect.New(f.typ)
	for _, level := range f.embedded {
		field, err := rv.Elem().FieldByIndexErr(level.Index)
		if err != nil || !field.CanSet() || !field.IsNil() {
			continue
		}
		field.Set(reflect.New(level.Type))
	}
	return rv, nil
}

// obtain gets a value from p for a slot of type t. Prototype instances are
// recorded so the owner can destroy them.
func obtain(ctx context.Context, p Provider, t reflect.Type, record func(*Instance)) (reflect.Value, error) {
	inst, err := p.Get(ctx)
	if err != nil {
		return reflect.Value{}, err
	}
	if record != nil && p.Scope() == scope.Prototype {
		record(inst)
	}

	v := inst.Value()
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", rv.Type(), t)
	}
	return rv, nil
}
