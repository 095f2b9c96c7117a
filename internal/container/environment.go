package container

import (
	"context"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/danpasecinic/thimble/internal/graph"
	"github.com/danpasecinic/thimble/internal/qualifier"
	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/internal/scope"
)

type State int

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type (
	ResolveHook   func(key string, duration time.Duration, err error)
	ProvideHook   func(key string)
	LifecycleHook func(name string, duration time.Duration, err error)
)

// Decorator wraps every provider the environment creates.
type Decorator func(Provider) Provider

type Config struct {
	Logger         *slog.Logger
	Unsealed       bool
	PriorityLookup PriorityLookup
	EagerLookup    func(reflect.Type) bool
	Extensions     []Extension
	OnResolve      []ResolveHook
	OnProvide      []ProvideHook
	OnStart        []LifecycleHook
	OnStop         []LifecycleHook
}

// Environment owns the registry, the provider cache, the named index, and
// every pluggable part of resolution.
//
// The provider cache is read without locking. Everything else is guarded by
// mu, which is only taken on a cache miss or a mutation and never held while
// a provider creates an instance.
type Environment struct {
	mu         sync.Mutex
	registry   *Registry
	providers  sync.Map
	names      sync.Map
	resolvers  []Resolver
	scopes     map[scope.Scope]ScopeStrategy
	decorators []Decorator
	values     map[reflect.Type][]ValueDecorator
	factories  []FactoryBuilder
	injections []InjectionPointBuilder
	extensions []Extension
	started    []Extension
	eagerKeys  []Key
	graph      *graph.Graph
	logger     *slog.Logger
	unsealed   bool
	priority   PriorityLookup
	eager      func(reflect.Type) bool
	state      State

	onResolve []ResolveHook
	onProvide []ProvideHook
	onStart   []LifecycleHook
	onStop    []LifecycleHook
}

func New(cfg *Config) *Environment {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	extensions := make([]Extension, len(cfg.Extensions))
	copy(extensions, cfg.Extensions)
	sort.SliceStable(extensions, func(i, j int) bool {
		return extensionPriority(extensions[i]) < extensionPriority(extensions[j])
	})

	return &Environment{
		registry:   NewRegistry(),
		resolvers:  defaultResolvers(),
		scopes:     defaultStrategies(),
		values:     make(map[reflect.Type][]ValueDecorator),
		factories:  []FactoryBuilder{ConstructorFactoryBuilder{}, AllocationFactoryBuilder{}},
		injections: []InjectionPointBuilder{TagInjectionPointBuilder{}},
		extensions: extensions,
		graph:      graph.New(),
		logger:     logger,
		unsealed:   cfg.Unsealed,
		priority:   cfg.PriorityLookup,
		eager:      cfg.EagerLookup,
		onResolve:  cfg.OnResolve,
		onProvide:  cfg.OnProvide,
		onStart:    cfg.OnStart,
		onStop:     cfg.OnStop,
	}
}

func (e *Environment) Logger() *slog.Logger {
	return e.logger
}

func (e *Environment) AddClasses(classes ...*Class) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.registry.Add(classes...); err != nil {
		return err
	}
	e.forgetAbsentNames()
	for _, c := range classes {
		e.logger.Debug("registered class", "class", c.String(), "scope", c.Scope.Or(scope.Default).String())
	}
	return nil
}

func (e *Environment) addBinding(b *Binding) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.registry.Bind(b)
	e.providers.Delete(b.Key.ID())
	e.forgetAbsentNames()
	e.logger.Debug("registered binding", "key", b.Key.String(), "class", b.Class.String())
	return nil
}

// AddProvider registers a factory function for key. The provider is created
// through the scope strategy like any resolved class, bypassing reflection.
func (e *Environment) AddProvider(key Key, s scope.Scope, fn func(ctx context.Context) (any, error)) (Provider, error) {
	if key.Type() == nil {
		return nil, malformed("provider without a type")
	}
	if fn == nil {
		return nil, malformed("nil provider function for %s", key)
	}
	for _, q := range key.Qualifiers().Items() {
		if q.IsZero() {
			return nil, malformed("zero qualifier on %s", key)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	class := &Class{Type: key.Type(), Qualifiers: key.Qualifiers(), Scope: s}
	spec := ProviderSpec{
		Key:     key,
		Type:    key.Type(),
		Generic: key.Type(),
		Class:   class,
		Source:  SuppliedSource{Fn: fn},
	}
	p, err := e.buildProviderLocked(spec)
	if err != nil {
		return nil, err
	}

	e.providers.Store(key.ID(), p)
	e.indexNameLocked(key, key)
	e.forgetAbsentNames()
	e.graph.AddNode(key.ID(), key.String(), nil)
	e.notifyProvide(key)
	return p, nil
}

// MarkEager makes Start realize whatever is cached under key, after the
// eager classes.
func (e *Environment) MarkEager(key Key) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eagerKeys = append(e.eagerKeys, key)
}

func (e *Environment) AddResolver(r Resolver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resolvers = append(e.resolvers, r)
}

func (e *Environment) AddScopeStrategy(s scope.Scope, strategy ScopeStrategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scopes[s] = strategy
}

func (e *Environment) AddInjectionPointBuilder(b InjectionPointBuilder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.injections = append(e.injections, b)
}

// AddFactoryBuilder puts b ahead of the built-in construction strategies.
func (e *Environment) AddFactoryBuilder(b FactoryBuilder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.factories = append([]FactoryBuilder{b}, e.factories...)
}

func (e *Environment) AddDecorator(d Decorator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.decorators = append(e.decorators, d)
}

// AddValueDecorator replaces every value created for class type t. It applies
// to providers built after the call.
func (e *Environment) AddValueDecorator(t reflect.Type, d ValueDecorator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[t] = append(e.values[t], d)
}

// Inject fills the tagged fields and runs the Inject methods of an existing
// struct pointer without registering it.
func (e *Environment) Inject(ctx context.Context, value any) error {
	if ireflect.IsNil(value) {
		return malformed("cannot inject into a nil value")
	}
	t := reflect.TypeOf(value)
	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return malformed("cannot inject into %s, want a struct pointer", ireflect.TypeKey(t))
	}

	inst := NewInstance(value, NewKey(t, qualifier.Empty()), nil)
	_, err := e.injectValue(ctx, inst, inst.Key())
	return err
}

// Put registers an existing value for t and injects its tagged fields and
// Inject methods right away.
func (e *Environment) Put(ctx context.Context, value any, t reflect.Type, qs qualifier.Set) (Provider, error) {
	if ireflect.IsNil(value) {
		return nil, malformed("cannot put a nil value")
	}
	if t == nil {
		t = reflect.TypeOf(value)
	}
	if !ireflect.Assignable(reflect.TypeOf(value), t) {
		return nil, malformed("%T is not assignable to %s", value, ireflect.TypeKey(t))
	}

	key := NewKey(t, qs)
	classKey := NewKey(reflect.TypeOf(value), qs)
	p := NewFixedProvider(key, t, value)

	deps, err := e.injectValue(ctx, p.instance, classKey)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	old, _ := e.providers.Load(key.ID())
	e.providers.Store(key.ID(), p)
	if classKey.ID() != key.ID() {
		e.providers.LoadOrStore(classKey.ID(), p)
	}
	e.indexNameLocked(key, key)
	e.forgetAbsentNames()
	e.mu.Unlock()

	if old != nil && !sameProvider(old.(Provider), p) {
		if err := old.(Provider).Stop(); err != nil {
			e.logger.Warn("stopping replaced provider failed", "key", key.String(), "error", err)
		}
	}

	e.graph.AddNode(key.ID(), key.String(), deps)
	e.notifyProvide(key)
	e.logger.Debug("put value", "key", key.String(), "type", ireflect.TypeKeyFromValue(value))
	return p, nil
}

func (e *Environment) injectValue(ctx context.Context, inst *Instance, classKey Key) ([]string, error) {
	rv := reflect.ValueOf(inst.Value())
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return nil, nil
	}

	e.mu.Lock()
	builders := append([]InjectionPointBuilder(nil), e.injections...)
	e.mu.Unlock()

	class := &Class{Type: rv.Type(), Qualifiers: classKey.Qualifiers()}
	var deps []string
	for _, b := range builders {
		points, err := b.BuildInjectionPoints(ctx, e, class)
		if err != nil {
			return nil, err
		}
		for _, ip := range points {
			if err := ip.Inject(ctx, rv, inst.AddDependent); err != nil {
				return nil, reflective(ip.Target(), err)
			}
			for _, p := range ip.Providers() {
				deps = append(deps, p.Key().ID())
			}
		}
	}
	return deps, nil
}

// Remove forgets the provider cached for t and qualifiers under every key
// that points at it, then stops it.
func (e *Environment) Remove(t reflect.Type, qs qualifier.Set) error {
	key := NewKey(t, qs)

	e.mu.Lock()
	v, ok := e.providers.Load(key.ID())
	if !ok {
		e.mu.Unlock()
		return notFound(Request{Type: t, Generic: t, Qualifiers: qs})
	}
	target := v.(Provider)

	var removed []string
	e.providers.Range(func(k, v any) bool {
		if sameProvider(v.(Provider), target) {
			removed = append(removed, k.(string))
		}
		return true
	})
	for _, id := range removed {
		e.providers.Delete(id)
		e.graph.RemoveNode(id)
	}

	e.names.Range(func(name, k any) bool {
		if k.(Key).IsAbsent() || containsID(removed, k.(Key).ID()) {
			e.names.Delete(name)
		}
		return true
	})
	e.registry.RemoveBinding(key)
	e.mu.Unlock()

	e.logger.Debug("removed provider", "key", key.String(), "aliases", len(removed))
	return target.Stop()
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// sameProvider compares providers by identity, tolerating decorators that
// return non-comparable values.
func sameProvider(a, b Provider) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// forgetAbsentNames drops negative name memos after a registration that may
// have made a name resolvable. Caller holds mu.
func (e *Environment) forgetAbsentNames() {
	e.names.Range(func(name, k any) bool {
		if k.(Key).IsAbsent() {
			e.names.Delete(name)
		}
		return true
	})
}

// indexNameLocked records key under the name carried by named, if any.
func (e *Environment) indexNameLocked(named, key Key) {
	if name, ok := named.Qualifiers().Name(); ok {
		e.names.Store(name, key)
	}
}

func (e *Environment) notifyProvide(key Key) {
	for _, hook := range e.onProvide {
		hook(key.String())
	}
}

func (e *Environment) notifyResolve(key Key, start time.Time, err error) {
	if len(e.onResolve) == 0 {
		return
	}
	d := time.Since(start)
	for _, hook := range e.onResolve {
		hook(key.String(), d, err)
	}
}
