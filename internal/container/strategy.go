package container

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/danpasecinic/thimble/internal/scope"
)

// ScopeStrategy turns a resolved class into a provider for one scope marker.
type ScopeStrategy interface {
	Create(spec ProviderSpec) (Provider, error)
	Decorate(p Provider) Provider
}

type PrototypeStrategy struct{}

func (PrototypeStrategy) Create(spec ProviderSpec) (Provider, error) {
	return NewPrototypeProvider(spec), nil
}

func (PrototypeStrategy) Decorate(p Provider) Provider {
	return p
}

type SingletonStrategy struct{}

func (SingletonStrategy) Create(spec ProviderSpec) (Provider, error) {
	return NewSingletonProvider(spec), nil
}

func (SingletonStrategy) Decorate(p Provider) Provider {
	return p
}

type RequestStrategy struct{}

func (RequestStrategy) Create(spec ProviderSpec) (Provider, error) {
	return &RequestProvider{baseProvider{spec: spec, scope: scope.Request}}, nil
}

func (RequestStrategy) Decorate(p Provider) Provider {
	return p
}

func defaultStrategies() map[scope.Scope]ScopeStrategy {
	return map[scope.Scope]ScopeStrategy{
		scope.Prototype: PrototypeStrategy{},
		scope.Singleton: SingletonStrategy{},
		scope.Request:   RequestStrategy{},
	}
}

type requestScopeKey struct{}

// RequestScope caches one instance per provider for the lifetime of a
// request context.
type RequestScope struct {
	mu        sync.Mutex
	instances map[string]*Instance
	order     []*Instance
	creating  map[string]*sync.Mutex
	released  bool
}

func NewRequestScope() *RequestScope {
	return &RequestScope{
		instances: make(map[string]*Instance),
		creating:  make(map[string]*sync.Mutex),
	}
}

func WithRequestScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestScopeKey{}, NewRequestScope())
}

func RequestScopeFrom(ctx context.Context) *RequestScope {
	if rs, ok := ctx.Value(requestScopeKey{}).(*RequestScope); ok {
		return rs
	}
	return nil
}

// ReleaseRequestScope destroys the request's instances, newest first.
func ReleaseRequestScope(ctx context.Context) error {
	rs := RequestScopeFrom(ctx)
	if rs == nil {
		return nil
	}
	return rs.Release()
}

func (rs *RequestScope) Get(key string) (*Instance, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	inst, ok := rs.instances[key]
	return inst, ok
}

func (rs *RequestScope) Released() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.released
}

func (rs *RequestScope) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.instances)
}

func (rs *RequestScope) lockFor(key string) *sync.Mutex {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	m, ok := rs.creating[key]
	if !ok {
		m = &sync.Mutex{}
		rs.creating[key] = m
	}
	return m
}

func (rs *RequestScope) set(key string, inst *Instance) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.released {
		return fmt.Errorf("%w: request scope already released", ErrScopeNotFound)
	}
	rs.instances[key] = inst
	rs.order = append(rs.order, inst)
	return nil
}

func (rs *RequestScope) Release() error {
	rs.mu.Lock()
	order := rs.order
	rs.order = nil
	rs.instances = make(map[string]*Instance)
	rs.released = true
	rs.mu.Unlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		if err := order[i].Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RequestProvider keeps one instance per request scope found in the context.
type RequestProvider struct {
	baseProvider
}

func (p *RequestProvider) Get(ctx context.Context) (*Instance, error) {
	rs := RequestScopeFrom(ctx)
	if rs == nil {
		return nil, fmt.Errorf("%w: no request scope in context for %s; use WithRequestScope(ctx)", ErrScopeNotFound, p.Key())
	}
	if rs.Released() {
		return nil, fmt.Errorf("%w: request scope already released", ErrScopeNotFound)
	}

	id := p.Key().ID()
	if inst, ok := rs.Get(id); ok {
		return inst, nil
	}

	if err := checkCreation(ctx, p.ResolvedType()); err != nil {
		return nil, err
	}
	if err := checkDependencyCycle(ctx, p); err != nil {
		return nil, err
	}

	m := rs.lockFor(id)
	m.Lock()
	defer m.Unlock()

	if inst, ok := rs.Get(id); ok {
		return inst, nil
	}

	inst, err := p.Create(ctx)
	if err != nil {
		return nil, err
	}
	if err := rs.set(id, inst); err != nil {
		return nil, errors.Join(err, inst.Destroy())
	}
	return inst, nil
}

func (p *RequestProvider) Create(ctx context.Context) (*Instance, error) {
	return p.spec.Source.NewInstance(ctx, p)
}

func (p *RequestProvider) Stop() error {
	return nil
}
