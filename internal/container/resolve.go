package container

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/danpasecinic/thimble/internal/qualifier"
	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/internal/scope"
)

func (e *Environment) cached(key Key) (Provider, bool) {
	v, ok := e.providers.Load(key.ID())
	if !ok {
		return nil, false
	}
	return v.(Provider), true
}

// Get resolves req and returns the value of the provider's instance.
func (e *Environment) Get(ctx context.Context, req Request) (any, error) {
	inst, err := e.GetInstance(ctx, req)
	if err != nil {
		return nil, err
	}
	return inst.Value(), nil
}

func (e *Environment) GetInstance(ctx context.Context, req Request) (*Instance, error) {
	start := time.Now()

	p, err := e.Provider(ctx, req)
	if err != nil {
		e.notifyResolve(req.Key(), start, err)
		return nil, err
	}

	inst, err := p.Get(ctx)
	e.notifyResolve(req.Key(), start, err)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// GetProvider resolves req without creating an instance.
func (e *Environment) GetProvider(req Request) (Provider, error) {
	return e.Provider(context.Background(), req)
}

// Provider returns the cached provider for req, resolving and caching it on
// the first request.
func (e *Environment) Provider(ctx context.Context, req Request) (Provider, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	key := req.Key()
	if p, ok := e.cached(key); ok {
		return p, nil
	}

	e.mu.Lock()
	if p, ok := e.cached(key); ok {
		e.mu.Unlock()
		return p, nil
	}

	class, err := e.selectClassLocked(req)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if class != nil {
		p, created, err := e.providerForClassLocked(req, class)
		e.mu.Unlock()
		if err != nil {
			return nil, err
		}
		if created {
			e.notifyProvide(p.Key())
		}
		return p, nil
	}

	resolvers := slices.Clone(e.resolvers)
	e.mu.Unlock()

	for _, r := range resolvers {
		p, err := r.Find(ctx, e, req)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return e.storeResolved(req, p), nil
		}
	}
	return nil, notFound(req)
}

// storeResolved caches a resolver's answer unless a concurrent resolution
// got there first.
func (e *Environment) storeResolved(req Request, p Provider) Provider {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := req.Key()
	if existing, ok := e.cached(key); ok {
		return existing
	}

	p = e.decorateLocked(p)
	e.providers.Store(key.ID(), p)
	e.graph.AddNode(p.Key().ID(), p.Key().String(), nil)
	e.logger.Debug("resolver answered", "key", key.String())
	return p
}

// selectClassLocked picks the class that satisfies req, or nil when only
// the resolver chain can help.
func (e *Environment) selectClassLocked(req Request) (*Class, error) {
	if b, ok := e.registry.Binding(req.bindingKey()); ok {
		if req.exact() || ireflect.GenericAssignable(b.Class.Type, req.Generic) {
			return b.Class, nil
		}
	}

	var match *Class
	for _, c := range e.registry.classes {
		if !candidateMatches(c, req) {
			continue
		}
		switch {
		case match == nil:
			match = c
		case match.Type == c.Type:
		case match.Type == req.Type:
		case c.Type == req.Type:
			match = c
		default:
			return nil, &AmbiguityError{Request: req, First: match.Type, Second: c.Type}
		}
	}
	if match != nil {
		return match, nil
	}

	if e.unsealed && req.exact() && req.Qualifiers.IsEmpty() && ireflect.IsConcrete(req.Type) {
		c := &Class{Type: req.Type}
		if c.Validate() == nil {
			return c, nil
		}
	}
	return nil, nil
}

func candidateMatches(c *Class, req Request) bool {
	if !ireflect.Assignable(c.Type, req.Type) {
		return false
	}
	if !qualifier.Match(c.Qualifiers, req.Qualifiers) {
		return false
	}
	if !req.exact() && !ireflect.GenericAssignable(c.Type, req.Generic) {
		return false
	}
	return true
}

// providerForClassLocked reuses the provider already built for class, or
// builds one, and caches it under every key the request implies.
func (e *Environment) providerForClassLocked(req Request, class *Class) (Provider, bool, error) {
	classKey := class.Key()
	p, ok := e.cached(classKey)
	created := false

	if !ok {
		builder := NewInstanceBuilder(e, class, slices.Clone(e.factories), slices.Clone(e.injections))
		spec := ProviderSpec{
			Key:     req.Key(),
			Type:    req.Type,
			Generic: req.generic(),
			Class:   class,
			Source:  builder,
		}

		var err error
		p, err = e.buildProviderLocked(spec)
		if err != nil {
			return nil, false, err
		}

		id, label := p.Key().ID(), class.String()
		builder.onBuilt = func(meta *MetaData) {
			var deps []string
			for _, dep := range meta.Dependencies() {
				deps = append(deps, dep.Key().ID())
			}
			e.graph.AddNode(id, label, deps)
		}
		e.graph.AddNode(id, label, nil)
		e.providers.Store(classKey.ID(), p)
		created = true

		e.logger.Debug("created provider",
			"key", req.Key().String(),
			"class", class.String(),
			"scope", class.Scope.Or(scope.Default).String(),
		)
	}

	e.providers.Store(req.Key().ID(), p)

	if name, ok := class.Qualifiers.Name(); ok {
		e.providers.LoadOrStore(req.Key().WithQualifier(qualifier.Named(name)).ID(), p)

		stripped := req.withQualifiers(req.Qualifiers.WithoutKind(qualifier.NamedKind))
		if stripped.Key().ID() != req.Key().ID() {
			if c, err := e.selectClassLocked(stripped); err == nil && c == class {
				e.providers.LoadOrStore(stripped.Key().ID(), p)
			}
		}
		e.names.Store(name, classKey)
	}
	return p, created, nil
}

func (e *Environment) buildProviderLocked(spec ProviderSpec) (Provider, error) {
	s := spec.Class.Scope.Or(scope.Default)
	strategy, ok := e.scopes[s]
	if !ok {
		return nil, fmt.Errorf("%w: %q for %s", ErrScopeNotFound, s, spec.Class)
	}
	if ds := e.values[spec.Class.Type]; len(ds) > 0 {
		spec.Source = &decoratedSource{Source: spec.Source, target: spec.Class.Type, decorators: slices.Clone(ds)}
	}

	p, err := strategy.Create(spec)
	if err != nil {
		return nil, err
	}
	return e.decorateLocked(strategy.Decorate(p)), nil
}

func (e *Environment) decorateLocked(p Provider) Provider {
	for _, d := range e.decorators {
		if wrapped := d(p); wrapped != nil {
			p = wrapped
		}
	}
	return p
}

// Find resolves the provider registered under a name, through a named
// qualifier on a class or a binding.
func (e *Environment) Find(ctx context.Context, name string) (any, error) {
	p, err := e.FindProvider(ctx, name)
	if err != nil {
		return nil, err
	}
	inst, err := p.Get(ctx)
	if err != nil {
		return nil, err
	}
	return inst.Value(), nil
}

func (e *Environment) FindProvider(ctx context.Context, name string) (Provider, error) {
	if p, ok, err := e.namedProvider(name); ok || err != nil {
		return p, err
	}

	e.mu.Lock()
	if p, ok, err := e.namedProvider(name); ok || err != nil {
		e.mu.Unlock()
		return p, err
	}
	req, ok := e.registry.Named(name)
	if !ok {
		e.names.Store(name, absentKey)
		e.mu.Unlock()
		return nil, nameNotFound(name)
	}
	e.mu.Unlock()

	p, err := e.Provider(ctx, req)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.names.Store(name, req.Key())
	e.mu.Unlock()
	return p, nil
}

// namedProvider consults the name index. ok is false on a miss that needs the
// registry.
func (e *Environment) namedProvider(name string) (Provider, bool, error) {
	v, ok := e.names.Load(name)
	if !ok {
		return nil, false, nil
	}
	key := v.(Key)
	if key.IsAbsent() {
		return nil, false, nameNotFound(name)
	}
	p, ok := e.cached(key)
	return p, ok, nil
}

func nameNotFound(name string) error {
	return notFound(Request{Qualifiers: qualifier.NewSet(qualifier.Named(name))})
}

// FindSupplier returns an accessor that resolves req on every call and
// reports false instead of failing.
func (e *Environment) FindSupplier(ctx context.Context, req Request) func() (any, bool) {
	return func() (any, bool) {
		v, err := e.Get(ctx, req)
		if err != nil {
			return nil, false
		}
		return v, true
	}
}
