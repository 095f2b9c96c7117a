package container

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/danpasecinic/thimble/internal/graph"
)

// Extension is a plugin started and stopped with the environment.
type Extension interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Prioritized orders extensions and classes; lower values run first.
type Prioritized interface {
	Priority() int
}

func extensionPriority(ext Extension) int {
	if p, ok := ext.(Prioritized); ok {
		return p.Priority()
	}
	return 0
}

func (e *Environment) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start sorts the registry by priority, starts extensions in priority order
// and realizes eager classes. An extension failure stops the extensions
// already started.
func (e *Environment) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateNew && e.state != StateStopped {
		e.mu.Unlock()
		return fmt.Errorf("environment already started")
	}
	e.state = StateStarting
	e.registry.SortByPriority(e.priority)
	extensions := e.extensions
	e.mu.Unlock()

	for _, ext := range extensions {
		if err := e.startExtension(ctx, ext); err != nil {
			e.setState(StateNew)
			return errors.Join(err, e.stopExtensions(ctx))
		}
	}

	if err := e.realizeEager(ctx); err != nil {
		e.setState(StateNew)
		return errors.Join(err, e.stopExtensions(ctx))
	}

	e.setState(StateRunning)
	return nil
}

func (e *Environment) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Environment) startExtension(ctx context.Context, ext Extension) error {
	start := time.Now()
	e.logger.Debug("starting extension", "extension", ext.Name())

	err := ext.Start(ctx)
	e.callLifecycleHooks(e.onStart, ext.Name(), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("extension %s: %w", ext.Name(), err)
	}

	e.mu.Lock()
	e.started = append(e.started, ext)
	e.mu.Unlock()
	return nil
}

func (e *Environment) realizeEager(ctx context.Context) error {
	e.mu.Lock()
	classes := e.registry.Classes()
	keys := slices.Clone(e.eagerKeys)
	e.mu.Unlock()

	for _, c := range classes {
		if !c.Eager && (e.eager == nil || !e.eager(c.Type)) {
			continue
		}
		start := time.Now()
		_, err := e.Get(ctx, Request{Type: c.Type, Generic: c.Type, Qualifiers: c.Qualifiers})
		e.callLifecycleHooks(e.onStart, c.String(), time.Since(start), err)
		if err != nil {
			return fmt.Errorf("eager %s: %w", c, err)
		}
	}

	for _, key := range keys {
		p, ok := e.cached(key)
		if !ok {
			continue
		}
		start := time.Now()
		_, err := p.Get(ctx)
		e.callLifecycleHooks(e.onStart, key.String(), time.Since(start), err)
		if err != nil {
			return fmt.Errorf("eager %s: %w", key, err)
		}
	}
	return nil
}

// Stop stops extensions in reverse start order, then every distinct provider,
// dependents before their dependencies. Errors are joined.
func (e *Environment) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateStopping || e.state == StateStopped {
		e.mu.Unlock()
		return nil
	}
	e.state = StateStopping
	e.mu.Unlock()

	errs := []error{e.stopExtensions(ctx)}
	for _, p := range e.shutdownOrder() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("shutdown interrupted: %w", err))
			break
		}

		realized := false
		if peeker, ok := p.(Peeker); ok {
			_, realized = peeker.Peek()
		}

		start := time.Now()
		err := p.Stop()
		if realized || err != nil {
			e.callLifecycleHooks(e.onStop, p.Key().String(), time.Since(start), err)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("stopping %s: %w", p.Key(), err))
		}
	}

	e.setState(StateStopped)
	return errors.Join(errs...)
}

func (e *Environment) stopExtensions(ctx context.Context) error {
	e.mu.Lock()
	started := e.started
	e.started = nil
	e.mu.Unlock()

	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		ext := started[i]
		start := time.Now()
		e.logger.Debug("stopping extension", "extension", ext.Name())

		err := ext.Stop(ctx)
		e.callLifecycleHooks(e.onStop, ext.Name(), time.Since(start), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("extension %s: %w", ext.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// shutdownOrder lists each distinct provider once, dependents first.
// Providers the graph cannot place, or every provider when the graph has a
// cycle, follow in key order.
func (e *Environment) shutdownOrder() []Provider {
	var all []Provider
	e.providers.Range(func(_, v any) bool {
		p := v.(Provider)
		for _, seen := range all {
			if sameProvider(seen, p) {
				return true
			}
		}
		all = append(all, p)
		return true
	})

	order, err := e.graph.ShutdownOrder()
	if err != nil {
		e.logger.Warn("dependency cycle, stopping in key order", "error", err)
		order = nil
	}
	rank := make(map[string]int, len(order))
	for i, id := range order {
		rank[id] = i
	}

	slices.SortStableFunc(all, func(a, b Provider) int {
		ra, okA := rank[a.Key().ID()]
		rb, okB := rank[b.Key().ID()]
		switch {
		case okA && okB && ra != rb:
			return cmp.Compare(ra, rb)
		case okA && !okB:
			return -1
		case okB && !okA:
			return 1
		}
		return strings.Compare(a.Key().ID(), b.Key().ID())
	})
	return all
}

func (e *Environment) callLifecycleHooks(hooks []LifecycleHook, name string, d time.Duration, err error) {
	for _, hook := range hooks {
		hook(name, d, err)
	}
}

// Validate resolves every registered class and its dependencies without
// creating instances, then checks the dependency graph for providers that
// were removed while something still depends on them, and for cycles.
func (e *Environment) Validate(ctx context.Context) error {
	e.mu.Lock()
	classes := e.registry.Classes()
	e.mu.Unlock()

	var errs []error
	for _, c := range classes {
		p, err := e.Provider(ctx, Request{Type: c.Type, Generic: c.Type, Qualifiers: c.Qualifiers})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := p.MetaData(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c, err))
		}
	}

	for _, id := range e.graph.Missing() {
		var users []string
		for _, dependent := range e.graph.Dependents(id) {
			users = append(users, e.graph.Label(dependent))
		}
		errs = append(errs, fmt.Errorf("%w: %s, required by %s", ErrNotFound, id, strings.Join(users, ", ")))
	}

	if e.graph.HasCycle() {
		errs = append(errs, fmt.Errorf("%w: %v", ErrCircularDependency, e.graph.CyclePaths()))
	}
	return errors.Join(errs...)
}

// Graph returns a snapshot of the provider dependency graph.
func (e *Environment) Graph() *graph.Graph {
	return e.graph.Clone()
}

// Realized returns the values of singleton-like providers that already hold
// one, keyed by provider key. Nothing is created.
func (e *Environment) Realized() map[string]any {
	out := make(map[string]any)
	e.providers.Range(func(_, v any) bool {
		p := v.(Provider)
		if peeker, ok := p.(Peeker); ok {
			if value, ok := peeker.Peek(); ok {
				out[p.Key().ID()] = value
			}
		}
		return true
	})
	return out
}

// ProviderByID returns the provider cached under a key ID, as listed by
// Keys or the graph.
func (e *Environment) ProviderByID(id string) (Provider, bool) {
	v, ok := e.providers.Load(id)
	if !ok {
		return nil, false
	}
	return v.(Provider), true
}

// Keys lists the cached provider keys, sorted.
func (e *Environment) Keys() []string {
	var keys []string
	e.providers.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	slices.Sort(keys)
	return keys
}

func (e *Environment) Has(req Request) bool {
	_, err := e.Provider(context.Background(), req)
	return err == nil
}

func (e *Environment) Classes() []*Class {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Classes()
}
