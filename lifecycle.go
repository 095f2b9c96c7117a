package thimble

import (
	"context"
	"errors"
)

type Hook func(ctx context.Context) error

// Extension is a plugin started before eager registrations are realized and
// stopped before any instance is destroyed. Extensions implementing
// Prioritized run in ascending priority order and stop in reverse.
type Extension interface {
	Name() string
	Start(ctx context.Context, e *Environment) error
	Stop(ctx context.Context, e *Environment) error
}

type Prioritized interface {
	Priority() int
}

// Lifecycle is an Extension assembled from hooks.
type Lifecycle struct {
	name     string
	priority int
	onStart  []Hook
	onStop   []Hook
}

func NewLifecycle(name string) *Lifecycle {
	return &Lifecycle{name: name}
}

func (l *Lifecycle) Append(other *Lifecycle) {
	if other == nil {
		return
	}
	l.onStart = append(l.onStart, other.onStart...)
	l.onStop = append(l.onStop, other.onStop...)
}

func (l *Lifecycle) OnStart(hook Hook) *Lifecycle {
	l.onStart = append(l.onStart, hook)
	return l
}

func (l *Lifecycle) OnStop(hook Hook) *Lifecycle {
	l.onStop = append(l.onStop, hook)
	return l
}

func (l *Lifecycle) WithPriority(priority int) *Lifecycle {
	l.priority = priority
	return l
}

func (l *Lifecycle) Name() string {
	return l.name
}

func (l *Lifecycle) Priority() int {
	return l.priority
}

// Start runs the start hooks in order and stops at the first failure.
func (l *Lifecycle) Start(ctx context.Context, _ *Environment) error {
	for _, hook := range l.onStart {
		if err := hook(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop runs every stop hook, last registered first.
func (l *Lifecycle) Stop(ctx context.Context, _ *Environment) error {
	var errs []error
	for i := len(l.onStop) - 1; i >= 0; i-- {
		if err := l.onStop[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type extensionAdapter struct {
	env *Environment
	ext Extension
}

func adaptExtension(env *Environment, ext Extension) *extensionAdapter {
	return &extensionAdapter{env: env, ext: ext}
}

func (a *extensionAdapter) Name() string {
	return a.ext.Name()
}

func (a *extensionAdapter) Priority() int {
	if p, ok := a.ext.(Prioritized); ok {
		return p.Priority()
	}
	return 0
}

func (a *extensionAdapter) Start(ctx context.Context) error {
	return a.ext.Start(ctx, a.env)
}

func (a *extensionAdapter) Stop(ctx context.Context) error {
	return a.ext.Stop(ctx, a.env)
}
