package container

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"

	ireflect "github.com/danpasecinic/thimble/internal/reflect"
)

// lazyWrapper is implemented by every Lazy instantiation, zero value
// included, so the resolver can recognize the request type.
type lazyWrapper interface {
	lazyElem() reflect.Type
	lazyBind(p Provider) any
}

// Lazy defers resolution of T to the first call of Get. It is injected in
// place of T wherever early construction is unwanted.
type Lazy[T any] struct {
	state *lazyState
}

type lazyState struct {
	provider Provider
	used     atomic.Bool
}

func (Lazy[T]) lazyElem() reflect.Type {
	return ireflect.TypeOf[T]()
}

func (Lazy[T]) lazyBind(p Provider) any {
	return Lazy[T]{state: &lazyState{provider: p}}
}

// Get asks the inner provider for a value: a new one on every call for
// prototype scope, the shared one for singletons.
func (l Lazy[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if l.state == nil {
		return zero, fmt.Errorf("%w: unbound Lazy[%s]", ErrNotFound, ireflect.TypeKeyOf[T]())
	}
	l.state.used.Store(true)

	inst, err := l.state.provider.Get(ctx)
	if err != nil {
		return zero, err
	}
	if inst.Value() == nil {
		return zero, nil
	}
	v, ok := inst.Value().(T)
	if !ok {
		return zero, fmt.Errorf("%w: %T is not %s", ErrReflectiveFailure, inst.Value(), ireflect.TypeKeyOf[T]())
	}
	return v, nil
}

func (l Lazy[T]) MustGet(ctx context.Context) T {
	v, err := l.Get(ctx)
	if err != nil {
		panic(err)
	}
	return v
}

// Realized reports whether Get was ever called.
func (l Lazy[T]) Realized() bool {
	return l.state != nil && l.state.used.Load()
}

func (l Lazy[T]) Bound() bool {
	return l.state != nil
}

// optionalWrapper is implemented by every Optional instantiation.
type optionalWrapper interface {
	optionalElem() reflect.Type
	optionalOf(v reflect.Value) any
}

// Optional holds a value that may be absent. Injected Optional fields are
// empty instead of failing when nothing satisfies T.
type Optional[T any] struct {
	value   T
	present bool
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{value: value, present: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (Optional[T]) optionalElem() reflect.Type {
	return ireflect.TypeOf[T]()
}

func (Optional[T]) optionalOf(v reflect.Value) any {
	if !v.IsValid() || !v.CanInterface() {
		return None[T]()
	}
	t, ok := v.Interface().(T)
	if !ok {
		return None[T]()
	}
	return Some(t)
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

func (o Optional[T]) Value() T {
	return o.value
}

func (o Optional[T]) Present() bool {
	return o.present
}

func (o Optional[T]) OrElse(defaultValue T) T {
	if o.present {
		return o.value
	}
	return defaultValue
}

func (o Optional[T]) OrElseFunc(fn func() T) T {
	if o.present {
		return o.value
	}
	return fn()
}
