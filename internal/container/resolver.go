package container

import (
	"context"
	"reflect"

	ireflect "github.com/danpasecinic/thimble/internal/reflect"
)

// Resolver is a fallback consulted when no class satisfies a request. A nil
// provider with a nil error means the request is not the resolver's to
// answer.
type Resolver interface {
	Find(ctx context.Context, l Lookup, req Request) (Provider, error)
}

func defaultResolvers() []Resolver {
	return []Resolver{LazyResolver{}, OptionalResolver{}}
}

// zeroOf returns the zero value of a struct type. Wrappers are structs with
// value receivers, so other kinds never match.
func zeroOf(t reflect.Type) any {
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	return reflect.Zero(t).Interface()
}

// LazyResolver answers Lazy[T] with a fixed Lazy bound to T's provider. T
// itself is not created until the Lazy is used.
type LazyResolver struct{}

func (LazyResolver) Find(ctx context.Context, l Lookup, req Request) (Provider, error) {
	w, ok := zeroOf(req.Type).(lazyWrapper)
	if !ok {
		return nil, nil
	}

	elem := w.lazyElem()
	inner, err := l.Provider(ctx, Request{Type: elem, Generic: elem, Qualifiers: req.Qualifiers})
	if err != nil {
		return nil, err
	}
	return NewFixedProvider(req.Key(), req.Type, w.lazyBind(inner)), nil
}

// OptionalResolver answers Optional[T] with the value of T, or an empty
// Optional when T has no implementation. Basic types fall back to their
// pointer counterpart and back before giving up.
type OptionalResolver struct{}

func (OptionalResolver) Find(ctx context.Context, l Lookup, req Request) (Provider, error) {
	w, ok := zeroOf(req.Type).(optionalWrapper)
	if !ok {
		return nil, nil
	}

	v, err := optionalValue(ctx, l, w.optionalElem(), req)
	if err != nil {
		return nil, err
	}
	return NewFixedProvider(req.Key(), req.Type, w.optionalOf(v)), nil
}

func optionalValue(ctx context.Context, l Lookup, elem reflect.Type, req Request) (reflect.Value, error) {
	direct := Request{Type: elem, Generic: elem, Qualifiers: req.Qualifiers}
	v, err := valueOf(ctx, l, direct)
	if err == nil {
		return v, nil
	}
	if !notFoundFor(err, direct) {
		return reflect.Value{}, err
	}

	counterpart, ok := ireflect.Counterpart(elem)
	if !ok {
		return reflect.Value{}, nil
	}
	boxed := Request{Type: counterpart, Generic: counterpart, Qualifiers: req.Qualifiers}
	cv, err := valueOf(ctx, l, boxed)
	if err != nil {
		if notFoundFor(err, boxed) {
			return reflect.Value{}, nil
		}
		return reflect.Value{}, err
	}
	if !cv.IsValid() {
		return cv, nil
	}

	if counterpart.Kind() == reflect.Ptr {
		if cv.IsNil() {
			return reflect.Value{}, nil
		}
		return cv.Elem(), nil
	}
	ptr := reflect.New(counterpart)
	ptr.Elem().Set(cv)
	return ptr, nil
}

func valueOf(ctx context.Context, l Lookup, req Request) (reflect.Value, error) {
	p, err := l.Provider(ctx, req)
	if err != nil {
		return reflect.Value{}, err
	}
	inst, err := p.Get(ctx)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(inst.Value()), nil
}
