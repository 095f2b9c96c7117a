package reflect

import (
	"fmt"
	"reflect"
)

// Constructor describes a constructor function of the form
// func([ctx,] deps...) T or func([ctx,] deps...) (T, error).
type Constructor struct {
	Func       reflect.Value
	Params     []reflect.Type
	Out        reflect.Type
	TakesCtx   bool
	ReturnsErr bool
}

func InspectConstructor(fn any) (*Constructor, error) {
	if fn == nil {
		return nil, fmt.Errorf("constructor is nil")
	}

	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %s", t)
	}
	if t.IsVariadic() {
		return nil, fmt.Errorf("constructor %s must not be variadic", t)
	}
	if t.NumOut() == 0 || t.NumOut() > 2 {
		return nil, fmt.Errorf("constructor %s must return (T) or (T, error)", t)
	}
	if t.NumOut() == 2 && !IsError(t.Out(1)) {
		return nil, fmt.Errorf("second return value of %s must be error", t)
	}

	c := &Constructor{
		Func:       v,
		Out:        t.Out(0),
		ReturnsErr: t.NumOut() == 2,
	}

	start := 0
	if t.NumIn() > 0 && IsContext(t.In(0)) {
		c.TakesCtx = true
		start = 1
	}
	for i := start; i < t.NumIn(); i++ {
		c.Params = append(c.Params, t.In(i))
	}
	return c, nil
}

// LifecycleCall describes a hook method accepting func(), func() error or
// func(context.Context) error, receiver excluded.
type LifecycleCall struct {
	TakesCtx   bool
	ReturnsErr bool
}

func InspectLifecycle(m reflect.Method) (LifecycleCall, error) {
	t := m.Type
	in := t.NumIn() - 1
	var c LifecycleCall

	switch {
	case in == 0:
	case in == 1 && IsContext(t.In(1)):
		c.TakesCtx = true
	default:
		return c, fmt.Errorf("lifecycle method %s must take no arguments or a context.Context", m.Name)
	}

	switch {
	case t.NumOut() == 0:
	case t.NumOut() == 1 && IsError(t.Out(0)):
		c.ReturnsErr = true
	default:
		return c, fmt.Errorf("lifecycle method %s may only return error", m.Name)
	}
	return c, nil
}

// InjectorParams returns the parameter types of an injection method, receiver
// excluded, after checking it returns nothing or an error.
func InjectorParams(m reflect.Method) ([]reflect.Type, bool, error) {
	t := m.Type
	returnsErr := false
	switch {
	case t.NumOut() == 0:
	case t.NumOut() == 1 && IsError(t.Out(0)):
		returnsErr = true
	default:
		return nil, false, fmt.Errorf("injection method %s may only return error", m.Name)
	}
	if t.IsVariadic() {
		return nil, false, fmt.Errorf("injection method %s must not be variadic", m.Name)
	}

	params := make([]reflect.Type, 0, t.NumIn()-1)
	for i := 1; i < t.NumIn(); i++ {
		params = append(params, t.In(i))
	}
	return params, returnsErr, nil
}
