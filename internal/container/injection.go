package container

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/danpasecinic/thimble/internal/qualifier"
	ireflect "github.com/danpasecinic/thimble/internal/reflect"
)

const (
	injectTag    = "inject"
	qualifierTag = "qualifier"
)

// InjectionPoint is a field or method that receives resolved values after
// allocation.
type InjectionPoint interface {
	Target() string
	Providers() []Provider
	Inject(ctx context.Context, target reflect.Value, record func(*Instance)) error
}

// InjectionPointBuilder discovers injection points for a class. Every builder
// of the chain contributes; the default builder runs first.
type InjectionPointBuilder interface {
	BuildInjectionPoints(ctx context.Context, l Lookup, c *Class) ([]InjectionPoint, error)
}

type FieldPoint struct {
	Owner    reflect.Type
	Field    reflect.StructField
	Provider Provider
}

func (f *FieldPoint) Target() string {
	return fmt.Sprintf("%s.%s", ireflect.TypeKey(f.Owner), f.Field.Name)
}

func (f *FieldPoint) Providers() []Provider {
	return []Provider{f.Provider}
}

func (f *FieldPoint) Inject(ctx context.Context, target reflect.Value, record func(*Instance)) error {
	field, err := reflect.Indirect(target).FieldByIndexErr(f.Field.Index)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("field %s is not settable", f.Field.Name)
	}

	v, err := obtain(ctx, f.Provider, f.Field.Type, record)
	if err != nil {
		return err
	}
	field.Set(v)
	return nil
}

type MethodPoint struct {
	Owner      reflect.Type
	Method     reflect.Method
	Params     []reflect.Type
	Slots      []Provider
	ReturnsErr bool
}

func (m *MethodPoint) Target() string {
	return fmt.Sprintf("%s.%s", ireflect.TypeKey(m.Owner), m.Method.Name)
}

func (m *MethodPoint) Providers() []Provider {
	var out []Provider
	for _, p := range m.Slots {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (m *MethodPoint) Inject(ctx context.Context, target reflect.Value, record func(*Instance)) error {
	method := target.MethodByName(m.Method.Name)
	if !method.IsValid() {
		return fmt.Errorf("method %s not found on %s", m.Method.Name, target.Type())
	}

	args := make([]reflect.Value, len(m.Params))
	for i, param := range m.Params {
		if m.Slots[i] == nil {
			args[i] = reflect.ValueOf(&ctx).Elem()
			continue
		}
		v, err := obtain(ctx, m.Slots[i], param, record)
		if err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = v
	}

	out := method.Call(args)
	if m.ReturnsErr && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

// TagInjectionPointBuilder discovers fields tagged `inject` or `qualifier`
// and methods named Inject*, base level first. A method shadowed by an outer
// level is injected once, through the outermost declaration.
type TagInjectionPointBuilder struct{}

func (TagInjectionPointBuilder) BuildInjectionPoints(ctx context.Context, l Lookup, c *Class) ([]InjectionPoint, error) {
	if c.Type.Kind() != reflect.Ptr {
		return nil, nil
	}
	levels := ireflect.Hierarchy(c.Type)
	if len(levels) == 0 {
		return nil, nil
	}
	methods := ireflect.MethodsWithPrefix(c.Type, injectPrefix)

	var points []InjectionPoint
	for i, level := range levels {
		for _, f := range level.DeclaredFields() {
			name, injected := f.Tag.Lookup(injectTag)
			qtag, qualified := f.Tag.Lookup(qualifierTag)
			if !injected && !qualified {
				continue
			}
			if !f.IsExported() {
				return nil, malformed("injected field %s.%s must be exported", ireflect.TypeKey(level.Type), f.Name)
			}

			qs, err := fieldQualifiers(name, qtag)
			if err != nil {
				return nil, malformed("field %s.%s: %v", ireflect.TypeKey(level.Type), f.Name, err)
			}

			p, err := l.Provider(ctx, Request{Type: f.Type, Generic: f.Type, Qualifiers: qs})
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", ireflect.TypeKey(level.Type), f.Name, err)
			}
			points = append(points, &FieldPoint{Owner: c.Type, Field: f, Provider: p})
		}

		for _, m := range methods {
			if m.Level != i {
				continue
			}
			point, err := methodPoint(ctx, l, c.Type, m.Method)
			if err != nil {
				return nil, err
			}
			points = append(points, point)
		}
	}
	return points, nil
}

func methodPoint(ctx context.Context, l Lookup, owner reflect.Type, m reflect.Method) (*MethodPoint, error) {
	params, returnsErr, err := ireflect.InjectorParams(m)
	if err != nil {
		return nil, malformed("%s: %v", ireflect.TypeKey(owner), err)
	}

	slots := make([]Provider, len(params))
	for i, param := range params {
		if ireflect.IsContext(param) {
			continue
		}
		p, err := l.Provider(ctx, RequestFor(param))
		if err != nil {
			return nil, fmt.Errorf("method %s.%s argument %d: %w", ireflect.TypeKey(owner), m.Name, i, err)
		}
		slots[i] = p
	}
	return &MethodPoint{Owner: owner, Method: m, Params: params, Slots: slots, ReturnsErr: returnsErr}, nil
}

// fieldQualifiers reads `inject:"name"` and `qualifier:"@kind(a=1) ..."`.
func fieldQualifiers(name, qtag string) (qualifier.Set, error) {
	var qs []qualifier.Qualifier
	if name = strings.TrimSpace(name); name != "" {
		qs = append(qs, qualifier.Named(name))
	}
	parsed, err := qualifier.Parse(qtag)
	if err != nil {
		return qualifier.Set{}, err
	}
	return qualifier.NewSet(append(qs, parsed...)...), nil
}
