package container

import (
	"context"
	"fmt"
	"reflect"

	ireflect "github.com/danpasecinic/thimble/internal/reflect"
)

// ValueDecorator replaces a freshly created value before its scope caches it.
type ValueDecorator func(ctx context.Context, value any) (any, error)

// decoratedSource runs the value decorators of a class over every instance
// its source creates. Pre-destroy hooks still see the undecorated value.
type decoratedSource struct {
	Source
	target     reflect.Type
	decorators []ValueDecorator
}

func (s *decoratedSource) NewInstance(ctx context.Context, p Provider) (*Instance, error) {
	inst, err := s.Source.NewInstance(ctx, p)
	if err != nil {
		return nil, err
	}

	v := inst.Value()
	for _, d := range s.decorators {
		if v, err = d(ctx, v); err != nil {
			_ = inst.Destroy()
			return nil, reflective("decorating "+p.Key().String(), err)
		}
	}
	if ireflect.IsNil(v) || !ireflect.Assignable(reflect.TypeOf(v), s.target) {
		_ = inst.Destroy()
		return nil, reflective("decorating "+p.Key().String(),
			fmt.Errorf("decorator returned %T, want %s", v, ireflect.TypeKey(s.target)))
	}

	inst.decorate(v)
	return inst, nil
}
