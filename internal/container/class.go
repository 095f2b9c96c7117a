package container

import (
	"reflect"

	"github.com/danpasecinic/thimble/internal/qualifier"
	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/internal/scope"
)

// Class is a concrete type eligible for discovery, together with the
// registration-time attributes that annotations would carry.
type Class struct {
	Type        reflect.Type
	Qualifiers  qualifier.Set
	Scope       scope.Scope
	Priority    *int
	Constructor *ireflect.Constructor
	Eager       bool
}

func (c *Class) Key() Key {
	return NewKey(c.Type, c.Qualifiers)
}

func (c *Class) String() string {
	return c.Key().String()
}

// Validate rejects what can never be instantiated or matched.
func (c *Class) Validate() error {
	if c == nil || c.Type == nil {
		return malformed("class without a type")
	}
	if !ireflect.IsConcrete(c.Type) {
		return malformed("%s is an interface and cannot be a candidate", ireflect.TypeKey(c.Type))
	}
	for _, q := range c.Qualifiers.Items() {
		if q.IsZero() {
			return malformed("zero qualifier on %s", ireflect.TypeKey(c.Type))
		}
	}
	if c.Constructor != nil && !ireflect.Assignable(c.Constructor.Out, c.Type) {
		return malformed("constructor returns %s, not assignable to %s",
			ireflect.TypeKey(c.Constructor.Out), ireflect.TypeKey(c.Type))
	}
	if c.Constructor == nil {
		if _, ok := ireflect.StructOf(c.Type); !ok || c.Type.Kind() != reflect.Ptr {
			return malformed("%s needs a constructor: only struct pointers are allocated", ireflect.TypeKey(c.Type))
		}
	}
	return nil
}

// PriorityLookup supplies a priority for classes that declare none.
type PriorityLookup func(reflect.Type) int

func (c *Class) priority(lookup PriorityLookup) int {
	if c.Priority != nil {
		return *c.Priority
	}
	if lookup != nil {
		return lookup(c.Type)
	}
	return 0
}
