package container

import (
	"reflect"

	"github.com/danpasecinic/thimble/internal/qualifier"
	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/internal/scope"
)

// Binding overrides discovery for one exact key.
type Binding struct {
	Key   Key
	Class *Class
}

// BindingBuilder accumulates a binding until an implementation is named.
type BindingBuilder struct {
	env        *Environment
	typ        reflect.Type
	qualifiers []qualifier.Qualifier
	scope      scope.Scope
	priority   *int
}

func (e *Environment) AddBinding(t reflect.Type) *BindingBuilder {
	return &BindingBuilder{env: e, typ: t}
}

func (b *BindingBuilder) Named(name string) *BindingBuilder {
	b.qualifiers = append(b.qualifiers, qualifier.Named(name))
	return b
}

func (b *BindingBuilder) Qualified(qs ...qualifier.Qualifier) *BindingBuilder {
	b.qualifiers = append(b.qualifiers, qs...)
	return b
}

func (b *BindingBuilder) InScope(s scope.Scope) *BindingBuilder {
	b.scope = s
	return b
}

func (b *BindingBuilder) WithPriority(p int) *BindingBuilder {
	b.priority = &p
	return b
}

// ImplementedBy completes the binding with a concrete type allocated by
// reflection.
func (b *BindingBuilder) ImplementedBy(impl reflect.Type) error {
	return b.complete(impl, nil)
}

// ImplementedByConstructor completes the binding with a constructor function
// whose parameters are resolved from the environment.
func (b *BindingBuilder) ImplementedByConstructor(fn any) error {
	ctor, err := ireflect.InspectConstructor(fn)
	if err != nil {
		return malformed("%v", err)
	}
	return b.complete(ctor.Out, ctor)
}

func (b *BindingBuilder) complete(impl reflect.Type, ctor *ireflect.Constructor) error {
	if b.typ == nil {
		return malformed("binding without a bound type")
	}
	if impl == nil {
		return malformed("binding for %s without an implementation", ireflect.TypeKey(b.typ))
	}
	if !ireflect.Assignable(impl, b.typ) {
		return malformed("%s is not assignable to %s", ireflect.TypeKey(impl), ireflect.TypeKey(b.typ))
	}

	qs := qualifier.NewSet(b.qualifiers...)
	class := &Class{
		Type:        impl,
		Qualifiers:  qs,
		Scope:       b.scope,
		Priority:    b.priority,
		Constructor: ctor,
	}
	if err := class.Validate(); err != nil {
		return err
	}

	return b.env.addBinding(&Binding{Key: NewKey(b.typ, qs), Class: class})
}
