package container

import (
	"reflect"

	"github.com/danpasecinic/thimble/internal/qualifier"
	ireflect "github.com/danpasecinic/thimble/internal/reflect"
)

// Key identifies a cached provider: a declared type plus a canonical
// qualifier set. A key built for a generic request also carries the raw
// requested type when it differs. Keys are comparable by ID.
type Key struct {
	raw        reflect.Type
	typ        reflect.Type
	qualifiers qualifier.Set
	id         string
}

// absentKey memoizes a name that resolved to nothing.
var absentKey = Key{id: "<absent>"}

func NewKey(t reflect.Type, qs qualifier.Set) Key {
	return newKey(t, t, qs)
}

func newKey(raw, t reflect.Type, qs qualifier.Set) Key {
	id := ireflect.TypeKey(t)
	if raw != nil && raw != t {
		id = ireflect.TypeKey(raw) + "|" + id
	}
	if !qs.IsEmpty() {
		id += " " + qs.String()
	}
	return Key{raw: raw, typ: t, qualifiers: qs, id: id}
}

func (k Key) Type() reflect.Type {
	return k.typ
}

// Raw returns the requested type the key was narrowed from.
func (k Key) Raw() reflect.Type {
	return k.raw
}

func (k Key) Qualifiers() qualifier.Set {
	return k.qualifiers
}

func (k Key) ID() string {
	return k.id
}

func (k Key) String() string {
	return k.id
}

func (k Key) IsAbsent() bool {
	return k.id == absentKey.id
}

func (k Key) WithQualifier(q qualifier.Qualifier) Key {
	return newKey(k.raw, k.typ, k.qualifiers.With(q))
}

func (k Key) WithoutKind(kind string) Key {
	return newKey(k.raw, k.typ, k.qualifiers.WithoutKind(kind))
}

// Request is one call to the resolution algorithm. Generic narrows Type to a
// specific instantiation; it defaults to Type.
type Request struct {
	Type       reflect.Type
	Generic    reflect.Type
	Qualifiers qualifier.Set
}

func RequestFor(t reflect.Type, qs ...qualifier.Qualifier) Request {
	return Request{Type: t, Generic: t, Qualifiers: qualifier.NewSet(qs...)}
}

func (r Request) generic() reflect.Type {
	if r.Generic == nil {
		return r.Type
	}
	return r.Generic
}

// exact reports whether the request asks for its raw type only.
func (r Request) exact() bool {
	return r.Generic == nil || r.Generic == r.Type
}

func (r Request) Key() Key {
	return newKey(r.Type, r.generic(), r.Qualifiers)
}

// bindingKey is the key a binding for the raw requested type is stored under.
func (r Request) bindingKey() Key {
	return NewKey(r.Type, r.Qualifiers)
}

func (r Request) withQualifiers(qs qualifier.Set) Request {
	r.Qualifiers = qs
	return r
}

func (r Request) String() string {
	return r.Key().String()
}

func (r Request) validate() error {
	if r.Type == nil {
		return malformed("request without a type")
	}
	for _, q := range r.Qualifiers.Items() {
		if q.IsZero() {
			return malformed("zero qualifier in request for %s", ireflect.TypeKey(r.Type))
		}
	}
	return nil
}
