// Package qualifier models the discriminators that, beyond type, decide which
// implementation satisfies a request.
package qualifier

import (
	"sort"
	"strconv"
	"strings"
)

// NamedKind is the kind of the name-equivalent qualifier.
const NamedKind = "named"

const namedAttr = "value"

type Attr struct {
	Name  string
	Value string
}

// Qualifier is a structural descriptor: a kind plus attributes. Two
// qualifiers are equal when their rendered forms are equal.
type Qualifier struct {
	Kind  string
	Attrs []Attr
}

func New(kind string, attrs ...Attr) Qualifier {
	sorted := make([]Attr, len(attrs))
	copy(sorted, attrs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return Qualifier{Kind: kind, Attrs: sorted}
}

func Named(name string) Qualifier {
	return Qualifier{Kind: NamedKind, Attrs: []Attr{{Name: namedAttr, Value: name}}}
}

func (q Qualifier) IsZero() bool {
	return q.Kind == ""
}

// Name returns the name carried by a named qualifier.
func (q Qualifier) Name() (string, bool) {
	if q.Kind != NamedKind {
		return "", false
	}
	for _, a := range q.Attrs {
		if a.Name == namedAttr {
			return a.Value, true
		}
	}
	return "", false
}

func (q Qualifier) Attr(name string) (string, bool) {
	for _, a := range q.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (q Qualifier) String() string {
	var b strings.Builder
	b.WriteByte('@')
	b.WriteString(q.Kind)
	if len(q.Attrs) == 0 {
		return b.String()
	}

	attrs := make([]Attr, len(q.Attrs))
	copy(attrs, q.Attrs)
	sort.SliceStable(attrs, func(i, j int) bool { return attrs[i].Name < attrs[j].Name })

	b.WriteByte('(')
	for i, a := range attrs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.Name)
		b.WriteByte('=')
		b.WriteString(renderValue(a.Value))
	}
	b.WriteByte(')')
	return b.String()
}

// renderValue quotes values that would otherwise read back as different
// attributes or qualifiers.
func renderValue(v string) string {
	if strings.ContainsAny(v, "\",=()@ \t\r\n\\") {
		return strconv.Quote(v)
	}
	return v
}

func (q Qualifier) Equal(other Qualifier) bool {
	return q.String() == other.String()
}

// Set is a canonical qualifier set: deduplicated and sorted by rendered form.
// The zero Set is the empty set.
type Set struct {
	items []Qualifier
	id    string
}

var empty = Set{}

func Empty() Set {
	return empty
}

func NewSet(qs ...Qualifier) Set {
	if len(qs) == 0 {
		return empty
	}

	byID := make(map[string]Qualifier, len(qs))
	for _, q := range qs {
		byID[q.String()] = q
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]Qualifier, len(ids))
	for i, id := range ids {
		items[i] = byID[id]
	}
	return Set{items: items, id: strings.Join(ids, " ")}
}

func (s Set) Len() int {
	return len(s.items)
}

func (s Set) IsEmpty() bool {
	return len(s.items) == 0
}

// Items returns a copy of the qualifiers in canonical order.
func (s Set) Items() []Qualifier {
	out := make([]Qualifier, len(s.items))
	copy(out, s.items)
	return out
}

func (s Set) String() string {
	return s.id
}

func (s Set) Equal(other Set) bool {
	return s.id == other.id
}

func (s Set) Contains(q Qualifier) bool {
	id := q.String()
	for _, item := range s.items {
		if item.String() == id {
			return true
		}
	}
	return false
}

func (s Set) With(qs ...Qualifier) Set {
	all := make([]Qualifier, 0, len(s.items)+len(qs))
	all = append(all, s.items...)
	all = append(all, qs...)
	return NewSet(all...)
}

func (s Set) WithoutKind(kind string) Set {
	kept := make([]Qualifier, 0, len(s.items))
	for _, q := range s.items {
		if q.Kind != kind {
			kept = append(kept, q)
		}
	}
	return NewSet(kept...)
}

// Name returns the first name carried by a named qualifier in the set.
func (s Set) Name() (string, bool) {
	for _, q := range s.items {
		if name, ok := q.Name(); ok {
			return name, true
		}
	}
	return "", false
}

// Match reports whether a candidate carrying the candidate set satisfies a
// request for the requested set: every requested qualifier must be present.
func Match(candidate, requested Set) bool {
	for _, q := range requested.items {
		if !candidate.Contains(q) {
			return false
		}
	}
	return true
}
