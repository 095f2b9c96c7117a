package container

import (
	"sort"
)

// Registry holds the discovery candidates in registration order plus the
// explicit binding overrides. It is guarded by the environment mutex.
type Registry struct {
	classes  []*Class
	byKey    map[string]*Class
	bindings map[string]*Binding
}

func NewRegistry() *Registry {
	return &Registry{
		byKey:    make(map[string]*Class),
		bindings: make(map[string]*Binding),
	}
}

// Add validates every class before registering any of them. Re-adding a class
// with the same key is a no-op.
func (r *Registry) Add(classes ...*Class) error {
	for _, c := range classes {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	for _, c := range classes {
		id := c.Key().ID()
		if _, exists := r.byKey[id]; exists {
			continue
		}
		r.byKey[id] = c
		r.classes = append(r.classes, c)
	}
	return nil
}

func (r *Registry) Classes() []*Class {
	out := make([]*Class, len(r.classes))
	copy(out, r.classes)
	return out
}

func (r *Registry) Size() int {
	return len(r.classes)
}

// SortByPriority orders candidates by ascending priority, keeping
// registration order among equals.
func (r *Registry) SortByPriority(lookup PriorityLookup) {
	sort.SliceStable(r.classes, func(i, j int) bool {
		return r.classes[i].priority(lookup) < r.classes[j].priority(lookup)
	})
}

func (r *Registry) Bind(b *Binding) {
	r.bindings[b.Key.ID()] = b
}

func (r *Registry) Binding(key Key) (*Binding, bool) {
	b, ok := r.bindings[key.ID()]
	return b, ok
}

func (r *Registry) RemoveBinding(key Key) {
	delete(r.bindings, key.ID())
}

// Named returns the request that a by-name lookup should resolve: a binding
// whose key carries the name, else the first candidate class carrying it.
func (r *Registry) Named(name string) (Request, bool) {
	ids := make([]string, 0, len(r.bindings))
	for id := range r.bindings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		b := r.bindings[id]
		if n, ok := b.Key.Qualifiers().Name(); ok && n == name {
			return Request{Type: b.Key.Type(), Generic: b.Key.Type(), Qualifiers: b.Key.Qualifiers()}, true
		}
	}

	for _, c := range r.classes {
		if n, ok := c.Qualifiers.Name(); ok && n == name {
			return Request{Type: c.Type, Generic: c.Type, Qualifiers: c.Qualifiers}, true
		}
	}
	return Request{}, false
}
