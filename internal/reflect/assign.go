package reflect

import "reflect"

// Assignable reports whether a value of candidate satisfies a request for
// target: identity for concrete targets, implementation for interfaces.
func Assignable(candidate, target reflect.Type) bool {
	if candidate == nil || target == nil {
		return false
	}
	if candidate == target {
		return true
	}
	if target.Kind() == reflect.Interface {
		return candidate.Implements(target)
	}
	return candidate.AssignableTo(target)
}

// GenericAssignable reports whether candidate structurally matches generic.
//
// The candidate's supertypes are itself plus every struct it embeds, walked
// recursively through value and pointer embeddings. Instantiated type
// arguments are already substituted in embedded field types, so a match is
// plain type identity, or implementation when generic is an interface.
func GenericAssignable(candidate, generic reflect.Type) bool {
	if candidate == nil || generic == nil {
		return false
	}
	visited := make(map[reflect.Type]bool)
	return genericWalk(candidate, generic, visited)
}

func genericWalk(t, generic reflect.Type, visited map[reflect.Type]bool) bool {
	if visited[t] {
		return false
	}
	visited[t] = true

	if t == generic {
		return true
	}
	if generic.Kind() == reflect.Interface && t.Implements(generic) {
		return true
	}
	if t.Kind() == reflect.Ptr {
		if genericWalk(t.Elem(), generic, visited) {
			return true
		}
	}

	st, ok := StructOf(t)
	if !ok {
		return false
	}
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.Anonymous {
			continue
		}
		if genericWalk(f.Type, generic, visited) {
			return true
		}
		if f.Type.Kind() != reflect.Ptr && genericWalk(reflect.PointerTo(f.Type), generic, visited) {
			return true
		}
	}
	return false
}
