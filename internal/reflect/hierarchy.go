package reflect

import (
	"reflect"
	"sort"
	"strings"
)

// Level is one struct in an embedding chain. The outermost struct is the most
// derived level; embedded structs are its bases.
type Level struct {
	Type    reflect.Type
	Index   []int
	Pointer bool
	Depth   int
}

// Hierarchy returns the embedding levels of t base-first, ending with t
// itself. t may be a struct or a pointer to one.
func Hierarchy(t reflect.Type) []Level {
	st, ok := StructOf(t)
	if !ok {
		return nil
	}

	var levels []Level
	visited := make(map[reflect.Type]bool)

	var walk func(st reflect.Type, index []int, pointer bool, depth int)
	walk = func(st reflect.Type, index []int, pointer bool, depth int) {
		if visited[st] {
			return
		}
		visited[st] = true

		for i := 0; i < st.NumField(); i++ {
			f := st.Field(i)
			if !f.Anonymous {
				continue
			}
			ft := f.Type
			isPtr := ft.Kind() == reflect.Ptr
			if isPtr {
				ft = ft.Elem()
			}
			if ft.Kind() != reflect.Struct {
				continue
			}
			walk(ft, appendIndex(index, i), isPtr, depth+1)
		}

		levels = append(levels, Level{Type: st, Index: index, Pointer: pointer, Depth: depth})
	}

	walk(st, nil, false, 0)
	return levels
}

func appendIndex(index []int, i int) []int {
	out := make([]int, len(index)+1)
	copy(out, index)
	out[len(index)] = i
	return out
}

// DeclaredFields returns the non-embedded fields declared directly on the
// level, each with its full index path from the outermost struct.
func (l Level) DeclaredFields() []reflect.StructField {
	var fields []reflect.StructField
	for i := 0; i < l.Type.NumField(); i++ {
		f := l.Type.Field(i)
		if f.Anonymous {
			continue
		}
		f.Index = appendIndex(l.Index, i)
		fields = append(fields, f)
	}
	return fields
}

// LevelMethod is a method of the outermost pointer type attributed to the
// deepest embedding level that still exposes it.
type LevelMethod struct {
	Method    reflect.Method
	Level     int
	Signature string
}

// MethodsWithPrefix collects methods of the outer type whose name starts with
// prefix, ordered base level first and by name within a level.
//
// A method promoted from an embedded struct and a method shadowing it share a
// name, so only the outermost declaration is reachable and it is kept once,
// positioned at the base level that introduced the name.
func MethodsWithPrefix(t reflect.Type, prefix string) []LevelMethod {
	levels := Hierarchy(t)
	if len(levels) == 0 {
		return nil
	}

	outer := t
	if outer.Kind() != reflect.Ptr {
		outer = reflect.PointerTo(outer)
	}

	seen := make(map[string]bool)
	var out []LevelMethod

	for i := 0; i < outer.NumMethod(); i++ {
		m := outer.Method(i)
		if !strings.HasPrefix(m.Name, prefix) {
			continue
		}
		sig := MethodSignature(m)
		if seen[sig] {
			continue
		}
		seen[sig] = true

		out = append(out, LevelMethod{
			Method:    m,
			Level:     introducingLevel(levels, m.Name),
			Signature: sig,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].Method.Name < out[j].Method.Name
	})
	return out
}

func introducingLevel(levels []Level, name string) int {
	for i, l := range levels {
		if _, ok := reflect.PointerTo(l.Type).MethodByName(name); ok {
			return i
		}
	}
	return len(levels) - 1
}

// MethodSignature identifies a method for override de-duplication: name,
// return and parameter types, qualified by package for unexported methods.
func MethodSignature(m reflect.Method) string {
	var b strings.Builder
	if m.PkgPath != "" {
		b.WriteString(m.PkgPath)
		b.WriteByte('.')
	}
	b.WriteString(m.Name)
	b.WriteByte('(')

	ft := m.Type
	start := 0
	if m.Func.IsValid() {
		start = 1
	}
	for i := start; i < ft.NumIn(); i++ {
		if i > start {
			b.WriteByte(',')
		}
		b.WriteString(TypeKey(ft.In(i)))
	}
	b.WriteByte(')')
	for i := 0; i < ft.NumOut(); i++ {
		b.WriteByte(' ')
		b.WriteString(TypeKey(ft.Out(i)))
	}
	return b.String()
}
