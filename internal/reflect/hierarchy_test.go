package reflect

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rootLevel struct {
	ID string `inject:""`
}

func (r *rootLevel) PostConstructRoot() {}
func (r *rootLevel) PostConstruct()     {}

type middleLevel struct {
	rootLevel
	Name string
}

func (m *middleLevel) PostConstructMiddle() {}

type outerLevel struct {
	*middleLevel
	Port int `inject:""`
}

func (o *outerLevel) PostConstruct()      {}
func (o *outerLevel) PostConstructOuter() {}

type Repo[T any] interface {
	Find(id string) T
}

type baseRepo[T any] struct{}

func (baseRepo[T]) Find(string) T {
	var zero T
	return zero
}

type user struct{}

type userRepo struct {
	baseRepo[user]
}

type deepRepo struct {
	userRepo
}

type orderRepo struct {
	baseRepo[string]
}

func TestHierarchy_BaseFirst(t *testing.T) {
	t.Parallel()

	levels := Hierarchy(TypeOf[*outerLevel]())
	require.Len(t, levels, 3)

	assert.Equal(t, TypeOf[rootLevel](), levels[0].Type)
	assert.Equal(t, []int{0, 0}, levels[0].Index)
	assert.Equal(t, TypeOf[middleLevel](), levels[1].Type)
	assert.True(t, levels[1].Pointer)
	assert.Equal(t, TypeOf[outerLevel](), levels[2].Type)
	assert.Empty(t, levels[2].Index)
}

func TestHierarchy_NonStruct(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Hierarchy(TypeOf[int]()))
}

func TestLevel_DeclaredFields(t *testing.T) {
	t.Parallel()

	levels := Hierarchy(TypeOf[*outerLevel]())
	fields := levels[0].DeclaredFields()
	require.Len(t, fields, 1)
	assert.Equal(t, "ID", fields[0].Name)
	assert.Equal(t, []int{0, 0, 0}, fields[0].Index)

	outer := levels[2].DeclaredFields()
	require.Len(t, outer, 1)
	assert.Equal(t, "Port", outer[0].Name)
	assert.Equal(t, []int{1}, outer[0].Index)
}

func TestMethodsWithPrefix_OrderAndOverride(t *testing.T) {
	t.Parallel()

	methods := MethodsWithPrefix(TypeOf[*outerLevel](), "PostConstruct")

	names := make([]string, 0, len(methods))
	for _, m := range methods {
		names = append(names, m.Method.Name)
	}

	assert.Equal(t, []string{"PostConstruct", "PostConstructRoot", "PostConstructMiddle", "PostConstructOuter"}, names)
	assert.Equal(t, 0, methods[0].Level)
	assert.Equal(t, 2, methods[3].Level)
}

func TestMethodSignature(t *testing.T) {
	t.Parallel()

	m, ok := TypeOf[*outerLevel]().MethodByName("PostConstruct")
	require.True(t, ok)
	assert.Equal(t, "PostConstruct()", MethodSignature(m))
}

func TestGenericAssignable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		candidate any
		generic   any
		want      bool
	}{
		{"direct embedding", &userRepo{}, baseRepo[user]{}, true},
		{"pointer to embedded", &userRepo{}, &baseRepo[user]{}, true},
		{"three levels", &deepRepo{}, baseRepo[user]{}, true},
		{"wrong type argument", &orderRepo{}, baseRepo[user]{}, false},
		{"identity", &orderRepo{}, &orderRepo{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := GenericAssignable(typeOfValue(tt.candidate), typeOfValue(tt.generic))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenericAssignable_Interfaces(t *testing.T) {
	t.Parallel()

	assert.True(t, GenericAssignable(TypeOf[*deepRepo](), TypeOf[Repo[user]]()))
	assert.False(t, GenericAssignable(TypeOf[*deepRepo](), TypeOf[Repo[string]]()))
	assert.True(t, GenericAssignable(TypeOf[*orderRepo](), TypeOf[Repo[string]]()))
}

func TestAssignable(t *testing.T) {
	t.Parallel()

	assert.True(t, Assignable(TypeOf[*testStruct](), TypeOf[testInterface]()))
	assert.True(t, Assignable(TypeOf[*testStruct](), TypeOf[*testStruct]()))
	assert.False(t, Assignable(TypeOf[testStruct](), TypeOf[testInterface]()))
	assert.False(t, Assignable(nil, TypeOf[testInterface]()))
}

func typeOfValue(v any) reflect.Type {
	return reflect.TypeOf(v)
}
