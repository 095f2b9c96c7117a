package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_AddNode(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("A", "car", []string{"B", "C", "B"})

	require.Equal(t, []string{"A"}, g.Nodes())
	assert.Equal(t, []string{"B", "C"}, g.Dependencies("A"))
	assert.Equal(t, "car", g.Label("A"))
	assert.Equal(t, "Z", g.Label("Z"))
}

func TestGraph_RemoveNode(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("A", "", nil)
	g.AddNode("B", "", nil)

	g.RemoveNode("A")

	assert.Equal(t, []string{"B"}, g.Nodes())
}

func TestGraph_Dependents(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("B", "", []string{"C"})
	g.AddNode("A", "", []string{"C"})
	g.AddNode("C", "", nil)

	assert.Equal(t, []string{"A", "B"}, g.Dependents("C"))
}

func TestGraph_Missing(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("A", "", []string{"B", "C"})
	g.AddNode("B", "", nil)

	assert.Equal(t, []string{"C"}, g.Missing())

	g.RemoveNode("B")
	assert.Equal(t, []string{"B", "C"}, g.Missing())
}

func TestGraph_Clone(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("A", "", []string{"B"})
	g.AddNode("B", "", nil)

	clone := g.Clone()
	require.Equal(t, g.Nodes(), clone.Nodes())

	g.AddNode("C", "", nil)
	assert.Equal(t, []string{"A", "B"}, clone.Nodes())
}

func TestGraph_Cycles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func(g *Graph)
		want  int
	}{
		{
			name: "no cycle",
			build: func(g *Graph) {
				g.AddNode("A", "", []string{"B"})
				g.AddNode("B", "", []string{"C"})
				g.AddNode("C", "", nil)
			},
			want: 0,
		},
		{
			name: "simple cycle",
			build: func(g *Graph) {
				g.AddNode("A", "", []string{"B"})
				g.AddNode("B", "", []string{"A"})
			},
			want: 1,
		},
		{
			name: "self cycle",
			build: func(g *Graph) {
				g.AddNode("A", "", []string{"A"})
			},
			want: 1,
		},
		{
			name: "two cycles",
			build: func(g *Graph) {
				g.AddNode("A", "", []string{"B"})
				g.AddNode("B", "", []string{"A"})
				g.AddNode("C", "", []string{"D"})
				g.AddNode("D", "", []string{"C"})
			},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New()
			tt.build(g)

			assert.Equal(t, tt.want > 0, g.HasCycle())
			assert.Len(t, g.CyclePaths(), tt.want)
		})
	}
}

func TestGraph_HasCycleInvalidatedByAddNode(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("A", "", []string{"B"})
	g.AddNode("B", "", nil)
	require.False(t, g.HasCycle())

	g.AddNode("B", "", []string{"A"})
	assert.True(t, g.HasCycle())

	g.RemoveNode("B")
	assert.False(t, g.HasCycle())
}

func TestGraph_CyclePath(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("A", "", []string{"B"})
	g.AddNode("B", "", []string{"C"})
	g.AddNode("C", "", []string{"A"})

	assert.Equal(t, []string{"A", "B", "C", "A"}, g.CyclePath("A"))
	assert.Nil(t, g.CyclePath("missing"))
}

func TestGraph_StartupAndShutdownOrder(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("car", "", []string{"engine", "wheels"})
	g.AddNode("engine", "", []string{"fuel"})
	g.AddNode("wheels", "", nil)
	g.AddNode("fuel", "", nil)

	startup, err := g.StartupOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"fuel", "wheels", "engine", "car"}, startup)

	shutdown, err := g.ShutdownOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"car", "engine", "wheels", "fuel"}, shutdown)
}

func TestGraph_TopologicalSort_WithCycle(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("A", "", []string{"B"})
	g.AddNode("B", "", []string{"A"})

	_, err := g.TopologicalSort()
	assert.True(t, errors.Is(err, ErrCycleDetected))
}

func BenchmarkGraph_Cycles(b *testing.B) {
	g := New()
	for i := 0; i < 100; i++ {
		id := string(rune('a' + i%26))
		g.AddNode(id+string(rune('0'+i/26)), "", []string{string(rune('a' + (i+1)%26))})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.CyclePaths()
	}
}
