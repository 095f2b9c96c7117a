package thimble

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	ireflect "github.com/danpasecinic/thimble/internal/reflect"
)

type GraphInfo struct {
	Services []ServiceInfo
	// Order lists service keys dependencies first. It is nil while the
	// graph holds a cycle.
	Order []string
}

type ServiceInfo struct {
	Key            string
	Label          string
	Type           string
	Implementation string
	Scope          Scope
	Qualifiers     []string
	Dependencies   []string
	Dependents     []string
	// Cycle is the closed dependency path through this service, if any.
	Cycle        []string
	Instantiated bool
}

// Graph describes the providers resolved so far and the dependencies their
// metadata declared.
func (e *Environment) Graph() GraphInfo {
	g := e.internal.Graph()
	realized := e.internal.Realized()

	nodes := g.Nodes()
	services := make([]ServiceInfo, 0, len(nodes))
	for _, id := range nodes {
		_, instantiated := realized[id]
		svc := ServiceInfo{
			Key:          id,
			Label:        g.Label(id),
			Dependencies: g.Dependencies(id),
			Dependents:   g.Dependents(id),
			Instantiated: instantiated,
		}
		if p, ok := e.internal.ProviderByID(id); ok {
			svc.Type = ireflect.TypeKey(p.Key().Type())
			svc.Implementation = ireflect.TypeKey(p.ResolvedType())
			svc.Scope = p.Scope()
			for _, q := range p.Key().Qualifiers().Items() {
				svc.Qualifiers = append(svc.Qualifiers, q.String())
			}
		}
		if path := g.CyclePath(id); slices.Contains(path, id) {
			svc.Cycle = path
		}
		services = append(services, svc)
	}

	order, err := g.StartupOrder()
	if err != nil {
		order = nil
	}
	return GraphInfo{Services: services, Order: order}
}

// ordered returns the services dependencies first, or by key when the
// graph has a cycle.
func (g GraphInfo) ordered() []ServiceInfo {
	if g.Order == nil {
		return g.Services
	}
	byKey := make(map[string]ServiceInfo, len(g.Services))
	for _, svc := range g.Services {
		byKey[svc.Key] = svc
	}
	out := make([]ServiceInfo, 0, len(g.Order))
	for _, id := range g.Order {
		out = append(out, byKey[id])
	}
	return out
}

func (e *Environment) PrintGraph() {
	e.FprintGraph(os.Stdout)
}

// FprintGraph writes one line per service, dependencies first:
//
//	● *app.Database [singleton] ← *app.Config
//	○ app.Store @primary [prototype] as *app.SQLStore
func (e *Environment) FprintGraph(w io.Writer) {
	info := e.Graph()
	if len(info.Services) == 0 {
		_, _ = fmt.Fprintln(w, "(empty environment)")
		return
	}

	for _, svc := range info.ordered() {
		status := "○"
		if svc.Instantiated {
			status = "●"
		}

		var line strings.Builder
		line.WriteString(status + " " + svc.displayName())
		if svc.Scope != "" {
			line.WriteString(" [" + svc.Scope.String() + "]")
		}
		if svc.Implementation != "" && svc.Implementation != svc.Type {
			line.WriteString(" as " + svc.Implementation)
		}
		if len(svc.Dependencies) > 0 {
			line.WriteString(" ← " + strings.Join(svc.Dependencies, ", "))
		}
		_, _ = fmt.Fprintln(w, line.String())

		if svc.Cycle != nil {
			_, _ = fmt.Fprintf(w, "  cycle: %s\n", strings.Join(svc.Cycle, " → "))
		}
	}
}

func (e *Environment) SprintGraph() string {
	var sb strings.Builder
	e.FprintGraph(&sb)
	return sb.String()
}

func (e *Environment) PrintGraphDOT() {
	e.FprintGraphDOT(os.Stdout)
}

func (e *Environment) FprintGraphDOT(w io.Writer) {
	info := e.Graph()

	_, _ = fmt.Fprintln(w, "digraph dependencies {")
	_, _ = fmt.Fprintln(w, "  rankdir=LR;")
	_, _ = fmt.Fprintln(w, "  node [shape=box];")

	onCycle := make(map[[2]string]bool)
	for _, svc := range info.Services {
		for i := 1; i < len(svc.Cycle); i++ {
			onCycle[[2]string{svc.Cycle[i-1], svc.Cycle[i]}] = true
		}

		style := ""
		if svc.Instantiated {
			style = ", style=filled, fillcolor=lightblue"
		}
		_, _ = fmt.Fprintf(w, "  %q [label=%q%s];\n", svc.Key, svc.dotLabel(), style)
	}

	_, _ = fmt.Fprintln(w)

	for _, svc := range info.Services {
		for _, dep := range svc.Dependencies {
			attrs := ""
			if onCycle[[2]string{svc.Key, dep}] {
				attrs = " [color=red]"
			}
			_, _ = fmt.Fprintf(w, "  %q -> %q%s;\n", svc.Key, dep, attrs)
		}
	}

	_, _ = fmt.Fprintln(w, "}")
}

func (e *Environment) SprintGraphDOT() string {
	var sb strings.Builder
	e.FprintGraphDOT(&sb)
	return sb.String()
}

func (s ServiceInfo) displayName() string {
	if s.Type == "" {
		return s.Key
	}
	if len(s.Qualifiers) == 0 {
		return s.Type
	}
	return s.Type + " " + strings.Join(s.Qualifiers, " ")
}

// dotLabel stacks the short type name over its qualifiers and scope.
func (s ServiceInfo) dotLabel() string {
	name := s.Type
	if name == "" {
		name = s.Key
	}
	lines := []string{shortTypeName(name)}
	if len(s.Qualifiers) > 0 {
		lines = append(lines, strings.Join(s.Qualifiers, " "))
	}
	if s.Scope != "" {
		lines = append(lines, string(s.Scope))
	}
	return strings.Join(lines, "\n")
}

// shortTypeName drops pointer stars and package paths.
func shortTypeName(t string) string {
	t = strings.ReplaceAll(t, "*", "")
	if idx := strings.LastIndex(t, "/"); idx != -1 {
		t = t[idx+1:]
	}
	return t
}
