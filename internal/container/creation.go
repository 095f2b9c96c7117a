package container

import (
	"context"
	"reflect"
	"slices"

	ireflect "github.com/danpasecinic/thimble/internal/reflect"
)

type creationKey struct{}

// creation is a frame of the chain of types being built by one call path.
type creation struct {
	typ    reflect.Type
	parent *creation
}

func creationFrom(ctx context.Context) *creation {
	c, _ := ctx.Value(creationKey{}).(*creation)
	return c
}

// checkCreation fails when t is already being built further up the chain.
func checkCreation(ctx context.Context, t reflect.Type) error {
	top := creationFrom(ctx)
	for c := top; c != nil; c = c.parent {
		if c.typ == t {
			return &CircularError{Chain: chainOf(top, t)}
		}
	}
	return nil
}

func enterCreation(ctx context.Context, t reflect.Type) (context.Context, error) {
	if err := checkCreation(ctx, t); err != nil {
		return ctx, err
	}
	return context.WithValue(ctx, creationKey{}, &creation{typ: t, parent: creationFrom(ctx)}), nil
}

func chainOf(top *creation, closing reflect.Type) []string {
	var chain []string
	for c := top; c != nil; c = c.parent {
		chain = append(chain, ireflect.TypeKey(c.typ))
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return append(chain, ireflect.TypeKey(closing))
}

// checkDependencyCycle follows the providers named by p's metadata and fails
// when they lead back to p. Providers that hold a creation lock run it before
// locking: two goroutines entering a cycle from opposite ends would otherwise
// each wait on the lock the other holds. Metadata failures are left for
// creation to report.
func checkDependencyCycle(ctx context.Context, p Provider) error {
	id, typ := p.Key().ID(), p.ResolvedType()
	visited := make(map[string]bool)

	var walk func(cur Provider, chain []string) error
	walk = func(cur Provider, chain []string) error {
		meta, err := cur.MetaData(ctx)
		if err != nil {
			return nil
		}
		for _, dep := range meta.Dependencies() {
			next := append(slices.Clone(chain), ireflect.TypeKey(dep.ResolvedType()))
			if dep.Key().ID() == id && dep.ResolvedType() == typ {
				return &CircularError{Chain: next}
			}
			if visited[dep.Key().ID()] {
				continue
			}
			visited[dep.Key().ID()] = true
			if err := walk(dep, next); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(p, []string{ireflect.TypeKey(typ)})
}
