package container

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/internal/scope"
)

func TestRequestScope_PerContext(t *testing.T) {
	t.Parallel()

	env, rec := newEnv(t, nil)
	require.NoError(t, env.AddClasses(class[*Motor](scope.Request)))
	req := RequestFor(ireflect.TypeOf[*Motor]())

	ctx1 := WithRequestScope(context.Background())
	ctx2 := WithRequestScope(context.Background())

	a1, err := env.Get(ctx1, req)
	require.NoError(t, err)
	a2, err := env.Get(ctx1, req)
	require.NoError(t, err)
	b, err := env.Get(ctx2, req)
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 1, RequestScopeFrom(ctx1).Len())

	require.NoError(t, ReleaseRequestScope(ctx1))
	assert.Equal(t, []string{"motor.destroy"}, rec.list())

	_, err = env.Get(ctx1, req)
	assert.True(t, errors.Is(err, ErrScopeNotFound))
}

func TestRequestScope_Missing(t *testing.T) {
	t.Parallel()

	env, _ := newEnv(t, nil)
	require.NoError(t, env.AddClasses(class[*Motor](scope.Request)))

	_, err := env.Get(context.Background(), RequestFor(ireflect.TypeOf[*Motor]()))
	assert.True(t, errors.Is(err, ErrScopeNotFound))
	assert.NoError(t, ReleaseRequestScope(context.Background()))
}

func TestRequestScope_ConcurrentFirstUse(t *testing.T) {
	t.Parallel()

	env, _ := newEnv(t, nil)
	require.NoError(t, env.AddClasses(class[*Motor](scope.Request)))
	req := RequestFor(ireflect.TypeOf[*Motor]())
	ctx := WithRequestScope(context.Background())

	const workers = 32
	got := make([]any, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], _ = env.Get(ctx, req)
		}()
	}
	wg.Wait()

	for i := range workers {
		require.NotNil(t, got[i])
		assert.Same(t, got[0], got[i])
	}
}

func TestSingletonProvider_StopIdempotent(t *testing.T) {
	t.Parallel()

	env, rec := newEnv(t, nil)
	require.NoError(t, env.AddClasses(class[*Motor](scope.Singleton)))

	p, err := env.GetProvider(RequestFor(ireflect.TypeOf[*Motor]()))
	require.NoError(t, err)

	_, ok := p.(Peeker).Peek()
	assert.False(t, ok)

	_, err = p.Get(context.Background())
	require.NoError(t, err)
	_, ok = p.(Peeker).Peek()
	assert.True(t, ok)

	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())
	assert.Equal(t, []string{"motor.destroy"}, rec.list())
}

func TestPrototypeProvider_CreateEveryTime(t *testing.T) {
	t.Parallel()

	env, _ := newEnv(t, nil)
	require.NoError(t, env.AddClasses(class[*Motor]("")))

	p, err := env.GetProvider(RequestFor(ireflect.TypeOf[*Motor]()))
	require.NoError(t, err)
	assert.Equal(t, scope.Prototype, p.Scope())

	i1, err := p.Get(context.Background())
	require.NoError(t, err)
	i2, err := p.Create(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, i1.Value(), i2.Value())
}
