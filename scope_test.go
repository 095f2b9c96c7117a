package thimble_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/thimble"
)

type Session struct {
	Journal *journal `inject:""`
	ID      int
}

func (s *Session) PreDestroy() { s.Journal.add("session.close") }

func TestScope_Singleton(t *testing.T) {
	t.Parallel()

	env, _ := newJournaled(t)
	require.NoError(t, thimble.Register[*Session](env, thimble.WithScope(thimble.Singleton)))

	s1 := thimble.MustGet[*Session](env)
	s2 := thimble.MustGet[*Session](env)
	assert.Same(t, s1, s2)
}

func TestScope_PrototypeIsDefault(t *testing.T) {
	t.Parallel()

	env, _ := newJournaled(t)
	require.NoError(t, thimble.Register[*Session](env))

	s1 := thimble.MustGet[*Session](env)
	s2 := thimble.MustGet[*Session](env)
	assert.NotSame(t, s1, s2)
}

func TestScope_Request(t *testing.T) {
	t.Parallel()

	env, j := newJournaled(t)
	require.NoError(t, thimble.Register[*Session](env, thimble.WithScope(thimble.Request)))

	ctx1 := thimble.WithRequestScope(context.Background())
	ctx2 := thimble.WithRequestScope(context.Background())

	a1 := thimble.MustGetCtx[*Session](ctx1, env)
	a2 := thimble.MustGetCtx[*Session](ctx1, env)
	b1 := thimble.MustGetCtx[*Session](ctx2, env)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b1)

	require.NoError(t, thimble.ReleaseRequestScope(ctx1))
	assert.Equal(t, []string{"session.close"}, j.list())

	_, err := thimble.GetCtx[*Session](ctx1, env)
	assert.True(t, thimble.IsScopeNotFound(err))
}

func TestScope_Request_NoScope(t *testing.T) {
	t.Parallel()

	env, _ := newJournaled(t)
	require.NoError(t, thimble.Register[*Session](env, thimble.WithScope(thimble.Request)))

	_, err := thimble.Get[*Session](env)
	require.Error(t, err)
	assert.True(t, thimble.IsScopeNotFound(err))

	var e *thimble.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, thimble.ErrCodeScopeNotFound, e.Code)
}

func TestScope_Request_Concurrent(t *testing.T) {
	t.Parallel()

	env, _ := newJournaled(t)
	require.NoError(t, thimble.Register[*Session](env, thimble.WithScope(thimble.Request)))

	ctx := thimble.WithRequestScope(context.Background())
	results := make([]*Session, 16)

	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = thimble.MustGetCtx[*Session](ctx, env)
		}(i)
	}
	wg.Wait()

	for _, s := range results {
		assert.Same(t, results[0], s)
	}
}

func TestScope_Unknown(t *testing.T) {
	t.Parallel()

	env, _ := newJournaled(t)
	require.NoError(t, thimble.Register[*Session](env, thimble.WithScope("tenant")))

	_, err := thimble.Get[*Session](env)
	assert.True(t, thimble.IsScopeNotFound(err))
}
