package thimbletest_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/thimble"
	"github.com/danpasecinic/thimble/thimbletest"
)

type Config struct {
	Port int
}

type UserRepository interface {
	FindByID(id int) string
}

type PostgresUserRepository struct {
	Config *Config `inject:""`
}

func (r *PostgresUserRepository) FindByID(id int) string {
	return fmt.Sprintf("postgres:%d", id)
}

type MockUserRepository struct {
	FindByIDFn func(id int) string
}

func (m *MockUserRepository) FindByID(id int) string {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(id)
	}
	return ""
}

type UserService struct {
	Repo UserRepository `inject:""`
}

// fakeTB records failures instead of stopping the test.
type fakeTB struct {
	failed   bool
	message  string
	cleanups []func()
}

func (f *fakeTB) Helper() {}

func (f *fakeTB) Fatal(args ...any) {
	f.failed = true
	f.message = fmt.Sprint(args...)
}

func (f *fakeTB) Fatalf(format string, args ...any) {
	f.failed = true
	f.message = fmt.Sprintf(format, args...)
}

func (f *fakeTB) Cleanup(fn func()) {
	f.cleanups = append(f.cleanups, fn)
}

func TestNew(t *testing.T) {
	t.Parallel()

	te := thimbletest.New(t)
	require.NotNil(t, te)
	assert.Equal(t, thimble.StateNew, te.State())
}

func TestNewStopsOnCleanup(t *testing.T) {
	t.Parallel()

	tb := &fakeTB{}
	te := thimbletest.New(tb)
	te.RequireStart(context.Background())
	require.Len(t, tb.cleanups, 1)

	tb.cleanups[0]()
	assert.Equal(t, thimble.StateStopped, te.State())
	assert.False(t, tb.failed)
}

func TestReplaceWithMock(t *testing.T) {
	t.Parallel()

	te := thimbletest.New(t)
	thimbletest.MustProvideValue(te, &Config{Port: 5432})
	thimbletest.MustRegister[*PostgresUserRepository](te)
	thimbletest.MustRegister[*UserService](te)

	thimbletest.Replace[UserRepository](te, &MockUserRepository{
		FindByIDFn: func(id int) string { return "mock" },
	})

	svc := thimbletest.MustGet[*UserService](te)
	assert.Equal(t, "mock", svc.Repo.FindByID(1))
}

func TestReplaceNamed(t *testing.T) {
	t.Parallel()

	te := thimbletest.New(t)
	thimbletest.MustProvideNamedValue(te, "primary", &Config{Port: 1})
	thimbletest.ReplaceNamed(te, "primary", &Config{Port: 2})

	assert.Equal(t, 2, thimbletest.MustGetNamed[*Config](te, "primary").Port)
	thimbletest.AssertHasNamed[*Config](te, "primary")
}

func TestReplaceProvider(t *testing.T) {
	t.Parallel()

	te := thimbletest.New(t)
	thimbletest.MustProvideValue(te, &Config{Port: 1})
	thimbletest.ReplaceProvider(te, func(ctx context.Context, r thimble.Resolver) (*Config, error) {
		return &Config{Port: 9}, nil
	})

	assert.Equal(t, 9, thimbletest.MustGet[*Config](te).Port)
}

func TestAssertions(t *testing.T) {
	t.Parallel()

	te := thimbletest.New(t)
	thimbletest.MustProvide(te, func(ctx context.Context, r thimble.Resolver) (*Config, error) {
		return &Config{Port: 8080}, nil
	})

	thimbletest.AssertHas[*Config](te)
	thimbletest.AssertNotHas[UserRepository](te)
	te.RequireValidate()
}

func TestFailuresReachTB(t *testing.T) {
	t.Parallel()

	tb := &fakeTB{}
	te := thimbletest.New(tb)

	thimbletest.AssertHas[*Config](te)
	assert.True(t, tb.failed)
	assert.Contains(t, tb.message, "Config")

	tb.failed = false
	_ = thimbletest.MustGet[UserRepository](te)
	assert.True(t, tb.failed)
	assert.Contains(t, tb.message, "failed to get")
}

func TestRequireStartStop(t *testing.T) {
	t.Parallel()

	var started, stopped bool
	ext := thimble.NewLifecycle("worker").
		OnStart(func(context.Context) error { started = true; return nil }).
		OnStop(func(context.Context) error { stopped = true; return nil })

	te := thimbletest.New(t, thimble.WithExtensions(ext))
	ctx := context.Background()

	te.RequireStart(ctx)
	assert.True(t, started)

	te.RequireStop(ctx)
	assert.True(t, stopped)
}
