package container

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/internal/scope"
)

func TestBuilder_LifecycleOrder(t *testing.T) {
	t.Parallel()

	env, rec := newEnv(t, nil)
	require.NoError(t, env.AddClasses(class[*Derived](scope.Singleton)))

	d := get[*Derived](t, env)
	require.NotNil(t, d.Rec)
	assert.Equal(t, []string{"base.post", "derived.post"}, rec.list())

	require.NoError(t, env.Stop(context.Background()))
	assert.Equal(t, []string{"base.post", "derived.post", "derived.pre", "base.pre"}, rec.list())
}

func TestBuilder_OverriddenHookRunsOnce(t *testing.T) {
	t.Parallel()

	env, rec := newEnv(t, nil)
	require.NoError(t, env.AddClasses(class[*Overriding]("")))

	get[*Overriding](t, env)
	assert.Equal(t, []string{"overriding.post"}, rec.list())
}

func TestBuilder_AllocatesEmbeddedPointers(t *testing.T) {
	t.Parallel()

	env, rec := newEnv(t, nil)
	require.NoError(t, env.AddClasses(class[*Wrapped]("")))

	w := get[*Wrapped](t, env)
	require.NotNil(t, w.Base)
	assert.Same(t, rec, w.Rec)
	assert.Equal(t, []string{"base.post"}, rec.list())
}

func TestBuilder_PrototypePreDestroy(t *testing.T) {
	t.Parallel()

	env, rec := newEnv(t, nil)
	require.NoError(t, env.AddClasses(class[*Derived]("")))

	inst, err := env.GetInstance(context.Background(), RequestFor(ireflect.TypeOf[*Derived]()))
	require.NoError(t, err)

	p, err := env.GetProvider(RequestFor(ireflect.TypeOf[*Derived]()))
	require.NoError(t, err)
	meta, err := p.MetaData(context.Background())
	require.NoError(t, err)
	assert.Nil(t, meta.PreDestroy)
	assert.Len(t, meta.PostConstruct, 2)

	require.NoError(t, inst.Destroy())
	assert.Equal(t, []string{"base.post", "derived.post", "derived.pre", "base.pre"}, rec.list())

	require.NoError(t, inst.Destroy())
	assert.Len(t, rec.list(), 4)
}

func TestBuilder_DependentsDestroyedFirst(t *testing.T) {
	t.Parallel()

	env, rec := newEnv(t, nil)
	require.NoError(t, env.AddClasses(class[*Motor](""), class[*Car]("")))

	inst, err := env.GetInstance(context.Background(), RequestFor(ireflect.TypeOf[*Car]()))
	require.NoError(t, err)

	deps := inst.Dependents()
	require.Len(t, deps, 1)
	assert.Same(t, inst.Value().(*Car).Motor, deps[0].Value())

	require.NoError(t, inst.Destroy())
	assert.Equal(t, []string{"motor.destroy", "car.destroy"}, rec.list())
}

func TestBuilder_SingletonDependencyNotRecorded(t *testing.T) {
	t.Parallel()

	env, rec := newEnv(t, nil)
	require.NoError(t, env.AddClasses(class[*Motor](scope.Singleton), class[*Car]("")))

	inst, err := env.GetInstance(context.Background(), RequestFor(ireflect.TypeOf[*Car]()))
	require.NoError(t, err)
	assert.Empty(t, inst.Dependents())

	require.NoError(t, inst.Destroy())
	assert.Equal(t, []string{"car.destroy"}, rec.list())
}

func TestBuilder_FailureDiscardsInstance(t *testing.T) {
	t.Parallel()

	env, rec := newEnv(t, nil)
	require.NoError(t, env.AddClasses(class[*Motor](""), class[*Faulty]("")))

	v, err := env.Get(context.Background(), RequestFor(ireflect.TypeOf[*Faulty]()))
	require.Error(t, err)
	assert.Nil(t, v)
	assert.True(t, errors.Is(err, ErrReflectiveFailure))
	assert.True(t, errors.Is(err, errBoom))
	assert.Equal(t, []string{"motor.destroy"}, rec.list())
}

func TestBuilder_CircularDependency(t *testing.T) {
	t.Parallel()

	for _, s := range []scope.Scope{scope.Prototype, scope.Singleton} {
		t.Run(s.String(), func(t *testing.T) {
			t.Parallel()

			env := New(&Config{})
			require.NoError(t, env.AddClasses(class[*ChickenA](s), class[*ChickenB](s)))

			_, err := env.Get(context.Background(), RequestFor(ireflect.TypeOf[*ChickenA]()))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCircularDependency))

			var circular *CircularError
			require.True(t, errors.As(err, &circular))
			assert.Equal(t, []string{
				ireflect.TypeKeyOf[*ChickenA](),
				ireflect.TypeKeyOf[*ChickenB](),
				ireflect.TypeKeyOf[*ChickenA](),
			}, circular.Chain)
		})
	}
}

func TestBuilder_ConcurrentCircularSingletons(t *testing.T) {
	t.Parallel()

	for range 20 {
		env := New(&Config{})
		require.NoError(t, env.AddClasses(class[*ChickenA](scope.Singleton), class[*ChickenB](scope.Singleton)))

		errs := make(chan error, 2)
		for _, typ := range []reflect.Type{ireflect.TypeOf[*ChickenA](), ireflect.TypeOf[*ChickenB]()} {
			go func() {
				_, err := env.Get(context.Background(), RequestFor(typ))
				errs <- err
			}()
		}

		for range 2 {
			select {
			case err := <-errs:
				assert.True(t, errors.Is(err, ErrCircularDependency), "%v", err)
			case <-time.After(5 * time.Second):
				t.Fatal("creating mutually dependent singletons did not return")
			}
		}
	}
}

func TestBuilder_MethodInjection(t *testing.T) {
	t.Parallel()

	env, _ := newEnv(t, nil)
	require.NoError(t, env.AddClasses(class[*Motor](""), class[*Injected]("")))

	i := get[*Injected](t, env)
	assert.NotNil(t, i.motor)
	assert.True(t, i.ctx)
}

func TestBuilder_ContextLifecycleHooks(t *testing.T) {
	t.Parallel()

	env, rec := newEnv(t, nil)
	require.NoError(t, env.AddClasses(class[*Connection](scope.Singleton), class[*Service](scope.Singleton)))

	svc := get[*Service](t, env)
	assert.True(t, svc.Conn.opened)

	require.NoError(t, env.Stop(context.Background()))
	assert.Equal(t, []string{"conn.open", "service.destroy", "conn.close"}, rec.list())
}

type Ride struct {
	motor *Motor
	rec   *recorder
}

func TestBuilder_ConstructorInjection(t *testing.T) {
	t.Parallel()

	env, rec := newEnv(t, nil)
	ctor, err := ireflect.InspectConstructor(func(ctx context.Context, m *Motor, r *recorder) (*Ride, error) {
		if ctx == nil {
			return nil, errBoom
		}
		return &Ride{motor: m, rec: r}, nil
	})
	require.NoError(t, err)
	require.NoError(t, env.AddClasses(class[*Motor](""), &Class{Type: ctor.Out, Constructor: ctor}))

	inst, err := env.GetInstance(context.Background(), RequestFor(ireflect.TypeOf[*Ride]()))
	require.NoError(t, err)

	ride := inst.Value().(*Ride)
	require.NotNil(t, ride.motor)
	assert.Same(t, rec, ride.rec)

	deps := inst.Dependents()
	require.Len(t, deps, 1)
	assert.Same(t, ride.motor, deps[0].Value())
}

func TestBuilder_ConstructorError(t *testing.T) {
	t.Parallel()

	env := New(&Config{})
	ctor, err := ireflect.InspectConstructor(func() (*V8, error) { return nil, errBoom })
	require.NoError(t, err)
	require.NoError(t, env.AddClasses(&Class{Type: ctor.Out, Constructor: ctor}))

	_, err = env.Get(context.Background(), RequestFor(ireflect.TypeOf[*V8]()))
	assert.True(t, errors.Is(err, ErrReflectiveFailure))
	assert.True(t, errors.Is(err, errBoom))
}

type hidden struct {
	motor *Motor `inject:""`
}

func TestBuilder_UnexportedInjectedField(t *testing.T) {
	t.Parallel()

	env := New(&Config{})
	require.NoError(t, env.AddClasses(class[*hidden]("")))

	_, err := env.Get(context.Background(), RequestFor(ireflect.TypeOf[*hidden]()))
	assert.True(t, errors.Is(err, ErrMalformedRegistration))
}

func TestBuilder_GraphRecorded(t *testing.T) {
	t.Parallel()

	env, _ := newEnv(t, nil)
	require.NoError(t, env.AddClasses(class[*Motor](""), class[*Car]("")))
	get[*Car](t, env)

	carID := RequestFor(ireflect.TypeOf[*Car]()).Key().ID()
	motorID := RequestFor(ireflect.TypeOf[*Motor]()).Key().ID()
	recID := RequestFor(ireflect.TypeOf[*recorder]()).Key().ID()

	g := env.Graph()
	assert.ElementsMatch(t, []string{motorID, recID}, g.Dependencies(carID))
	assert.Equal(t, []string{recID}, g.Dependencies(motorID))
}
