package container

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/thimble/internal/qualifier"
	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/internal/scope"
)

var errBoom = errors.New("boom")

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

type Motor struct {
	Rec *recorder `inject:""`
}

func (m *Motor) PreDestroy() {
	m.Rec.add("motor.destroy")
}

type Car struct {
	Motor *Motor    `inject:""`
	Rec   *recorder `inject:""`
}

func (c *Car) PreDestroy() {
	c.Rec.add("car.destroy")
}

type Engine interface {
	Start() string
}

type V8 struct{}

func (*V8) Start() string { return "v8" }

type V6 struct{}

func (*V6) Start() string { return "v6" }

type Base struct {
	Rec *recorder `inject:""`
}

func (b *Base) PostConstructBase() { b.Rec.add("base.post") }
func (b *Base) PreDestroyBase()    { b.Rec.add("base.pre") }

type Derived struct {
	Base
}

func (d *Derived) PostConstructDerived() { d.Rec.add("derived.post") }
func (d *Derived) PreDestroyDerived()    { d.Rec.add("derived.pre") }

type Overriding struct {
	Base
}

func (o *Overriding) PostConstructBase() { o.Rec.add("overriding.post") }

type Wrapped struct {
	*Base
	Name string
}

type Faulty struct {
	Motor *Motor `inject:""`
}

func (f *Faulty) PostConstruct() error { return errBoom }

type ChickenA struct {
	B *ChickenB `inject:""`
}

type ChickenB struct {
	A *ChickenA `inject:""`
}

type Garage struct {
	Primary Engine `inject:"primary"`
	Fast    Engine `qualifier:"@fast"`
	Later   Lazy[*Motor]  `inject:""`
	Maybe   Optional[*V6] `inject:""`
}

type Injected struct {
	motor *Motor
	ctx   bool
}

func (i *Injected) InjectMotor(ctx context.Context, m *Motor) error {
	i.motor = m
	i.ctx = ctx != nil
	return nil
}

type Connection struct {
	Rec    *recorder `inject:""`
	opened bool
}

func (c *Connection) PostConstructOpen(ctx context.Context) error {
	c.opened = ctx != nil
	c.Rec.add("conn.open")
	return nil
}

func (c *Connection) PreDestroyClose(context.Context) error {
	c.Rec.add("conn.close")
	return nil
}

type Service struct {
	Conn *Connection `inject:""`
	Rec  *recorder   `inject:""`
}

func (s *Service) PreDestroy() {
	s.Rec.add("service.destroy")
}

func newEnv(t *testing.T, cfg *Config) (*Environment, *recorder) {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	env := New(cfg)
	rec := &recorder{}
	_, err := env.Put(context.Background(), rec, nil, qualifier.Empty())
	require.NoError(t, err)
	return env, rec
}

func class[T any](s scope.Scope, qs ...qualifier.Qualifier) *Class {
	return &Class{Type: ireflect.TypeOf[T](), Scope: s, Qualifiers: qualifier.NewSet(qs...)}
}

func get[T any](t *testing.T, env *Environment, qs ...qualifier.Qualifier) T {
	t.Helper()
	v, err := env.Get(context.Background(), RequestFor(ireflect.TypeOf[T](), qs...))
	require.NoError(t, err)
	typed, ok := v.(T)
	require.True(t, ok, "got %T", v)
	return typed
}
