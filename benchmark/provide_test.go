package benchmark

import (
	"testing"

	"github.com/samber/do/v2"
	"go.uber.org/dig"
	"go.uber.org/fx"

	"github.com/danpasecinic/thimble"
)

func BenchmarkProvide_Simple_Thimble(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		env := thimble.New()
		_ = thimble.ProvideValue(env, newConfig())
	}
}

func BenchmarkProvide_Simple_Do(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		injector := do.New()
		do.ProvideValue(injector, newConfig())
	}
}

func BenchmarkProvide_Simple_Dig(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		c := dig.New()
		_ = c.Provide(newConfig)
	}
}

func BenchmarkProvide_Simple_Fx(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		_ = fx.New(fx.NopLogger, fx.Provide(newConfig))
	}
}

func BenchmarkProvide_Chain_Thimble(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		_ = newThimbleChain()
	}
}

func BenchmarkProvide_Chain_Do(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		_ = newDoChain()
	}
}

func BenchmarkProvide_Chain_Dig(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		_ = newDigChain()
	}
}

func BenchmarkProvide_Chain_Fx(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		_ = fx.New(fx.NopLogger, fxChain())
	}
}

// newThimbleChain registers the chain as tagged structs; nothing is built
// until the first request.
func newThimbleChain() *thimble.Environment {
	env := thimble.New()
	singleton := thimble.WithScope(thimble.Singleton)
	_ = thimble.ProvideValue(env, newConfig())
	_ = thimble.ProvideValue(env, newLogger())
	_ = thimble.Register[*Database](env, singleton)
	_ = thimble.Register[*Cache](env, singleton)
	_ = thimble.Register[*Repository](env, singleton)
	_ = thimble.Register[*Service](env, singleton)
	return env
}

func newDoChain() do.Injector {
	injector := do.New()
	do.ProvideValue(injector, newConfig())
	do.ProvideValue(injector, newLogger())
	do.Provide(injector, func(i do.Injector) (*Database, error) {
		return newDatabase(do.MustInvoke[*Config](i), do.MustInvoke[*Logger](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*Cache, error) {
		return newCache(do.MustInvoke[*Logger](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*Repository, error) {
		return newRepository(do.MustInvoke[*Database](i), do.MustInvoke[*Cache](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		return newService(do.MustInvoke[*Repository](i), do.MustInvoke[*Logger](i)), nil
	})
	return injector
}

func newDigChain() *dig.Container {
	c := dig.New()
	for _, ctor := range []any{newConfig, newLogger, newDatabase, newCache, newRepository, newService} {
		_ = c.Provide(ctor)
	}
	return c
}

func fxChain() fx.Option {
	return fx.Provide(newConfig, newLogger, newDatabase, newCache, newRepository, newService)
}
