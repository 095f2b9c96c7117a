package benchmark

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/fx"

	"github.com/danpasecinic/thimble"
)

func BenchmarkLifecycle_10_Thimble(b *testing.B) {
	benchmarkLifecycleThimble(b, 10, 0)
}

func BenchmarkLifecycle_10_Fx(b *testing.B) {
	benchmarkLifecycleFx(b, 10, 0)
}

func BenchmarkLifecycle_50_Thimble(b *testing.B) {
	benchmarkLifecycleThimble(b, 50, 0)
}

func BenchmarkLifecycle_50_Fx(b *testing.B) {
	benchmarkLifecycleFx(b, 50, 0)
}

func BenchmarkLifecycleWithWork_10_Thimble(b *testing.B) {
	benchmarkLifecycleThimble(b, 10, time.Millisecond)
}

func BenchmarkLifecycleWithWork_10_Fx(b *testing.B) {
	benchmarkLifecycleFx(b, 10, time.Millisecond)
}

// Pooled is realized eagerly during Start and destroyed during Stop.
type Pooled struct {
	Config *Config `inject:""`
}

var poolWork time.Duration

func (p *Pooled) PostConstruct() { sleep(poolWork) }

func (p *Pooled) PreDestroy() { sleep(poolWork) }

func sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

func benchmarkLifecycleThimble(b *testing.B, count int, work time.Duration) {
	poolWork = work
	ctx := context.Background()

	b.ReportAllocs()
	for b.Loop() {
		b.StopTimer()
		env := thimble.New()
		_ = thimble.ProvideValue(env, newConfig())
		for j := range count {
			_ = thimble.Register[*Pooled](env,
				thimble.WithName(fmt.Sprintf("svc_%d", j)),
				thimble.WithScope(thimble.Singleton),
				thimble.Eager(),
			)
		}
		b.StartTimer()

		_ = env.Start(ctx)
		_ = env.Stop(ctx)
	}
}

func benchmarkLifecycleFx(b *testing.B, count int, work time.Duration) {
	ctx := context.Background()

	b.ReportAllocs()
	for b.Loop() {
		b.StopTimer()
		invokers := make([]any, count)
		for j := range count {
			invokers[j] = fx.Annotate(
				func(*Config) {},
				fx.ParamTags(fmt.Sprintf(`name:"svc_%d"`, j)),
			)
		}

		app := fx.New(
			fx.NopLogger,
			fx.Invoke(invokers...),
			fxNamed(count, func(lc fx.Lifecycle, port int) *Config {
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error { sleep(work); return nil },
					OnStop:  func(context.Context) error { sleep(work); return nil },
				})
				return &Config{Port: port}
			}),
		)
		b.StartTimer()

		_ = app.Start(ctx)
		_ = app.Stop(ctx)
	}
}
