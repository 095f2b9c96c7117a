package thimble

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/danpasecinic/thimble/internal/container"
	ireflect "github.com/danpasecinic/thimble/internal/reflect"
)

// Environment resolves requested types to instances of registered
// implementations and owns their lifetime.
type Environment struct {
	internal *container.Environment
	config   *environmentConfig
}

type environmentConfig struct {
	logger     *slog.Logger
	unsealed   bool
	priority   func(reflect.Type) int
	eager      map[string]bool
	extensions []Extension
	onResolve  []ResolveHook
	onProvide  []ProvideHook
	onStart    []StartHook
	onStop     []StopHook
}

type State = container.State

const (
	StateNew      = container.StateNew
	StateStarting = container.StateStarting
	StateRunning  = container.StateRunning
	StateStopping = container.StateStopping
	StateStopped  = container.StateStopped
)

func New(opts ...Option) *Environment {
	cfg := &environmentConfig{
		logger: slog.Default(),
		eager:  make(map[string]bool),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	e := &Environment{config: cfg}

	internalCfg := &container.Config{
		Logger:   cfg.logger,
		Unsealed: cfg.unsealed,
	}
	if cfg.priority != nil {
		internalCfg.PriorityLookup = cfg.priority
	}
	if len(cfg.eager) > 0 {
		internalCfg.EagerLookup = func(t reflect.Type) bool {
			return cfg.eager[ireflect.TypeKey(t)]
		}
	}
	for _, ext := range cfg.extensions {
		internalCfg.Extensions = append(internalCfg.Extensions, adaptExtension(e, ext))
	}
	for _, hook := range cfg.onResolve {
		internalCfg.OnResolve = append(internalCfg.OnResolve, container.ResolveHook(hook))
	}
	for _, hook := range cfg.onProvide {
		internalCfg.OnProvide = append(internalCfg.OnProvide, container.ProvideHook(hook))
	}
	for _, hook := range cfg.onStart {
		internalCfg.OnStart = append(internalCfg.OnStart, container.LifecycleHook(hook))
	}
	for _, hook := range cfg.onStop {
		internalCfg.OnStop = append(internalCfg.OnStop, container.LifecycleHook(hook))
	}

	e.internal = container.New(internalCfg)
	return e
}

func (e *Environment) Logger() *slog.Logger {
	return e.internal.Logger()
}

func (e *Environment) State() State {
	return e.internal.State()
}

// Validate builds the metadata of every registration, resolving each
// dependency without creating instances, and reports dependency cycles.
func (e *Environment) Validate() error {
	if err := e.internal.Validate(context.Background()); err != nil {
		return errValidationFailed(err)
	}
	return nil
}

// Size is the number of registered implementations.
func (e *Environment) Size() int {
	return len(e.internal.Classes())
}

// Keys lists the keys of every provider resolved so far.
func (e *Environment) Keys() []string {
	return e.internal.Keys()
}

func (e *Environment) Start(ctx context.Context) error {
	if err := e.internal.Start(ctx); err != nil {
		return errStartupFailed("environment", err)
	}
	return nil
}

func (e *Environment) Stop(ctx context.Context) error {
	if err := e.internal.Stop(ctx); err != nil {
		return errShutdownFailed("environment", err)
	}
	return nil
}

func (e *Environment) Run(ctx context.Context) error {
	if err := e.Start(ctx); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-quit:
	}

	signal.Stop(quit)
	close(quit)

	return e.Stop(context.Background())
}

func errValidationFailed(cause error) *Error {
	return newError(ErrCodeValidationFailed, "environment validation failed", cause)
}
