package thimble

import (
	"log/slog"
	"reflect"

	ireflect "github.com/danpasecinic/thimble/internal/reflect"
)

type Option func(*environmentConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *environmentConfig) {
		cfg.logger = logger
	}
}

// WithUnsealed lets a concrete struct pointer that was never registered
// satisfy a request for exactly its own type.
func WithUnsealed(unsealed bool) Option {
	return func(cfg *environmentConfig) {
		cfg.unsealed = unsealed
	}
}

// WithPriorityLookup supplies the priority of registrations that declare none.
func WithPriorityLookup(lookup func(reflect.Type) int) Option {
	return func(cfg *environmentConfig) {
		cfg.priority = lookup
	}
}

// WithPriorities assigns priorities by type name, as printed by TypeName.
// Types missing from the map keep the lookup given by WithPriorityLookup, or 0.
func WithPriorities(priorities map[string]int) Option {
	return func(cfg *environmentConfig) {
		if len(priorities) == 0 {
			return
		}
		fallback := cfg.priority
		cfg.priority = func(t reflect.Type) int {
			if p, ok := priorities[ireflect.TypeKey(t)]; ok {
				return p
			}
			if fallback != nil {
				return fallback(t)
			}
			return 0
		}
	}
}

// WithEagerTypes realizes the registrations of the named types during Start.
func WithEagerTypes(typeNames ...string) Option {
	return func(cfg *environmentConfig) {
		for _, name := range typeNames {
			cfg.eager[name] = true
		}
	}
}

func WithExtensions(extensions ...Extension) Option {
	return func(cfg *environmentConfig) {
		cfg.extensions = append(cfg.extensions, extensions...)
	}
}

func WithResolveObserver(hook ResolveHook) Option {
	return func(cfg *environmentConfig) {
		cfg.onResolve = append(cfg.onResolve, hook)
	}
}

func WithProvideObserver(hook ProvideHook) Option {
	return func(cfg *environmentConfig) {
		cfg.onProvide = append(cfg.onProvide, hook)
	}
}

func WithStartObserver(hook StartHook) Option {
	return func(cfg *environmentConfig) {
		cfg.onStart = append(cfg.onStart, hook)
	}
}

func WithStopObserver(hook StopHook) Option {
	return func(cfg *environmentConfig) {
		cfg.onStop = append(cfg.onStop, hook)
	}
}
