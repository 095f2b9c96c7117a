package thimble

import (
	"context"
)

// Module groups registrations so that they can be applied together.
type Module struct {
	name       string
	entries    []moduleEntry
	submodules []*Module
}

type moduleEntry func(e *Environment) error

func NewModule(name string) *Module {
	return &Module{
		name: name,
	}
}

func (m *Module) Name() string {
	return m.name
}

// ProvideValue adds value under its dynamic type.
func (m *Module) ProvideValue(value any, opts ...ProviderOption) *Module {
	m.entries = append(m.entries, func(e *Environment) error {
		return e.put(context.Background(), value, nil, opts)
	})
	return m
}

func (m *Module) Include(submodule *Module) *Module {
	m.submodules = append(m.submodules, submodule)
	return m
}

func (m *Module) apply(e *Environment) error {
	for _, sub := range m.submodules {
		if err := sub.apply(e); err != nil {
			return err
		}
	}

	for _, entry := range m.entries {
		if err := entry(e); err != nil {
			return err
		}
	}
	return nil
}

// Apply applies modules in order, each after the modules it includes.
func (e *Environment) Apply(modules ...*Module) error {
	for _, m := range modules {
		if err := m.apply(e); err != nil {
			return errModuleApplyFailed(m.name, err)
		}
		e.Logger().Debug("applied module", "module", m.name)
	}
	return nil
}

func errModuleApplyFailed(moduleName string, cause error) *Error {
	return newError(
		ErrCodeModuleApplyFailed,
		"failed to apply module "+moduleName,
		cause,
	)
}

func ModuleRegister[T any](m *Module, opts ...ProviderOption) *Module {
	m.entries = append(m.entries, func(e *Environment) error {
		return Register[T](e, opts...)
	})
	return m
}

func ModuleRegisterFunc[T any](m *Module, constructor any, opts ...ProviderOption) *Module {
	m.entries = append(m.entries, func(e *Environment) error {
		return RegisterFunc[T](e, constructor, opts...)
	})
	return m
}

func ModuleProvide[T any](m *Module, provider Provider[T], opts ...ProviderOption) *Module {
	m.entries = append(m.entries, func(e *Environment) error {
		return Provide(e, provider, opts...)
	})
	return m
}

func ModuleProvideValue[T any](m *Module, value T, opts ...ProviderOption) *Module {
	m.entries = append(m.entries, func(e *Environment) error {
		return ProvideValue(e, value, opts...)
	})
	return m
}

func ModuleBind[I, T any](m *Module, opts ...ProviderOption) *Module {
	m.entries = append(m.entries, func(e *Environment) error {
		return Bind[I, T](e, opts...)
	})
	return m
}

func ModuleDecorate[T any](m *Module, decorator Decorator[T]) *Module {
	m.entries = append(m.entries, func(e *Environment) error {
		Decorate(e, decorator)
		return nil
	})
	return m
}
