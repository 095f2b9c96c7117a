package container

import (
	"errors"
	"sync"
)

// Instance is a created value together with the prototype-scoped values that
// were created to build it. Destroying an instance destroys its dependents
// first, most recent first.
type Instance struct {
	value    any
	raw      any
	key      Key
	provider Provider

	mu         sync.Mutex
	dependents []*Instance
	destroyed  bool
}

func NewInstance(value any, key Key, provider Provider) *Instance {
	return &Instance{value: value, key: key, provider: provider}
}

func (i *Instance) Value() any {
	return i.value
}

// Raw returns the value as built, before any decorator replaced it.
func (i *Instance) Raw() any {
	if i.raw != nil {
		return i.raw
	}
	return i.value
}

func (i *Instance) decorate(v any) {
	if i.raw == nil {
		i.raw = i.value
	}
	i.value = v
}

func (i *Instance) Key() Key {
	return i.key
}

func (i *Instance) Provider() Provider {
	return i.provider
}

func (i *Instance) AddDependent(d *Instance) {
	if d == nil || d == i {
		return
	}
	i.mu.Lock()
	i.dependents = append(i.dependents, d)
	i.mu.Unlock()
}

func (i *Instance) Dependents() []*Instance {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]*Instance, len(i.dependents))
	copy(out, i.dependents)
	return out
}

// Destroy tears down the dependents and then the instance itself. It runs at
// most once.
func (i *Instance) Destroy() error {
	i.mu.Lock()
	if i.destroyed {
		i.mu.Unlock()
		return nil
	}
	i.destroyed = true
	i.mu.Unlock()

	errs := []error{i.destroyDependents()}
	if i.provider != nil {
		errs = append(errs, i.provider.Destroy(i))
	}
	return errors.Join(errs...)
}

func (i *Instance) destroyDependents() error {
	i.mu.Lock()
	deps := i.dependents
	i.dependents = nil
	i.mu.Unlock()

	var errs []error
	for j := len(deps) - 1; j >= 0; j-- {
		if err := deps[j].Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
