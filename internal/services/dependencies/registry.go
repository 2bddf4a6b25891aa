package dependencies

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// registry holds one instance per key, built at most once even when many
// goroutines ask for it at the same time.
type registry struct {
	instances sync.Map
	sfGroup   singleflight.Group
}

func newRegistry() *registry {
	return &registry{}
}

// resolve returns the instance stored under key, building it with factory
// on first use. A failed build is not stored, so the next call retries.
func resolve[T any](r *registry, key string, factory func() (T, error)) (T, error) {
	if cached, ok := r.instances.Load(key); ok {
		return cached.(T), nil
	}

	v, err, _ := r.sfGroup.Do(key, func() (any, error) {
		// Double-check after acquiring the singleflight slot
		if cached, ok := r.instances.Load(key); ok {
			return cached.(T), nil
		}

		instance, err := factory()
		if err != nil {
			return nil, err
		}

		r.instances.Store(key, instance)
		return instance, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return v.(T), nil
}

// loaded returns the instance under key without building it.
func (r *registry) loaded(key string) (any, bool) {
	return r.instances.Load(key)
}

// clear drops every instance.
func (r *registry) clear() {
	r.instances.Range(func(key, _ any) bool {
		r.instances.Delete(key)
		return true
	})
}
