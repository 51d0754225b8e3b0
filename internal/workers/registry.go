package workers

import (
	"sync"
	"time"

	"hermes/pkg/errors"
)

// unhealthyErrorRate is the error share above which a worker with enough
// runs counts as unhealthy
const unhealthyErrorRate = 0.5

// Registry tracks workers for health reporting. Health state lives on the
// workers themselves (BaseWorker records runs and errors); the registry
// only aggregates snapshots for the health endpoint.
type Registry struct {
	mu      sync.RWMutex
	workers map[string]WorkerWithHealth
}

// NewRegistry creates a new worker registry
func NewRegistry() *Registry {
	return &Registry{
		workers: make(map[string]WorkerWithHealth),
	}
}

// Register adds a worker to the registry
func (r *Registry) Register(w WorkerWithHealth) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := w.Name()
	if _, exists := r.workers[name]; exists {
		return errors.Wrapf(errors.ErrAlreadyExists, "worker %s already registered", name)
	}

	r.workers[name] = w
	return nil
}

// Get returns a worker by name
func (r *Registry) Get(name string) (WorkerWithHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.workers[name]
	return w, ok
}

// SetEnabled enables or disables a worker by name
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.RLock()
	w, ok := r.workers[name]
	r.mu.RUnlock()

	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "worker %s not found", name)
	}

	w.SetEnabled(enabled)
	return nil
}

// GetAllHealth snapshots health for every registered worker
func (r *Registry) GetAllHealth() map[string]WorkerHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make(map[string]WorkerHealth, len(r.workers))
	for name, w := range r.workers {
		health[name] = w.Health()
	}
	return health
}

// Unhealthy returns names of enabled workers that have not run within
// maxAge or whose error rate is excessive
func (r *Registry) Unhealthy(maxAge time.Duration) []string {
	now := time.Now()

	var unhealthy []string
	for name, h := range r.GetAllHealth() {
		if !h.Enabled {
			continue
		}
		if now.Sub(h.LastRun) > maxAge {
			unhealthy = append(unhealthy, name)
			continue
		}
		if h.RunCount > 10 && float64(h.ErrorCount)/float64(h.RunCount) > unhealthyErrorRate {
			unhealthy = append(unhealthy, name)
		}
	}
	return unhealthy
}

// Count returns the number of registered workers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.workers)
}
