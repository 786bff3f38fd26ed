package engine

import (
	"sync"

	"github.com/Paintersrp/cmdlaunch/internal/runtime"
)

// Registry is the set of tracked background processes. It is safe for
// concurrent use; Snapshot copies entries so callers iterate without holding
// the lock.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*runtime.Handle
	order   []string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*runtime.Handle)}
}

// Add inserts a handle. Adding an identifier that is already tracked is a no-op.
func (r *Registry) Add(h *runtime.Handle) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handles[h.ID]; exists {
		return
	}
	r.handles[h.ID] = h
	r.order = append(r.order, h.ID)
}

// Remove deletes the handle with the given id. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id)
}

func (r *Registry) removeLocked(id string) bool {
	if _, ok := r.handles[id]; !ok {
		return false
	}
	delete(r.handles, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the tracked handle with the given id.
func (r *Registry) Get(id string) (*runtime.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	return h, ok
}

// Len reports the number of tracked handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Snapshot returns the tracked handles in insertion order.
func (r *Registry) Snapshot() []*runtime.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*runtime.Handle, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.handles[id])
	}
	return out
}

// Reap polls every tracked handle without blocking and removes the ones
// whose process has exited. The removed handles are returned.
func (r *Registry) Reap() []*runtime.Handle {
	var exited []*runtime.Handle
	for _, h := range r.Snapshot() {
		if h.Poll() == runtime.StateExited {
			exited = append(exited, h)
		}
	}
	if len(exited) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := exited[:0]
	for _, h := range exited {
		if r.removeLocked(h.ID) {
			removed = append(removed, h)
		}
	}
	return removed
}
