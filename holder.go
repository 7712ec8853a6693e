package porto

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Holder is the name-indexed container registry described by §4.7: a flat
// map guarded by one mutex. It does not hold any per-container state
// itself — that lives on the Container value, guarded by its own mutex —
// so Holder operations never block on a container's Start/Stop.
type Holder struct {
	mu         sync.Mutex
	containers map[string]*Container
}

// NewHolder returns an empty registry.
func NewHolder() *Holder {
	return &Holder{containers: make(map[string]*Container)}
}

// Create registers a new, Stopped container under name. Rejects duplicates.
func (h *Holder) Create(name string) (*Container, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.containers[name]; ok {
		return nil, NewError(KindInvalidValue, 0, fmt.Sprintf("container %q already exists", name))
	}
	c := NewContainer(name)
	h.containers[name] = c
	return c, nil
}

// Find looks up a container by name.
func (h *Holder) Find(name string) (*Container, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.containers[name]
	if !ok {
		return nil, NewError(KindNotFound, 0, fmt.Sprintf("container %q not found", name))
	}
	return c, nil
}

// List returns every registered container's name, sorted.
func (h *Holder) List() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, 0, len(h.containers))
	for name := range h.containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Destroy stops name's container (if running), marks it Destroying, and
// removes it from the registry — matching §4.7's "transitions the
// container through Stop then marks Destroying before removal". A
// concurrent Find still resolves the container while it is marked
// Destroying; SetProperty/Start reject it since neither state is Stopped.
func (h *Holder) Destroy(ctx context.Context, name string, grace time.Duration) error {
	h.mu.Lock()
	c, ok := h.containers[name]
	h.mu.Unlock()
	if !ok {
		return NewError(KindNotFound, 0, fmt.Sprintf("container %q not found", name))
	}

	if err := c.Stop(ctx, grace); err != nil {
		return WrapError(KindUnknown, err, fmt.Sprintf("destroy %q", name))
	}

	c.mu.Lock()
	c.status = Destroying
	c.mu.Unlock()

	h.mu.Lock()
	delete(h.containers, name)
	h.mu.Unlock()
	return nil
}
