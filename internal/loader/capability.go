package loader

import (
	"slices"
	"sync"

	"github.com/Iron-Ham/postoffice/internal/errors"
)

// Capability is a Go function a module may bind to one of its symbols.
// Modules cannot run anything that has not been registered as a capability.
type Capability interface {
	Name() string
	Call(args map[string]any) (any, error)
}

// CapabilityFunc adapts a plain function to the Capability interface.
type CapabilityFunc struct {
	ID string
	Fn func(args map[string]any) (any, error)
}

// Name returns the capability identifier.
func (c CapabilityFunc) Name() string { return c.ID }

// Call invokes the wrapped function.
func (c CapabilityFunc) Call(args map[string]any) (any, error) { return c.Fn(args) }

// Registry maps capability names to implementations.
// It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	caps map[string]Capability
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]Capability)}
}

// Register adds c to the registry. Registering a name twice fails with an
// *errors.AlreadyExistsError.
func (r *Registry) Register(c Capability) error {
	name := c.Name()
	if name == "" {
		return errors.NewValidationError("capability name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.caps[name]; exists {
		return errors.NewAlreadyExistsError("capability", name)
	}
	r.caps[name] = c
	return nil
}

// Get returns the capability registered under name.
func (r *Registry) Get(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[name]
	return c, ok
}

// Names returns the registered capability names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.caps))
	for name := range r.caps {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry, populated with the
// built-in capabilities writing to standard output.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		// Registering into an empty registry cannot collide.
		_ = RegisterBuiltins(defaultRegistry, nil, nil)
	})
	return defaultRegistry
}
