package matrix

import "fmt"

// Factory builds a linear system of the given size.
type Factory func(size int, isComplex bool) (*System, error)

// Registry holds the available sparse-solver backends. It is constructed
// explicitly and passed to the solver code; there is no package-level state.
type Registry struct {
	factories map[string]Factory
}

// LU is the default backend name.
const LU = "lu"

// NewRegistry returns a registry with the LU backend registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(LU, newLUSystem)
	return r
}

// Register adds or replaces a backend.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// New builds a system using the named backend.
func (r *Registry) New(name string, size int, isComplex bool) (*System, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown solver backend %q", name)
	}
	return f(size, isComplex)
}
