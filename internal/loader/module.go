package loader

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Iron-Ham/postoffice/internal/errors"
	"github.com/Iron-Ham/postoffice/internal/mailbox"
)

// Kind distinguishes data symbols from callable ones.
type Kind int

const (
	// KindValue is a symbol bound to decoded data.
	KindValue Kind = iota
	// KindFunc is a symbol bound to a capability.
	KindFunc
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindFunc:
		return "func"
	default:
		return "unknown"
	}
}

// Symbol is one top-level name defined by a module.
type Symbol struct {
	Name       string
	Kind       Kind
	Value      any            // set for KindValue
	Capability string         // set for KindFunc
	Defaults   map[string]any // arguments bound at definition time

	impl Capability
}

// Call invokes a function symbol. args are merged over the symbol's bound
// defaults. A panicking capability is reported as an error.
func (s Symbol) Call(args map[string]any) (result any, err error) {
	if s.Kind != KindFunc || s.impl == nil {
		return nil, errors.NewValidationError("symbol is not callable").WithField(s.Name)
	}

	merged := make(map[string]any, len(s.Defaults)+len(args))
	maps.Copy(merged, s.Defaults)
	maps.Copy(merged, args)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("capability %s panicked: %v", s.Capability, r)
		}
	}()
	return s.impl.Call(merged)
}

// Module is the handle to a loaded unit. Its namespace holds exactly the
// top-level names the unit defined, in definition order.
type Module struct {
	name string
	path string
	ns   *mailbox.Mailbox[string, Symbol]
}

func newModule(name, path string) *Module {
	return &Module{
		name: name,
		path: path,
		ns:   mailbox.New[string, Symbol](),
	}
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Path returns the resolved source path.
func (m *Module) Path() string { return m.path }

// Len returns the number of defined symbols.
func (m *Module) Len() int { return m.ns.Len() }

// Names returns the defined symbol names in definition order.
func (m *Module) Names() []string {
	return slices.Collect(m.ns.Keys())
}

// Has reports whether the module defines name.
func (m *Module) Has(name string) bool {
	return m.ns.Has(name)
}

// Lookup returns the symbol bound to name, or an *errors.NotFoundError.
func (m *Module) Lookup(name string) (Symbol, error) {
	sym, err := m.ns.Get(name)
	if err != nil {
		return Symbol{}, errors.NewNotFoundError("symbol", name)
	}
	return sym, nil
}

// Value returns the data bound to a value symbol. Function symbols yield
// their capability name.
func (m *Module) Value(name string) (any, error) {
	sym, err := m.Lookup(name)
	if err != nil {
		return nil, err
	}
	if sym.Kind == KindFunc {
		return sym.Capability, nil
	}
	return sym.Value, nil
}

// Call invokes the function symbol name with args.
func (m *Module) Call(name string, args map[string]any) (any, error) {
	sym, err := m.Lookup(name)
	if err != nil {
		return nil, err
	}
	return sym.Call(args)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
