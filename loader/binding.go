package loader

import (
	"fmt"
	"strings"
	"time"

	"github.com/a-h/pkgrun/module"
	"github.com/a-h/pkgrun/pkgpath"
)

// NoSuchBindingError reports a "!name" request with no registered binding.
type NoSuchBindingError struct {
	Name string
}

func (e *NoSuchBindingError) Error() string {
	return fmt.Sprintf("loader: no such binding %q", e.Name)
}

// Binding loads "!name" requests by looking the suffix up in a fixed table
// supplied by the Context (spec.md §4.4).
type Binding struct {
	Bindings func() map[string]any
	now      func() time.Time
}

// NewBinding builds a Binding loader backed by the given table accessor
// (read lazily on each Load, so new bindings registered after construction
// are visible).
func NewBinding(bindings func() map[string]any) *Binding {
	return &Binding{Bindings: bindings, now: time.Now}
}

// Suffixes implements Loader; Binding is reached via request string ("!"),
// not a file suffix, so it claims none.
func (b *Binding) Suffixes() []string { return nil }

// Load implements Loader.
func (b *Binding) Load(m *module.Module, target pkgpath.Path) error {
	name := strings.TrimPrefix(target.String(), "!")
	table := b.Bindings()
	value, ok := table[name]
	if !ok {
		return &NoSuchBindingError{Name: name}
	}
	m.Namespace = map[string]any{}
	m.MarkExecuted(value, b.now())
	return nil
}
