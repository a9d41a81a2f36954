// Package loader implements the loader chain from spec.md §4.4: given a
// Path the resolver produced, read, preprocess, and execute its contents to
// produce a Module.
package loader

import (
	"fmt"
	"strings"

	"github.com/a-h/pkgrun/module"
	"github.com/a-h/pkgrun/pkgpath"
)

// LoadError reports a failure while reading, preprocessing, or executing a
// module's source.
type LoadError struct {
	Path   string
	Reason string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loader: failed to load %q: %s", e.Path, e.Reason)
}

// Loader turns a resolved Path into an executed Module.
type Loader interface {
	// Suffixes lists the file suffixes this loader claims (e.g. ".py");
	// empty for loaders only reachable via an explicit hint or a
	// non-suffix request form (the binding loader).
	Suffixes() []string
	// Load reads target, builds m's namespace, and executes it.
	Load(m *module.Module, target pkgpath.Path) error
}

// Chain dispatches to a Loader by suffix (most specific first) or by an
// explicit hint carried on the Request.
type Chain struct {
	bySuffix map[string]Loader
	byHint   map[string]Loader
}

// NewChain builds an empty loader Chain.
func NewChain() *Chain {
	return &Chain{bySuffix: map[string]Loader{}, byHint: map[string]Loader{}}
}

// Register adds a loader, indexing it by every suffix it claims, and
// additionally under hint if non-empty (so "-L hint" CLI forms and explicit
// require(loader=...) overrides can find it by name).
func (c *Chain) Register(hint string, l Loader) {
	for _, suf := range l.Suffixes() {
		c.bySuffix[suf] = l
	}
	if hint != "" {
		c.byHint[hint] = l
	}
}

// For picks the loader for target, preferring req's explicit hint, then the
// most specific (longest) matching registered suffix.
func (c *Chain) For(target pkgpath.Path, hint string) (Loader, error) {
	if hint != "" {
		if l, ok := c.byHint[hint]; ok {
			return l, nil
		}
		return nil, &LoadError{Path: target.String(), Reason: fmt.Sprintf("unknown loader hint %q", hint)}
	}

	name := target.Name()
	var best Loader
	var bestLen int
	for suf, l := range c.bySuffix {
		if strings.HasSuffix(name, suf) && len(suf) > bestLen {
			best, bestLen = l, len(suf)
		}
	}
	if best == nil {
		return nil, &LoadError{Path: target.String(), Reason: "no loader registered for this suffix"}
	}
	return best, nil
}

// Load resolves the right loader for target and runs it.
func (c *Chain) Load(m *module.Module, target pkgpath.Path, hint string) error {
	l, err := c.For(target, hint)
	if err != nil {
		return err
	}
	return l.Load(m, target)
}
