// Package resolver implements the resolver chain described in spec.md §4.3:
// given a Request, find the concrete Path it refers to. Resolvers are tried
// in insertion order; the first to report a match wins.
package resolver

import (
	"fmt"
	"strings"

	"github.com/a-h/pkgrun/module"
	"github.com/a-h/pkgrun/pkgpath"
)

// ResolveError reports that no resolver in the chain could satisfy a
// Request.
type ResolveError struct {
	Request  string
	Searched []string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolver: could not resolve %q (searched %d location(s): %s)",
		e.Request, len(e.Searched), strings.Join(e.Searched, ", "))
}

// Resolver attempts to satisfy a Request. found is false (with a nil error)
// when this resolver simply does not handle the request, letting the chain
// move on to the next one; a non-nil error aborts the whole chain.
type Resolver interface {
	Resolve(req *module.Request) (target pkgpath.Path, found bool, err error)
}

// Chain tries each Resolver in order and memoizes successful resolutions by
// (current_dir, request), per spec.md §4.3 ("resolution is idempotent and
// cacheable per (current_dir, request) pair").
type Chain struct {
	resolvers []Resolver
	cache     map[cacheKey]pkgpath.Path
}

type cacheKey struct {
	currentDir string
	request    string
}

// New builds a Chain from resolvers in the priority order they should be
// tried.
func New(resolvers ...Resolver) *Chain {
	return &Chain{resolvers: resolvers, cache: map[cacheKey]pkgpath.Path{}}
}

// Resolve runs the chain against req, returning the first resolver's match.
func (c *Chain) Resolve(req *module.Request) (pkgpath.Path, error) {
	key := cacheKey{request: req.String}
	if req.CurrentDir != nil {
		key.currentDir = req.CurrentDir.String()
	}
	if cached, ok := c.cache[key]; ok {
		return cached, nil
	}

	var searched []string
	for _, r := range c.resolvers {
		target, found, err := r.Resolve(req)
		if err != nil {
			return nil, err
		}
		if found {
			c.cache[key] = target
			return target, nil
		}
		searched = append(searched, fmt.Sprintf("%T", r))
	}
	return nil, &ResolveError{Request: req.String, Searched: searched}
}
