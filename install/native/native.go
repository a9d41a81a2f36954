// Package native validates and resolves the version selectors written
// against native (python-dependencies) manifest entries, using PEP 440
// specifier semantics rather than the semver selector grammar that governs
// plain "dependencies" entries.
package native

import (
	"fmt"
	"sort"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// Specifier is a parsed PEP 440 version specifier set, e.g. ">=2.8.1,<3".
type Specifier struct {
	raw  string
	spec pep440.Specifiers
}

// ParseSpecifier parses a python-dependencies selector string. An empty
// string matches any version.
func ParseSpecifier(selector string) (Specifier, error) {
	if selector == "" {
		return Specifier{raw: selector}, nil
	}
	spec, err := pep440.NewSpecifiers(selector)
	if err != nil {
		return Specifier{}, fmt.Errorf("native: invalid specifier %q: %w", selector, err)
	}
	return Specifier{raw: selector, spec: spec}, nil
}

// String returns the selector text this Specifier was parsed from.
func (s Specifier) String() string { return s.raw }

// Matches reports whether version satisfies the specifier.
func (s Specifier) Matches(version string) (bool, error) {
	if s.raw == "" {
		return true, nil
	}
	v, err := pep440.Parse(version)
	if err != nil {
		return false, fmt.Errorf("native: invalid version %q: %w", version, err)
	}
	return s.spec.Check(v), nil
}

// Best returns the highest version in candidates that satisfies the
// specifier, mirroring the teacher's version-filtering approach in
// python/save/save.go but picking a single installation candidate instead
// of filtering an index wholesale.
func (s Specifier) Best(candidates []string) (string, bool, error) {
	type parsed struct {
		raw string
		v   pep440.Version
	}
	var matches []parsed
	for _, c := range candidates {
		v, err := pep440.Parse(c)
		if err != nil {
			return "", false, fmt.Errorf("native: invalid candidate version %q: %w", c, err)
		}
		ok, err := s.Matches(c)
		if err != nil {
			return "", false, err
		}
		if ok {
			matches = append(matches, parsed{raw: c, v: v})
		}
	}
	if len(matches) == 0 {
		return "", false, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].v.Compare(matches[j].v) < 0
	})
	return matches[len(matches)-1].raw, true, nil
}
