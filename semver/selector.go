package semver

import (
	"fmt"
	"strings"
)

// Kind identifies which of the selector forms spec.md §4.2 describes a
// parsed Selector represents.
type Kind int

const (
	// KindRange matches by version comparison (the "*", "=", inequality,
	// "~", "^", and "||"/whitespace disjunction/conjunction forms).
	KindRange Kind = iota
	// KindGit matches by provenance: a dependency fetched from a VCS URL.
	KindGit
	// KindLocal matches by provenance: a dependency that is a local path.
	KindLocal
)

// Selector is a parsed version constraint. It carries the original string
// it was parsed from so error messages and manifest round-tripping can
// reproduce it exactly.
type Selector struct {
	raw  string
	kind Kind

	// KindRange fields: a disjunction ("||") of conjunctions (whitespace)
	// of individual comparator constraints.
	disjuncts [][]constraint

	// KindGit fields.
	gitURL string
	gitRef string

	// KindLocal fields.
	localPath string
	editable  bool
}

type op int

const (
	opAny op = iota
	opEq
	opGT
	opGTE
	opLT
	opLTE
	opTilde
	opCaret
)

type constraint struct {
	op      op
	version Version
}

// SelectorParseError reports that a selector string did not match any
// recognized form.
type SelectorParseError struct {
	Selector string
	Reason   string
}

func (e *SelectorParseError) Error() string {
	return fmt.Sprintf("semver: invalid selector %q: %s", e.Selector, e.Reason)
}

// ParseSelector parses a version selector or provenance selector string.
func ParseSelector(s string) (Selector, error) {
	raw := s
	trimmed := strings.TrimSpace(s)

	if trimmed == "" || trimmed == "*" {
		return Selector{raw: raw, kind: KindRange, disjuncts: [][]constraint{{{op: opAny}}}}, nil
	}

	if strings.HasPrefix(trimmed, "git+") {
		rest := strings.TrimPrefix(trimmed, "git+")
		url, ref, _ := strings.Cut(rest, "@")
		if url == "" {
			return Selector{}, &SelectorParseError{Selector: raw, Reason: "git+ selector missing URL"}
		}
		return Selector{raw: raw, kind: KindGit, gitURL: url, gitRef: ref}, nil
	}

	if looksLikeLocalPath(trimmed) {
		editable := false
		p := trimmed
		if strings.HasPrefix(p, "-e ") {
			editable = true
			p = strings.TrimSpace(strings.TrimPrefix(p, "-e "))
		}
		return Selector{raw: raw, kind: KindLocal, localPath: p, editable: editable}, nil
	}

	disjuncts := [][]constraint{}
	for _, alt := range strings.Split(trimmed, "||") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			return Selector{}, &SelectorParseError{Selector: raw, Reason: "empty alternative in disjunction"}
		}
		var conj []constraint
		for _, field := range strings.Fields(alt) {
			c, err := parseConstraint(field)
			if err != nil {
				return Selector{}, &SelectorParseError{Selector: raw, Reason: err.Error()}
			}
			conj = append(conj, c)
		}
		disjuncts = append(disjuncts, conj)
	}

	return Selector{raw: raw, kind: KindRange, disjuncts: disjuncts}, nil
}

func looksLikeLocalPath(s string) bool {
	p := s
	if strings.HasPrefix(p, "-e ") {
		p = strings.TrimSpace(strings.TrimPrefix(p, "-e "))
	}
	return strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../") || p == "." || p == ".."
}

func parseConstraint(field string) (constraint, error) {
	for _, prefix := range []struct {
		s  string
		op op
	}{
		{"==", opEq},
		{"=", opEq},
		{">=", opGTE},
		{"<=", opLTE},
		{">", opGT},
		{"<", opLT},
		{"~", opTilde},
		{"^", opCaret},
	} {
		if strings.HasPrefix(field, prefix.s) {
			vs := strings.TrimSpace(strings.TrimPrefix(field, prefix.s))
			v, err := Parse(vs)
			if err != nil {
				return constraint{}, fmt.Errorf("invalid version %q: %w", vs, err)
			}
			return constraint{op: prefix.op, version: v}, nil
		}
	}
	// A bare version with no operator is treated as an exact match.
	v, err := Parse(field)
	if err != nil {
		return constraint{}, fmt.Errorf("unrecognized constraint %q", field)
	}
	return constraint{op: opEq, version: v}, nil
}

// Kind reports which selector form this Selector represents.
func (s Selector) Kind() Kind { return s.kind }

// String returns the original selector text.
func (s Selector) String() string { return s.raw }

// GitURL and GitRef are valid when Kind() == KindGit.
func (s Selector) GitURL() string { return s.gitURL }
func (s Selector) GitRef() string { return s.gitRef }

// LocalPath and Editable are valid when Kind() == KindLocal.
func (s Selector) LocalPath() string { return s.localPath }
func (s Selector) Editable() bool    { return s.editable }

// Matches reports whether v satisfies this selector. It only applies to
// KindRange selectors; Git and Local selectors match by provenance and
// always report false here.
func (s Selector) Matches(v Version) bool {
	if s.kind != KindRange {
		return false
	}
	for _, conj := range s.disjuncts {
		if conjunctionMatches(conj, v) {
			return true
		}
	}
	return false
}

// namesPrerelease reports whether any constraint in the selector explicitly
// names a pre-release version, per the open-question resolution in
// spec.md §9: range selectors ("^", "~", "*", inequalities) exclude
// pre-release candidates unless the selector itself names one.
func (s Selector) namesPrerelease() bool {
	for _, conj := range s.disjuncts {
		for _, c := range conj {
			if c.version.IsPrerelease() {
				return true
			}
		}
	}
	return false
}

func conjunctionMatches(conj []constraint, v Version) bool {
	for _, c := range conj {
		if !constraintMatches(c, v) {
			return false
		}
	}
	if v.IsPrerelease() && !namesPrerelease(conj) {
		return false
	}
	return true
}

func hasCaretOrTilde(conj []constraint) bool {
	for _, c := range conj {
		if c.op == opCaret || c.op == opTilde {
			return true
		}
	}
	return false
}

func namesPrerelease(conj []constraint) bool {
	for _, c := range conj {
		if c.op != opAny && c.version.IsPrerelease() {
			return true
		}
	}
	return false
}

func constraintMatches(c constraint, v Version) bool {
	switch c.op {
	case opAny:
		return true
	case opEq:
		return v.Compare(c.version) == 0
	case opGT:
		return v.Compare(c.version) > 0
	case opGTE:
		return v.Compare(c.version) >= 0
	case opLT:
		return v.Compare(c.version) < 0
	case opLTE:
		return v.Compare(c.version) <= 0
	case opTilde:
		return v.Major() == c.version.Major() &&
			v.Minor() == c.version.Minor() &&
			v.Patch() >= c.version.Patch()
	case opCaret:
		if v.Major() != c.version.Major() {
			return false
		}
		if v.Minor() != c.version.Minor() {
			return v.Minor() > c.version.Minor()
		}
		return v.Patch() >= c.version.Patch()
	default:
		return false
	}
}

// ExactVersion reports the version this selector pins to, if it consists of
// a single "="/"==" constraint (or a bare version, which parses the same
// way) with no other constraint, disjunct, or operator. Range selectors
// with inequalities, "~"/"^", or multiple disjuncts/conjuncts return false,
// since those name a set of acceptable versions rather than pinning one.
func (s Selector) ExactVersion() (Version, bool) {
	if s.kind != KindRange || len(s.disjuncts) != 1 || len(s.disjuncts[0]) != 1 {
		return Version{}, false
	}
	c := s.disjuncts[0][0]
	if c.op != opEq {
		return Version{}, false
	}
	return c.version, true
}

// Best returns the maximum version in versions that matches the selector,
// under the numeric order defined by Version.Compare. It returns false if
// no candidate matches. Best is monotone: for a selector s1 narrower than
// s2 (every version matching s1 also matches s2), best(s1, V) <= best(s2, V)
// whenever both match, because Best never picks a version outside the set
// each selector already independently matches.
func (s Selector) Best(versions []Version) (Version, bool) {
	var best Version
	found := false
	for _, v := range versions {
		if !s.Matches(v) {
			continue
		}
		if !found || v.Compare(best) > 0 {
			best = v
			found = true
		}
	}
	return best, found
}
