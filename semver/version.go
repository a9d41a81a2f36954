// Package semver implements the reduced SemVer dialect this module's
// manifests use for dependency version matching. It is deliberately not a
// full SemVer 2.0 implementation (build metadata is accepted but ignored,
// and the set of selector forms is the minimum spec.md §4.2 requires) -
// raw numeric and pre-release ordering is delegated to
// github.com/Masterminds/semver/v3 so this package only has to own the
// selector syntax and precedence rules layered on top of it.
package semver

import (
	"fmt"
	"strings"

	mastsemver "github.com/Masterminds/semver/v3"
)

// Version is a parsed MAJOR.MINOR.PATCH[-PRERELEASE] version.
type Version struct {
	raw string
	v   *mastsemver.Version
}

// Parse parses a version string of the form MAJOR.MINOR.PATCH[-PRERELEASE].
// Build metadata (a trailing "+..." segment) is accepted and ignored.
func Parse(s string) (Version, error) {
	v, err := mastsemver.StrictNewVersion(strings.TrimSpace(s))
	if err != nil {
		return Version{}, fmt.Errorf("semver: invalid version %q: %w", s, err)
	}
	return Version{raw: s, v: v}, nil
}

// String returns the original, as-parsed version string.
func (v Version) String() string {
	return v.raw
}

// Major, Minor, and Patch return the respective numeric components.
func (v Version) Major() uint64 { return v.v.Major() }
func (v Version) Minor() uint64 { return v.v.Minor() }
func (v Version) Patch() uint64 { return v.v.Patch() }

// Prerelease returns the dot-separated pre-release identifier string, or ""
// if the version names no pre-release.
func (v Version) Prerelease() string { return v.v.Prerelease() }

// IsPrerelease reports whether this version carries a pre-release tag.
func (v Version) IsPrerelease() bool { return v.Prerelease() != "" }

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other, using numeric triple comparison with pre-release versions sorting
// below their corresponding release (SemVer 2.0 §11 precedence, which
// Masterminds/semver/v3 already implements correctly for dotted identifier
// comparison).
func (v Version) Compare(other Version) int {
	return v.v.Compare(other.v)
}

// Max returns whichever of a, b compares greater.
func Max(a, b Version) Version {
	if a.Compare(b) >= 0 {
		return a
	}
	return b
}

// SortVersions sorts versions ascending in place.
func SortVersions(versions []Version) {
	for i := 1; i < len(versions); i++ {
		for j := i; j > 0 && versions[j-1].Compare(versions[j]) > 0; j-- {
			versions[j-1], versions[j] = versions[j], versions[j-1]
		}
	}
}
