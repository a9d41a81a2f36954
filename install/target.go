package install

import (
	"fmt"
	"strings"
)

// TargetKind identifies which of the five install target forms spec.md §6
// describes ("<pkg>[@<ver>]", "./path", "<file>.tar.gz", "git+<url>[@<ref>]",
// "py/<host-pkg>[==ver]") a parsed Target represents.
type TargetKind int

const (
	// TargetRegistry names a package and an optional selector, resolved
	// against the registry.
	TargetRegistry TargetKind = iota
	// TargetPath is a local directory containing its own manifest.
	TargetPath
	// TargetArchive is a pre-built dist archive (.tar.gz/.tar.xz) on disk.
	TargetArchive
	// TargetGit is a package fetched from a VCS URL.
	TargetGit
	// TargetNative is a host-language (e.g. pip) dependency, installed by
	// delegating to the native installer rather than the registry.
	TargetNative
)

// Target is one parsed install command-line argument.
type Target struct {
	Kind TargetKind

	// TargetRegistry fields.
	Name     string
	Selector string

	// TargetPath/TargetArchive fields.
	Path string

	// TargetGit fields.
	GitURL string
	GitRef string

	// TargetNative fields.
	NativeName    string
	NativeVersion string

	// Develop marks a -e/--develop install: a link file is written instead
	// of copying (TargetPath only).
	Develop bool
}

// TargetParseError reports an install argument that matched none of the
// recognized forms.
type TargetParseError struct {
	Arg    string
	Reason string
}

func (e *TargetParseError) Error() string {
	return fmt.Sprintf("install: invalid target %q: %s", e.Arg, e.Reason)
}

// ParseTarget parses one of the install command-line argument forms from
// spec.md §6: "<pkg>[@<ver>]", "./path", "../path", "<file>.tar.gz",
// "git+<url>[@<ref>]", or "py/<host-pkg>[==ver]".
func ParseTarget(arg string, develop bool) (Target, error) {
	switch {
	case strings.HasPrefix(arg, "git+"):
		rest := strings.TrimPrefix(arg, "git+")
		url, ref, _ := strings.Cut(rest, "@")
		if url == "" {
			return Target{}, &TargetParseError{Arg: arg, Reason: "git+ target missing URL"}
		}
		return Target{Kind: TargetGit, GitURL: url, GitRef: ref}, nil

	case strings.HasPrefix(arg, "py/"):
		rest := strings.TrimPrefix(arg, "py/")
		name, version, _ := strings.Cut(rest, "==")
		if name == "" {
			return Target{}, &TargetParseError{Arg: arg, Reason: "py/ target missing package name"}
		}
		return Target{Kind: TargetNative, NativeName: name, NativeVersion: version}, nil

	case strings.HasPrefix(arg, "./") || strings.HasPrefix(arg, "../") || arg == "." || arg == "..":
		return Target{Kind: TargetPath, Path: arg, Develop: develop}, nil

	case strings.HasSuffix(arg, ".tar.gz") || strings.HasSuffix(arg, ".tar.xz") || strings.HasSuffix(arg, ".tgz"):
		return Target{Kind: TargetArchive, Path: arg}, nil

	default:
		name, selector, _ := strings.Cut(arg, "@")
		if strings.HasPrefix(arg, "@") {
			// Scoped package name, e.g. "@scope/name[@selector]": the first
			// "@" belongs to the scope, so re-split on the second one.
			rest := strings.TrimPrefix(arg, "@")
			scopedName, sel, ok := strings.Cut(rest, "@")
			name, selector = "@"+scopedName, ""
			if ok {
				selector = sel
			}
		}
		if name == "" {
			return Target{}, &TargetParseError{Arg: arg, Reason: "missing package name"}
		}
		return Target{Kind: TargetRegistry, Name: name, Selector: selector}, nil
	}
}
