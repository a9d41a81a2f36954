// Package manifest parses, validates, and serializes package manifests (the
// JSON format described in spec.md §6), exposing a typed view over the raw
// document. All map-shaped fields preserve insertion order on write, per
// spec.md §6's "all maps preserve insertion order on write" requirement.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Manifest is the typed view of a package manifest document.
type Manifest struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Engines *StringMap        `json:"engines,omitempty"`
	License string            `json:"license,omitempty"`
	Main    string            `json:"main,omitempty"`
	Bin     *StringMap        `json:"bin,omitempty"`
	Scripts *StringMap        `json:"scripts,omitempty"`

	Dependencies        *StringMap `json:"dependencies,omitempty"`
	DevDependencies      *StringMap `json:"dev-dependencies,omitempty"`
	PythonDependencies    *StringMap `json:"python-dependencies,omitempty"`
	DevPythonDependencies *StringMap `json:"dev-python-dependencies,omitempty"`

	Extensions        []string `json:"extensions,omitempty"`
	ResolveRoot       string   `json:"resolve_root,omitempty"`
	VendorDirectories []string `json:"vendor-directories,omitempty"`
	Dist              *Dist    `json:"dist,omitempty"`
	Private           bool     `json:"private,omitempty"`
	Repository        string   `json:"repository,omitempty"`
}

// Dist holds the fields controlling the dist packer's include/exclude
// pattern resolution (spec.md §4.9) and, per SPEC_FULL.md, an optional
// archive compression choice.
type Dist struct {
	IncludeFiles []string `json:"include_files,omitempty"`
	ExcludeFiles []string `json:"exclude_files,omitempty"`
	// Compression selects the dist archive codec: "gzip" (default) or "xz".
	Compression string `json:"compression,omitempty"`
}

var nameRe = regexp.MustCompile(`^(@[a-zA-Z0-9._-]+/)?[a-zA-Z0-9._-]+$`)

// InvalidManifestError reports a manifest that failed to parse or failed
// schema validation.
type InvalidManifestError struct {
	Reason string
}

func (e *InvalidManifestError) Error() string {
	return fmt.Sprintf("manifest: invalid manifest: %s", e.Reason)
}

// Parse decodes a manifest document.
func Parse(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, &InvalidManifestError{Reason: err.Error()}
	}
	return m, nil
}

// Validate enforces the install-time schema rules from spec.md §4.8 step 2:
// name and version are required, and the name's characters are restricted
// to ASCII letters, digits, ".-_", plus an optional "@scope/" prefix.
func (m Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return &InvalidManifestError{Reason: "missing name"}
	}
	if strings.TrimSpace(m.Version) == "" {
		return &InvalidManifestError{Reason: "missing version"}
	}
	if !nameRe.MatchString(m.Name) {
		return &InvalidManifestError{Reason: fmt.Sprintf("disallowed characters in name %q", m.Name)}
	}
	return nil
}

// ValidateForPublish additionally requires a license field, per spec.md §6.
func (m Manifest) ValidateForPublish() error {
	if err := m.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(m.License) == "" {
		return &InvalidManifestError{Reason: "license is required to publish"}
	}
	return nil
}

// IsScoped reports whether the manifest name carries an "@scope/" prefix,
// and returns the scope (without "@" or the trailing "/") when it does.
func (m Manifest) IsScoped() (scope string, scoped bool) {
	if !strings.HasPrefix(m.Name, "@") {
		return "", false
	}
	idx := strings.Index(m.Name, "/")
	if idx < 0 {
		return "", false
	}
	return m.Name[1:idx], true
}

// UnscopedName returns the package name with any "@scope/" prefix removed.
func (m Manifest) UnscopedName() string {
	if _, scoped := m.IsScoped(); !scoped {
		return m.Name
	}
	idx := strings.Index(m.Name, "/")
	return m.Name[idx+1:]
}

// Serialize writes the manifest back to JSON with 2-space indentation, per
// spec.md §4.8 step 6 ("rewrites the root manifest with 2-space
// indentation"). Map keys keep the order they were parsed (or inserted)
// in; top-level fields are always written in struct field order.
func (m Manifest) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("manifest: failed to serialize: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// AddDependency inserts or updates a dependency entry under the named
// section ("dependencies", "dev-dependencies", or "extensions"), creating
// the section if necessary. This backs the installer's --save/--save-dev
// and --save-ext flags (spec.md §4.8 step 6).
func (m *Manifest) AddDependency(section, name, selector string) error {
	switch section {
	case "dependencies":
		if m.Dependencies == nil {
			m.Dependencies = NewStringMap()
		}
		m.Dependencies.Set(name, selector)
	case "dev-dependencies":
		if m.DevDependencies == nil {
			m.DevDependencies = NewStringMap()
		}
		m.DevDependencies.Set(name, selector)
	case "extensions":
		for _, e := range m.Extensions {
			if e == name {
				return nil
			}
		}
		m.Extensions = append(m.Extensions, name)
	default:
		return fmt.Errorf("manifest: unknown save section %q", section)
	}
	return nil
}
