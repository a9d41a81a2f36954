package extension

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/a-h/pkgrun/pkgregistry"
)

// unpackPattern matches "{a, b as c} = require('x')" style destructuring
// assignments (spec.md §4.6's Require-unpack-syntax).
var unpackPattern = regexp.MustCompile(`\{\s*([^{}]+?)\s*\}\s*=\s*(require\(\s*['"][^'"]+['"]\s*\))`)

// UnpackSyntax rewrites "{a, b as c} = require('x')" into an explicit
// temporary-plus-attribute-assignment form. It is a textual, line-preserving
// transform: the whole destructuring assignment collapses onto the single
// line it started on, using ";" to separate the generated statements so
// line numbers in the rest of the file are unaffected.
type UnpackSyntax struct {
	tmpCounter int
}

// Name implements extension.Extension.
func (u *UnpackSyntax) Name() string { return "require-unpack-syntax" }

// PreprocessSource implements extension.SourcePreprocessor.
func (u *UnpackSyntax) PreprocessSource(pkg *pkgregistry.Package, filename, source string) (string, error) {
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		lines[i] = unpackPattern.ReplaceAllStringFunc(line, func(match string) string {
			sub := unpackPattern.FindStringSubmatch(match)
			names, requireCall := sub[1], sub[2]
			return u.expand(names, requireCall)
		})
	}
	return strings.Join(lines, "\n"), nil
}

func (u *UnpackSyntax) expand(names, requireCall string) string {
	u.tmpCounter++
	tmp := fmt.Sprintf("__pkgrun_unpack_%d", u.tmpCounter)
	stmts := []string{fmt.Sprintf("%s = %s", tmp, requireCall)}
	for _, field := range strings.Split(names, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		source, alias := field, field
		if idx := strings.Index(field, " as "); idx >= 0 {
			source = strings.TrimSpace(field[:idx])
			alias = strings.TrimSpace(field[idx+len(" as "):])
		}
		stmts = append(stmts, fmt.Sprintf("%s = %s.%s", alias, tmp, source))
	}
	return strings.Join(stmts, "; ")
}
