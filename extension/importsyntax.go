package extension

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/a-h/pkgrun/pkgregistry"
)

// ImportSyntax rewrites ES-module-style import statements into calls
// against the per-module require() facility (spec.md §4.6's
// Require-import-syntax), as a textual, line-preserving transform: each
// matched import collapses onto the single line it started on.
//
//	import {a, b as c} from 'x'   -> require('x', symbols=["a", "b as c"])
//	import * from 'x'             -> require('x', into=globals())
//	import x from 'x'             -> x = require('x')
//	import 'x'                    -> require('x', exports=false)
type ImportSyntax struct{}

// Name implements extension.Extension.
func (ImportSyntax) Name() string { return "require-import-syntax" }

var (
	importNamed    = regexp.MustCompile(`^(\s*)import\s*\{\s*([^{}]+?)\s*\}\s*from\s*(['"][^'"]+['"])(\s*)$`)
	importStar     = regexp.MustCompile(`^(\s*)import\s*\*\s*from\s*(['"][^'"]+['"])(\s*)$`)
	importDefault  = regexp.MustCompile(`^(\s*)import\s+([A-Za-z_$][\w$]*)\s+from\s*(['"][^'"]+['"])(\s*)$`)
	importBareOnly = regexp.MustCompile(`^(\s*)import\s*(['"][^'"]+['"])(\s*)$`)
)

// PreprocessSource implements extension.SourcePreprocessor.
func (ImportSyntax) PreprocessSource(pkg *pkgregistry.Package, filename, source string) (string, error) {
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		switch {
		case importNamed.MatchString(line):
			m := importNamed.FindStringSubmatch(line)
			lines[i] = fmt.Sprintf("%srequire(%s, symbols=[%s])%s", m[1], m[3], quoteList(m[2]), m[4])
		case importStar.MatchString(line):
			m := importStar.FindStringSubmatch(line)
			lines[i] = fmt.Sprintf("%srequire(%s, into=globals())%s", m[1], m[2], m[3])
		case importDefault.MatchString(line):
			m := importDefault.FindStringSubmatch(line)
			lines[i] = fmt.Sprintf("%s%s = require(%s)%s", m[1], m[2], m[3], m[4])
		case importBareOnly.MatchString(line):
			m := importBareOnly.FindStringSubmatch(line)
			lines[i] = fmt.Sprintf("%srequire(%s, exports=false)%s", m[1], m[2], m[3])
		}
	}
	return strings.Join(lines, "\n"), nil
}

func quoteList(names string) string {
	parts := strings.Split(names, ",")
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		quoted = append(quoted, fmt.Sprintf("%q", p))
	}
	return strings.Join(quoted, ", ")
}
