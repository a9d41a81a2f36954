package install

import "fmt"

// UnsatisfiableSelectorError reports that no version the registry advertises
// for name satisfies any of the requested selectors.
type UnsatisfiableSelectorError struct {
	Package   string
	Selectors []string
}

func (e *UnsatisfiableSelectorError) Error() string {
	return fmt.Sprintf("install: no version of %q satisfies any of %v", e.Package, e.Selectors)
}

// InstallConflictError reports that two dependents pin the same package to
// different exact ("="/"==") selectors, a conflict no single version choice
// can satisfy (spec.md §7: "two dependents require incompatible exact
// selectors").
type InstallConflictError struct {
	Package  string
	Requests []string
}

func (e *InstallConflictError) Error() string {
	return fmt.Sprintf("install: %q is required at incompatible exact versions: %v", e.Package, e.Requests)
}

// ConflictUnresolvedError reports a dependency cycle or graph pathology that
// kept expanding past the installer's iteration guard without converging.
type ConflictUnresolvedError struct {
	Package string
}

func (e *ConflictUnresolvedError) Error() string {
	return fmt.Sprintf("install: dependency graph for %q did not converge within the iteration limit", e.Package)
}

// HookPartialError reports that placement of a package succeeded but a
// lifecycle hook failed, leaving a "<dir>.partial" sentinel beside its directory per
// spec.md's "partially-placed directories must not be left with a valid
// manifest" requirement.
type HookPartialError struct {
	Package string
	Err     error
}

func (e *HookPartialError) Error() string {
	return fmt.Sprintf("install: %q placed but a lifecycle hook failed: %v", e.Package, e.Err)
}

func (e *HookPartialError) Unwrap() error { return e.Err }
