package install

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/a-h/pkgrun/install/history"
	"github.com/a-h/pkgrun/manifest"
	"github.com/a-h/pkgrun/semver"
)

// rootRequest is a single edge in the dependency graph being expanded: name
// is requested by dependent (empty for a command-line root target) under
// selector.
type rootRequest struct {
	name      string
	selector  string
	dependent string
}

// resolvedPackage is one entry in the expanded, version-decided dependency
// graph, ready for placement.
type resolvedPackage struct {
	Name       string
	Version    string
	Manifest   manifest.Manifest
	Dependents []string
}

func (p *resolvedPackage) addDependent(name string) {
	for _, d := range p.Dependents {
		if d == name {
			return
		}
	}
	p.Dependents = append(p.Dependents, name)
}

// nativeRequest is a dependency resolved to the host-language installer
// rather than the registry.
type nativeRequest struct {
	name     string
	selector string
}

// maxResolveIterations bounds the BFS below: every real graph converges in
// well under this many edges, so hitting it means a cycle is thrashing
// between two incompatible version choices rather than genuinely expanding.
const maxResolveIterations = 10000

// resolveGraph expands roots into the full transitive dependency set,
// picking one version per package name by the "most dependents satisfied"
// heuristic from spec.md §4.8 step 3, recording every multi-selector
// conflict via hist. dev is true when the root target's own
// dev-dependencies should be expanded (spec.md §4.8 step 3: "Dev-dependencies
// are only expanded for the root target").
func (inst *Installer) resolveGraph(ctx context.Context, roots []rootRequest, hist *history.History, dev bool) (map[string]*resolvedPackage, []nativeRequest, error) {
	resolved := map[string]*resolvedPackage{}
	requests := map[string][]string{} // name -> every selector requested so far
	var natives []nativeRequest

	queue := append([]rootRequest(nil), roots...)
	seenEdge := map[string]bool{}

	iterations := 0
	for len(queue) > 0 {
		iterations++
		if iterations > maxResolveIterations {
			return nil, nil, &ConflictUnresolvedError{Package: queue[0].name}
		}

		req := queue[0]
		queue = queue[1:]

		edgeKey := req.dependent + "->" + req.name + "@" + req.selector
		if seenEdge[edgeKey] {
			continue
		}
		seenEdge[edgeKey] = true

		requests[req.name] = append(requests[req.name], req.selector)

		versions, err := inst.Registry.Versions(ctx, req.name)
		if err != nil {
			return nil, nil, fmt.Errorf("install: listing versions for %q: %w", req.name, err)
		}

		best, err := pickBestVersion(req.name, versions, requests[req.name])
		if err != nil {
			return nil, nil, err
		}

		if len(uniqueStrings(requests[req.name])) > 1 {
			if hist != nil {
				hist.RecordConflict(ctx, history.ConflictDecision{
					Package:   req.name,
					Requested: append([]string(nil), requests[req.name]...),
					Resolved:  best,
					Reason:    "selected the version satisfying the most requesting dependents",
					DecidedAt: time.Now(),
				})
			}
		}

		if existing, ok := resolved[req.name]; ok {
			existing.addDependent(req.dependent)
			if existing.Version == best {
				continue
			}
		}

		m, err := inst.Registry.Manifest(ctx, req.name, best)
		if err != nil {
			return nil, nil, fmt.Errorf("install: fetching manifest for %s@%s: %w", req.name, best, err)
		}

		pkg := &resolvedPackage{Name: req.name, Version: best, Manifest: m}
		pkg.addDependent(req.dependent)
		resolved[req.name] = pkg

		isRoot := req.dependent == ""
		for dep, sel := range stringMapOf(m.Dependencies) {
			queue = append(queue, rootRequest{name: dep, selector: sel, dependent: req.name})
		}
		for dep, sel := range stringMapOf(m.PythonDependencies) {
			natives = append(natives, nativeRequest{name: dep, selector: sel})
		}
		if isRoot && dev {
			for dep, sel := range stringMapOf(m.DevDependencies) {
				queue = append(queue, rootRequest{name: dep, selector: sel, dependent: req.name})
			}
			for dep, sel := range stringMapOf(m.DevPythonDependencies) {
				natives = append(natives, nativeRequest{name: dep, selector: sel})
			}
		}
	}

	return resolved, natives, nil
}

func stringMapOf(sm *manifest.StringMap) map[string]string {
	if sm == nil {
		return nil
	}
	out := map[string]string{}
	for _, k := range sm.Keys() {
		v, _ := sm.Get(k)
		out[k] = v
	}
	return out
}

func uniqueStrings(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// pickBestVersion parses candidates and every selector in selectors,
// returning the candidate satisfying the largest number of selectors (ties
// broken by the highest version), per spec.md §4.8 step 3. It raises
// InstallConflictError first when two or more of the unique selectors pin
// name to different exact versions, since no "most dependents satisfied"
// heuristic can paper over that: picking either exact version breaks the
// dependent that pinned the other one.
func pickBestVersion(name string, candidates []string, selectors []string) (string, error) {
	versions := make([]semver.Version, 0, len(candidates))
	for _, c := range candidates {
		v, err := semver.Parse(c)
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	if len(versions) == 0 {
		return "", &UnsatisfiableSelectorError{Package: name, Selectors: selectors}
	}
	semver.SortVersions(versions)

	parsed := make([]semver.Selector, 0, len(uniqueStrings(selectors)))
	for _, s := range uniqueStrings(selectors) {
		sel, err := semver.ParseSelector(s)
		if err != nil {
			return "", fmt.Errorf("install: %w", err)
		}
		parsed = append(parsed, sel)
	}

	exact := map[string]bool{}
	for _, sel := range parsed {
		if v, ok := sel.ExactVersion(); ok {
			exact[v.String()] = true
		}
	}
	if len(exact) > 1 {
		return "", &InstallConflictError{Package: name, Requests: uniqueStrings(selectors)}
	}

	type scored struct {
		v     semver.Version
		count int
	}
	var scores []scored
	for _, v := range versions {
		count := 0
		for _, sel := range parsed {
			if sel.Matches(v) {
				count++
			}
		}
		if count > 0 {
			scores = append(scores, scored{v: v, count: count})
		}
	}
	if len(scores) == 0 {
		return "", &UnsatisfiableSelectorError{Package: name, Selectors: selectors}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].count != scores[j].count {
			return scores[i].count > scores[j].count
		}
		return scores[i].v.Compare(scores[j].v) > 0
	})
	return scores[0].v.String(), nil
}
