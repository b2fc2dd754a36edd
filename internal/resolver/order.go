package resolver

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/doylet/guardrails-ai-sub001/internal/domain/manifest"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/xerrors"
)

// tieBreaker compares components by (install_order, plugin_id, name) for
// a total, stable, locale-independent order (spec.md §8 property 7).
// golang.org/x/text/collate is used instead of plain string comparison
// so the tiebreak is stable across locales/platforms — `<` on Go strings
// is byte-order and therefore already locale-independent for ASCII
// identifiers, but collate guards against surprises if a component or
// plugin id ever contains non-ASCII characters.
var tieBreaker = collate.New(language.Und)

// ResolveOrder implements resolve_order (spec.md §4.1): a Kahn
// topological sort over components' Dependencies, breaking ties by
// (install_order, plugin_id, component_name) so the result is total,
// stable, and identical across runs regardless of map iteration order.
func ResolveOrder(components []manifest.Component) ([]ComponentRef, error) {
	byName := make(map[string]manifest.Component, len(components))
	for _, c := range components {
		byName[c.QualifiedName()] = c
	}

	inDegree := make(map[string]int, len(components))
	dependents := make(map[string][]string, len(components))
	for _, c := range components {
		qn := c.QualifiedName()
		if _, ok := inDegree[qn]; !ok {
			inDegree[qn] = 0
		}
		for _, dep := range c.Dependencies {
			inDegree[qn]++
			dependents[dep] = append(dependents[dep], qn)
		}
	}

	ready := make([]string, 0, len(components))
	for qn, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, qn)
		}
	}

	ordered := make([]ComponentRef, 0, len(components))
	for len(ready) > 0 {
		next := popTiebreakMin(ready, byName)
		ready = removeOne(ready, next)

		c := byName[next]
		ordered = append(ordered, ComponentRef{Name: c.Name, PluginID: c.PluginID, InstallOrder: c.InstallOrder})

		for _, dependent := range dependents[next] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(ordered) != len(components) {
		cycle := findCycle(components, byName)
		return nil, xerrors.NewCyclicDepError(cycle)
	}

	return ordered, nil
}

// popTiebreakMin returns the qualified name in ready with the smallest
// (install_order, plugin_id, name) key.
func popTiebreakMin(ready []string, byName map[string]manifest.Component) string {
	best := ready[0]
	for _, qn := range ready[1:] {
		if lessComponent(byName[qn], byName[best]) {
			best = qn
		}
	}
	return best
}

func lessComponent(a, b manifest.Component) bool {
	if a.InstallOrder != b.InstallOrder {
		return a.InstallOrder < b.InstallOrder
	}
	if a.PluginID != b.PluginID {
		return tieBreaker.CompareString(a.PluginID, b.PluginID) < 0
	}
	return tieBreaker.CompareString(a.Name, b.Name) < 0
}

func removeOne(s []string, target string) []string {
	out := make([]string, 0, len(s)-1)
	removed := false
	for _, v := range s {
		if !removed && v == target {
			removed = true
			continue
		}
		out = append(out, v)
	}
	return out
}

// findCycle returns one cyclic path among the components not reachable
// by the topological sort, for a DepError that names the actual cycle.
func findCycle(components []manifest.Component, byName map[string]manifest.Component) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(components))
	var path []string
	var cycle []string

	var visit func(qn string) bool
	visit = func(qn string) bool {
		color[qn] = gray
		path = append(path, qn)

		c, ok := byName[qn]
		if ok {
			for _, dep := range c.Dependencies {
				switch color[dep] {
				case white:
					if visit(dep) {
						return true
					}
				case gray:
					// Found the back-edge; extract the cycle portion of path.
					idx := indexOf(path, dep)
					cycle = append(append([]string(nil), path[idx:]...), dep)
					return true
				}
			}
		}

		path = path[:len(path)-1]
		color[qn] = black
		return false
	}

	for _, c := range components {
		qn := c.QualifiedName()
		if color[qn] == white {
			if visit(qn) {
				return cycle
			}
		}
	}
	return cycle
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
