package selection

import "sort"

// Ref identifies a service inside a configuration group. Holder identity in
// the dependency graph is by Ref, never by object identity.
type Ref struct {
	Group string `json:"group"`
	ID    string `json:"id"`
}

func (r Ref) String() string {
	return r.Group + "/" + r.ID
}

// dependencyGraph maps an active dependency id to the set of services
// currently requiring it. Entries are removed as soon as they empty.
type dependencyGraph struct {
	holders map[string]map[Ref]struct{}
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{holders: make(map[string]map[Ref]struct{})}
}

// add records requester as a holder of dep and reports whether this was
// the dependency's first activation.
func (g *dependencyGraph) add(dep string, requester Ref) bool {
	if set, ok := g.holders[dep]; ok {
		set[requester] = struct{}{}
		return false
	}
	g.holders[dep] = map[Ref]struct{}{requester: {}}
	return true
}

// remove drops requester from dep and reports whether dep became inactive.
func (g *dependencyGraph) remove(dep string, requester Ref) bool {
	set, ok := g.holders[dep]
	if !ok {
		return false
	}
	delete(set, requester)
	if len(set) == 0 {
		delete(g.holders, dep)
		return true
	}
	return false
}

func (g *dependencyGraph) active(dep string) bool {
	_, ok := g.holders[dep]
	return ok
}

// requesters returns the holders of dep sorted by group then id.
func (g *dependencyGraph) requesters(dep string) []Ref {
	set := g.holders[dep]
	refs := make([]Ref, 0, len(set))
	for r := range set {
		refs = append(refs, r)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Group != refs[j].Group {
			return refs[i].Group < refs[j].Group
		}
		return refs[i].ID < refs[j].ID
	})
	return refs
}

// ids returns the active dependency ids in sorted order.
func (g *dependencyGraph) ids() []string {
	ids := make([]string, 0, len(g.holders))
	for id := range g.holders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (g *dependencyGraph) size() int {
	return len(g.holders)
}
