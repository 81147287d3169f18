package selection

import (
	"retriever/internal/logging"
	"retriever/internal/service"
)

// Provider is the capability a configuration exposes to a resolution
// context: its group name, catalog lookup and its own dependency graph.
// The unexported methods keep implementations inside this package.
type Provider interface {
	// Group names the configuration group. Group names must be unique
	// among providers that reach each other.
	Group() string

	// Lookup resolves an id against the group's catalog only.
	Lookup(id string) (service.Service, bool)

	resolver() *Resolver
	dependencies() *dependencyGraph
	manualIDs() []string
	requirementsOf(id string) []string
	debugLog() *logging.Logger
}

// Resolver is the dependency-resolution context of one configuration: the
// ordered set of providers its dependency ids are resolved against. It
// always contains the owning configuration.
type Resolver struct {
	providers []Provider
}

func newResolver(owner Provider) *Resolver {
	return &Resolver{providers: []Provider{owner}}
}

// add appends p unless it is already present.
func (r *Resolver) add(p Provider) bool {
	for _, existing := range r.providers {
		if existing == p {
			return false
		}
	}
	r.providers = append(r.providers, p)
	return true
}

// Providers returns the members in registration order.
func (r *Resolver) Providers() []Provider {
	return append([]Provider(nil), r.providers...)
}

// Groups returns the member group names in registration order.
func (r *Resolver) Groups() []string {
	groups := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		groups = append(groups, p.Group())
	}
	return groups
}

// Resolve lists every member that declares id.
func (r *Resolver) Resolve(id string) []Ref {
	var refs []Ref
	for _, p := range r.providers {
		if _, ok := p.Lookup(id); ok {
			refs = append(refs, Ref{Group: p.Group(), ID: id})
		}
	}
	return refs
}

// Member is a configuration that can join a shared resolution context.
type Member interface {
	Provider
	AddDependencyProvider(other Provider)
}

// Join makes every member a dependency provider of every other member, so
// the groups share one dependency universe.
func Join(members ...Member) {
	for _, m := range members {
		for _, other := range members {
			m.AddDependencyProvider(other)
		}
	}
}

// demand is one pending activation: requester needs the ids in required,
// resolved against context.
type demand struct {
	requester Ref
	required  []string
	context   *Resolver
}

// activate propagates a selection through every provider of the starting
// context. A dependency's own requirements are expanded only on its first
// activation, which also terminates dependency cycles.
func activate(start demand) {
	queue := []demand{start}
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]

		for _, p := range d.context.providers {
			for _, id := range d.required {
				dep, ok := p.Lookup(id)
				if !ok {
					continue
				}
				if !p.dependencies().add(id, d.requester) {
					continue
				}
				p.debugLog().Debug("Activated dependency", map[string]interface{}{
					"service":     id,
					"requestedBy": d.requester.String(),
				})
				queue = append(queue, demand{
					requester: Ref{Group: p.Group(), ID: id},
					required:  dep.RequiredServices(),
					context:   p.resolver(),
				})
			}
		}
	}
}

// release drops every holder that is no longer reachable from a manual
// selection. The sweep covers all providers reachable from origin; holders
// owned by groups outside that set are left alone and keep what they hold
// alive.
func release(origin *Resolver) {
	var scope []Provider
	owners := make(map[string]Provider)
	visited := make(map[Provider]bool)

	pending := append([]Provider(nil), origin.providers...)
	for len(pending) > 0 {
		p := pending[0]
		pending = pending[1:]
		if visited[p] {
			continue
		}
		visited[p] = true
		scope = append(scope, p)
		if _, dup := owners[p.Group()]; !dup {
			owners[p.Group()] = p
		}
		pending = append(pending, p.resolver().providers...)
	}

	live := make(map[Ref]bool)
	var queue []Ref
	mark := func(r Ref) {
		if !live[r] {
			live[r] = true
			queue = append(queue, r)
		}
	}

	for _, p := range scope {
		for _, id := range p.manualIDs() {
			mark(Ref{Group: p.Group(), ID: id})
		}
		graph := p.dependencies()
		for _, dep := range graph.ids() {
			for _, h := range graph.requesters(dep) {
				if _, owned := owners[h.Group]; !owned {
					mark(Ref{Group: p.Group(), ID: dep})
					break
				}
			}
		}
	}

	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]

		owner := owners[r.Group]
		required := owner.requirementsOf(r.ID)
		for _, q := range owner.resolver().providers {
			for _, id := range required {
				if _, ok := q.Lookup(id); ok {
					mark(Ref{Group: q.Group(), ID: id})
				}
			}
		}
	}

	for _, p := range scope {
		graph := p.dependencies()
		for _, dep := range graph.ids() {
			for _, h := range graph.requesters(dep) {
				if _, owned := owners[h.Group]; !owned || live[h] {
					continue
				}
				if graph.remove(dep, h) {
					p.debugLog().Debug("Released dependency", map[string]interface{}{
						"service":  dep,
						"lastHeld": h.String(),
					})
				}
			}
		}
	}
}
