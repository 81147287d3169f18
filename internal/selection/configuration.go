// Package selection tracks which services of a retriever run are selected.
//
// A Configuration owns one group's catalog, its manual selections, its
// per-service string configuration and the graph of dependency-induced
// selections. Selecting a service activates everything it transitively
// requires, across all dependency providers; deselecting releases what is
// no longer required by any remaining selection.
//
// Nothing in this package locks. Callers that share configurations (or a
// joined provider set) between goroutines must serialize access.
package selection

import (
	"maps"
	"sort"

	rerrors "retriever/internal/errors"
	"retriever/internal/logging"
	"retriever/internal/service"
)

// Options configures a Configuration.
type Options struct {
	// Group names the configuration group. Defaults to "default".
	Group string

	// SelectedKey is the attribute-map key holding manual selections.
	// Defaults to "<group>.selected".
	SelectedKey string

	// ConfigPrefix prefixes per-service configuration keys in the
	// attribute map. Defaults to "<group>.config.".
	ConfigPrefix string

	Logger *logging.Logger
}

func (o Options) withDefaults() Options {
	if o.Group == "" {
		o.Group = "default"
	}
	if o.SelectedKey == "" {
		o.SelectedKey = o.Group + ".selected"
	}
	if o.ConfigPrefix == "" {
		o.ConfigPrefix = o.Group + ".config."
	}
	return o
}

// Configuration is the selection state of one configuration group.
type Configuration[T service.Service] struct {
	group        string
	selectedKey  string
	configPrefix string

	services map[string]T
	order    []string
	configs  map[string]map[string]string
	manual   map[string]T
	deps     *dependencyGraph

	providers *Resolver
	log       *logging.Logger
}

// New builds a configuration over a fixed catalog. Every catalog service
// starts with each of its configuration keys set to "".
func New[T service.Service](collection service.Collection[T], opts Options) *Configuration[T] {
	opts = opts.withDefaults()

	c := &Configuration[T]{
		group:        opts.Group,
		selectedKey:  opts.SelectedKey,
		configPrefix: opts.ConfigPrefix,
		services:     make(map[string]T),
		configs:      make(map[string]map[string]string),
		manual:       make(map[string]T),
		deps:         newDependencyGraph(),
		log:          opts.Logger.With(map[string]interface{}{"group": opts.Group}),
	}
	c.providers = newResolver(c)

	for _, s := range collection.Services() {
		id := s.ID()
		if _, dup := c.services[id]; dup {
			c.log.Warn("Duplicate service id in catalog, keeping the last one", map[string]interface{}{
				"service": id,
			})
		} else {
			c.order = append(c.order, id)
		}
		c.services[id] = s

		initialized := make(map[string]string, len(s.ConfigurationKeys()))
		for _, key := range s.ConfigurationKeys() {
			initialized[key] = ""
		}
		c.configs[id] = initialized
	}

	return c
}

// Group implements Provider.
func (c *Configuration[T]) Group() string { return c.group }

// SelectedKey returns the attribute-map key of the manual selection set.
func (c *Configuration[T]) SelectedKey() string { return c.selectedKey }

// ConfigPrefix returns the attribute-map prefix of per-service configs.
func (c *Configuration[T]) ConfigPrefix() string { return c.configPrefix }

// Lookup implements Provider.
func (c *Configuration[T]) Lookup(id string) (service.Service, bool) {
	s, ok := c.services[id]
	if !ok {
		return nil, false
	}
	return s, true
}

// Service returns the typed catalog entry for id.
func (c *Configuration[T]) Service(id string) (T, bool) {
	s, ok := c.services[id]
	return s, ok
}

// Resolver returns the configuration's dependency-resolution context.
func (c *Configuration[T]) Resolver() *Resolver { return c.providers }

// AddDependencyProvider lets dependency ids that c cannot resolve be
// resolved by other. Adding the same provider twice is a no-op. The
// relation is one-way; use Join for a shared universe.
func (c *Configuration[T]) AddDependencyProvider(other Provider) {
	if c.providers.add(other) {
		c.log.Debug("Added dependency provider", map[string]interface{}{
			"provider": other.Group(),
		})
	}
}

// ApplyAttributeMap restores state written by ToMap. For every catalog
// service, a config entry replaces its configuration wholesale and a
// selected entry selects it; the dependency graph is rebuilt by selecting,
// never read. Unknown ids are ignored.
func (c *Configuration[T]) ApplyAttributeMap(m AttributeMap) {
	selected := stringSet(m[c.selectedKey])

	for _, id := range c.order {
		if raw, ok := m[c.configPrefix+id]; ok && raw != nil {
			if cfg, ok := stringMap(raw); ok {
				c.configs[id] = cfg
			}
		}
		if _, ok := selected[id]; ok {
			c.Select(c.services[id])
		}
	}
}

// GetConfig returns the value stored under key for service id. The second
// result is false when id has no configuration or key was never set.
func (c *Configuration[T]) GetConfig(id, key string) (string, bool) {
	cfg, ok := c.configs[id]
	if !ok {
		return "", false
	}
	v, ok := cfg[key]
	return v, ok
}

// GetWholeConfig returns a copy of the configuration of service id.
func (c *Configuration[T]) GetWholeConfig(id string) (map[string]string, error) {
	cfg, ok := c.configs[id]
	if !ok {
		return nil, rerrors.Newf(rerrors.ConfigMissing, "no configuration for service %q in group %q", id, c.group)
	}
	return maps.Clone(cfg), nil
}

// SetConfig sets key to value for service id, creating the configuration
// if id has none. Unknown ids are accepted.
func (c *Configuration[T]) SetConfig(id, key, value string) {
	cfg, ok := c.configs[id]
	if !ok {
		cfg = make(map[string]string)
		c.configs[id] = cfg
	}
	cfg[key] = value
}

// Select marks s as manually selected and activates its dependencies
// across every dependency provider. Selecting twice is a no-op.
func (c *Configuration[T]) Select(s T) {
	id := s.ID()
	c.manual[id] = s
	c.log.Debug("Selected service", map[string]interface{}{"service": id})

	activate(demand{
		requester: Ref{Group: c.group, ID: id},
		required:  s.RequiredServices(),
		context:   c.providers,
	})
}

// SelectByID selects the catalog service id.
func (c *Configuration[T]) SelectByID(id string) error {
	s, ok := c.services[id]
	if !ok {
		return rerrors.Newf(rerrors.ServiceNotFound, "service %q not found in group %q", id, c.group)
	}
	c.Select(s)
	return nil
}

// Deselect removes s from the manual selections and releases every
// dependency no remaining selection requires. A service that is still
// required by another selection stays selected.
func (c *Configuration[T]) Deselect(s T) {
	id := s.ID()
	delete(c.manual, id)
	c.log.Debug("Deselected service", map[string]interface{}{"service": id})

	release(c.providers)
}

// DeselectByID deselects id, which may be a catalog service or a manually
// selected service outside the catalog.
func (c *Configuration[T]) DeselectByID(id string) error {
	if s, ok := c.manual[id]; ok {
		c.Deselect(s)
		return nil
	}
	s, ok := c.services[id]
	if !ok {
		return rerrors.Newf(rerrors.ServiceNotFound, "service %q not found in group %q", id, c.group)
	}
	c.Deselect(s)
	return nil
}

// IsManuallySelected reports whether s was selected explicitly.
func (c *Configuration[T]) IsManuallySelected(s T) bool {
	_, ok := c.manual[s.ID()]
	return ok
}

// IsSelected reports whether id is selected manually or as a dependency.
func (c *Configuration[T]) IsSelected(id string) bool {
	if _, ok := c.manual[id]; ok {
		return true
	}
	return c.deps.active(id)
}

// Selected returns manual and dependency-induced selections, sorted by id.
func (c *Configuration[T]) Selected() []T {
	selected := make([]T, 0, len(c.manual)+c.deps.size())
	for _, s := range c.manual {
		selected = append(selected, s)
	}
	for _, id := range c.deps.ids() {
		if _, ok := c.manual[id]; ok {
			continue
		}
		if s, ok := c.services[id]; ok {
			selected = append(selected, s)
		}
	}
	service.SortByID(selected)
	return selected
}

// ManuallySelected returns the manual selections, sorted by id.
func (c *Configuration[T]) ManuallySelected() []T {
	selected := make([]T, 0, len(c.manual))
	for _, s := range c.manual {
		selected = append(selected, s)
	}
	service.SortByID(selected)
	return selected
}

// Available returns the whole catalog in catalog order.
func (c *Configuration[T]) Available() []T {
	available := make([]T, 0, len(c.order))
	for _, id := range c.order {
		available = append(available, c.services[id])
	}
	return available
}

// Requesters returns the services currently holding id active as a
// dependency. It is empty for services that are only manually selected.
func (c *Configuration[T]) Requesters(id string) []Ref {
	if !c.deps.active(id) {
		return nil
	}
	return c.deps.requesters(id)
}

// ToMap serializes every configuration map and the manual selections.
// Dependency-induced selections are not written; ApplyAttributeMap
// recomputes them.
func (c *Configuration[T]) ToMap() AttributeMap {
	m := make(AttributeMap, len(c.configs)+1)
	for id, cfg := range c.configs {
		m[c.configPrefix+id] = maps.Clone(cfg)
	}
	m[c.selectedKey] = c.manualIDs()
	return m
}

func (c *Configuration[T]) resolver() *Resolver { return c.providers }

func (c *Configuration[T]) dependencies() *dependencyGraph { return c.deps }

func (c *Configuration[T]) manualIDs() []string {
	ids := make([]string, 0, len(c.manual))
	for id := range c.manual {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Configuration[T]) requirementsOf(id string) []string {
	if s, ok := c.manual[id]; ok {
		return s.RequiredServices()
	}
	if s, ok := c.services[id]; ok {
		return s.RequiredServices()
	}
	return nil
}

func (c *Configuration[T]) debugLog() *logging.Logger { return c.log }
