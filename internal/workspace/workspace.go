// Package workspace assembles the configured groups of a repository into
// one joined provider set and guards it for concurrent use.
package workspace

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"

	"retriever/internal/config"
	rerrors "retriever/internal/errors"
	"retriever/internal/logging"
	"retriever/internal/paths"
	"retriever/internal/profile"
	"retriever/internal/selection"
	"retriever/internal/service"
)

// Workspace holds one selection configuration per configured group. All
// groups share a single dependency universe.
type Workspace struct {
	mu sync.Mutex

	root     string
	cfg      *config.Config
	logger   *logging.Logger
	catalogs map[string]*service.Catalog

	groups []*group
	byName map[string]*group
}

type group struct {
	settings config.GroupConfig
	catalog  *service.Catalog
	sel      *selection.Configuration[service.Service]
}

// ServiceStatus describes one service of a group.
type ServiceStatus struct {
	Group       string   `json:"group"`
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Selected    bool     `json:"selected"`
	Manual      bool     `json:"manual"`
	Requires    []string `json:"requires,omitempty"`
	RequiredBy  []string `json:"requiredBy,omitempty"`
	Declared    bool     `json:"declared"`
}

// Open loads every group catalog of cfg relative to root. A catalog file
// that does not exist yields an empty group.
func Open(root string, cfg *config.Config, logger *logging.Logger) (*Workspace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w := &Workspace{
		root:     root,
		cfg:      cfg,
		logger:   logger,
		catalogs: make(map[string]*service.Catalog, len(cfg.Groups)),
	}

	for _, g := range cfg.Groups {
		path := w.CatalogPath(g)
		catalog, err := service.LoadCatalog(path, g.Name)
		if err != nil {
			if !stderrors.Is(err, os.ErrNotExist) {
				return nil, err
			}
			logger.Warn("Catalog not found, group starts empty", map[string]interface{}{
				"group": g.Name,
				"path":  path,
			})
			catalog = service.NewCatalog(g.Name)
			catalog.Path = path
		}
		w.catalogs[g.Name] = catalog
	}

	w.build()
	logger.Debug("Opened workspace", map[string]interface{}{
		"root":   root,
		"groups": cfg.GroupNames(),
	})
	return w, nil
}

// CatalogPath resolves a group's catalog path. Relative paths are taken
// from the repository's state directory.
func (w *Workspace) CatalogPath(g config.GroupConfig) string {
	return paths.Resolve(filepath.Join(w.root, config.DirName), g.Catalog)
}

// build creates fresh configurations for every group and joins them.
func (w *Workspace) build() {
	w.groups = make([]*group, 0, len(w.cfg.Groups))
	w.byName = make(map[string]*group, len(w.cfg.Groups))
	members := make([]selection.Member, 0, len(w.cfg.Groups))

	for _, settings := range w.cfg.Groups {
		catalog := w.catalogs[settings.Name]
		sel := selection.New[service.Service](catalog, selection.Options{
			Group:        settings.Name,
			SelectedKey:  settings.SelectedKey,
			ConfigPrefix: settings.ConfigPrefix,
			Logger:       w.logger,
		})
		g := &group{settings: settings, catalog: catalog, sel: sel}
		w.groups = append(w.groups, g)
		w.byName[settings.Name] = g
		members = append(members, sel)
	}

	selection.Join(members...)
}

func (w *Workspace) lookup(name string) (*group, error) {
	g, ok := w.byName[name]
	if !ok {
		return nil, rerrors.Newf(rerrors.GroupNotFound, "group %q is not configured", name)
	}
	return g, nil
}

// Root returns the repository root.
func (w *Workspace) Root() string { return w.root }

// Config returns the configuration the workspace was opened with.
func (w *Workspace) Config() *config.Config { return w.cfg }

// Groups lists group names in configuration order.
func (w *Workspace) Groups() []string {
	return w.cfg.GroupNames()
}

// Catalog returns the catalog backing a group.
func (w *Workspace) Catalog(name string) (*service.Catalog, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	g, err := w.lookup(name)
	if err != nil {
		return nil, err
	}
	return g.catalog, nil
}

// Select manually selects id in the named group.
func (w *Workspace) Select(groupName, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	g, err := w.lookup(groupName)
	if err != nil {
		return err
	}
	return g.sel.SelectByID(id)
}

// Deselect removes the manual selection of id in the named group.
func (w *Workspace) Deselect(groupName, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	g, err := w.lookup(groupName)
	if err != nil {
		return err
	}
	return g.sel.DeselectByID(id)
}

// IsSelected reports whether id is selected in the named group.
func (w *Workspace) IsSelected(groupName, id string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	g, err := w.lookup(groupName)
	if err != nil {
		return false, err
	}
	return g.sel.IsSelected(id), nil
}

// GetConfig reads one configuration value.
func (w *Workspace) GetConfig(groupName, id, key string) (string, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	g, err := w.lookup(groupName)
	if err != nil {
		return "", false, err
	}
	value, ok := g.sel.GetConfig(id, key)
	return value, ok, nil
}

// WholeConfig returns a copy of a service's configuration map.
func (w *Workspace) WholeConfig(groupName, id string) (map[string]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	g, err := w.lookup(groupName)
	if err != nil {
		return nil, err
	}
	return g.sel.GetWholeConfig(id)
}

// SetConfig writes one configuration value.
func (w *Workspace) SetConfig(groupName, id, key, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	g, err := w.lookup(groupName)
	if err != nil {
		return err
	}
	g.sel.SetConfig(id, key, value)
	return nil
}

// Status lists the services of one group, or of all groups when groupName
// is empty. Catalog services come first in declaration order, followed by
// selected services the catalog does not declare.
func (w *Workspace) Status(groupName string) ([]ServiceStatus, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	groups := w.groups
	if groupName != "" {
		g, err := w.lookup(groupName)
		if err != nil {
			return nil, err
		}
		groups = []*group{g}
	}

	var statuses []ServiceStatus
	for _, g := range groups {
		seen := make(map[string]bool)
		for _, s := range g.sel.Available() {
			seen[s.ID()] = true
			statuses = append(statuses, w.statusOf(g, s, true))
		}
		for _, s := range g.sel.Selected() {
			if !seen[s.ID()] {
				statuses = append(statuses, w.statusOf(g, s, false))
			}
		}
	}
	return statuses, nil
}

func (w *Workspace) statusOf(g *group, s service.Service, declared bool) ServiceStatus {
	status := ServiceStatus{
		Group:    g.settings.Name,
		ID:       s.ID(),
		Selected: g.sel.IsSelected(s.ID()),
		Manual:   g.sel.IsManuallySelected(s),
		Requires: s.RequiredServices(),
		Declared: declared,
	}
	if d, ok := s.(service.Declaration); ok {
		status.Name = d.Name
		status.Description = d.Description
	}
	for _, ref := range g.sel.Requesters(s.ID()) {
		status.RequiredBy = append(status.RequiredBy, ref.String())
	}
	return status
}

// AttributeMap merges the attribute maps of all groups.
func (w *Workspace) AttributeMap() selection.AttributeMap {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attributeMap()
}

func (w *Workspace) attributeMap() selection.AttributeMap {
	parts := make([]selection.AttributeMap, 0, len(w.groups))
	for _, g := range w.groups {
		parts = append(parts, g.sel.ToMap())
	}
	return selection.Merge(parts...)
}

// Apply applies m to every group on top of the current state.
func (w *Workspace) Apply(m selection.AttributeMap) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, g := range w.groups {
		g.sel.ApplyAttributeMap(m)
	}
}

// Replace discards the current state and rebuilds it from m alone.
func (w *Workspace) Replace(m selection.AttributeMap) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.build()
	for _, g := range w.groups {
		g.sel.ApplyAttributeMap(m)
	}
}

// Snapshot saves the merged attribute map as a named profile.
func (w *Workspace) Snapshot(store *profile.Store, name string) (*profile.Profile, error) {
	w.mu.Lock()
	attrs := w.attributeMap()
	w.mu.Unlock()

	return store.Save(name, attrs)
}

// Restore replaces the workspace state with a stored profile.
func (w *Workspace) Restore(store *profile.Store, name string) (*profile.Profile, error) {
	p, err := store.Load(name)
	if err != nil {
		return nil, err
	}
	w.Replace(p.Attributes)
	w.logger.Debug("Restored profile", map[string]interface{}{
		"profile": name,
		"keys":    len(p.Attributes),
	})
	return p, nil
}

// Inspect reports unresolved requirements and cycles per group. A
// requirement declared by any other configured group counts as resolved.
func (w *Workspace) Inspect() map[string]service.Report {
	w.mu.Lock()
	defer w.mu.Unlock()

	known := func(id string) bool {
		for _, c := range w.catalogs {
			if _, ok := c.Lookup(id); ok {
				return true
			}
		}
		return false
	}

	reports := make(map[string]service.Report, len(w.groups))
	for _, g := range w.groups {
		reports[g.settings.Name] = service.Inspect(g.catalog.Services(), known)
	}
	return reports
}

// SelectedIDs returns the selected ids of a group, sorted.
func (w *Workspace) SelectedIDs(groupName string) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	g, err := w.lookup(groupName)
	if err != nil {
		return nil, err
	}
	return service.IDs(g.sel.Selected()), nil
}
