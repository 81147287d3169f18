package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	rerrors "retriever/internal/errors"
)

// CatalogFileName is the default filename for service declarations
const CatalogFileName = "SERVICES.toml"

// CatalogFile represents the root structure of a catalog file.
//
// TOML form:
//
//	version = 1
//	group = "rules"
//
//	[[service]]
//	id = "spring"
//	requires = ["jax-rs"]
//	config_keys = ["base_path"]
//
// The YAML form uses a `services:` list with the same fields.
type CatalogFile struct {
	Version  int           `toml:"version" yaml:"version"`
	Group    string        `toml:"group,omitempty" yaml:"group,omitempty"`
	Services []Declaration `toml:"service" yaml:"services"`
}

// Catalog is the immutable set of services one group offers.
type Catalog struct {
	Group string
	Path  string

	declarations []Declaration
}

// NewCatalog builds an in-memory catalog.
func NewCatalog(group string, declarations ...Declaration) *Catalog {
	return &Catalog{
		Group:        group,
		declarations: append([]Declaration(nil), declarations...),
	}
}

// Services implements Collection in declaration order.
func (c *Catalog) Services() []Service {
	services := make([]Service, 0, len(c.declarations))
	for _, d := range c.declarations {
		services = append(services, d)
	}
	return services
}

// Lookup finds a declaration by id.
func (c *Catalog) Lookup(id string) (Declaration, bool) {
	for _, d := range c.declarations {
		if d.ServiceID == id {
			return d, true
		}
	}
	return Declaration{}, false
}

// Len returns the number of declared services.
func (c *Catalog) Len() int { return len(c.declarations) }

// ParseCatalogFile parses a TOML or YAML catalog, chosen by file extension.
func ParseCatalogFile(path string) (*CatalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var file CatalogFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, rerrors.New(rerrors.CatalogInvalid, "failed to parse "+path, err)
		}
	default:
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, rerrors.New(rerrors.CatalogInvalid, "failed to parse "+path, err)
		}
	}

	if file.Version < 1 {
		file.Version = 1
	}
	return &file, nil
}

// LoadCatalog reads and validates a catalog file. The group declared in the
// file wins over the one passed in only when the caller passes none.
func LoadCatalog(path, group string) (*Catalog, error) {
	file, err := ParseCatalogFile(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(file.Services); err != nil {
		return nil, rerrors.New(rerrors.CatalogInvalid, "invalid catalog "+path, err)
	}

	if group == "" {
		group = file.Group
	}
	catalog := NewCatalog(group, file.Services...)
	catalog.Path = path
	return catalog, nil
}

// WriteCatalogFile writes a catalog file in the format implied by its extension.
func WriteCatalogFile(path string, file *CatalogFile) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(file)
	default:
		data, err = toml.Marshal(file)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
