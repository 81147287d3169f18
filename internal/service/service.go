// Package service describes the selectable analysis units of a retriever
// run and the catalogs that declare them.
package service

import "sort"

// Service is a named, independently selectable unit with declared
// configuration keys and declared dependency ids.
type Service interface {
	// ID is unique within one configuration group.
	ID() string

	// ConfigurationKeys lists the configuration keys the service reads.
	ConfigurationKeys() []string

	// RequiredServices lists ids of services this one depends on.
	// Ids may belong to another group or to no group at all.
	RequiredServices() []string
}

// Collection supplies the services of one configuration group.
type Collection[T Service] interface {
	Services() []T
}

// List adapts a plain slice to Collection.
type List[T Service] []T

// Services returns the slice itself.
func (l List[T]) Services() []T { return l }

// Declaration is the static metadata of a service as written in a catalog file.
type Declaration struct {
	ServiceID   string   `toml:"id" yaml:"id" json:"id"`
	Name        string   `toml:"name,omitempty" yaml:"name,omitempty" json:"name,omitempty"`
	Description string   `toml:"description,omitempty" yaml:"description,omitempty" json:"description,omitempty"`
	ConfigKeys  []string `toml:"config_keys,omitempty" yaml:"config_keys,omitempty" json:"configKeys,omitempty"`
	Requires    []string `toml:"requires,omitempty" yaml:"requires,omitempty" json:"requires,omitempty"`
}

// ID implements Service.
func (d Declaration) ID() string { return d.ServiceID }

// ConfigurationKeys implements Service.
func (d Declaration) ConfigurationKeys() []string { return d.ConfigKeys }

// RequiredServices implements Service.
func (d Declaration) RequiredServices() []string { return d.Requires }

// DisplayName falls back to the id when no name was declared.
func (d Declaration) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ServiceID
}

// SortByID sorts services in place by id.
func SortByID[T Service](services []T) {
	sort.Slice(services, func(i, j int) bool {
		return services[i].ID() < services[j].ID()
	})
}

// IDs returns the ids of services in their current order.
func IDs[T Service](services []T) []string {
	ids := make([]string, 0, len(services))
	for _, s := range services {
		ids = append(ids, s.ID())
	}
	return ids
}
