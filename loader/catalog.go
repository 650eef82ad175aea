// Package loader is a small component loader. It resolves named components
// and their dependencies to files on disk, and reports every bind attempt
// to a tracing.Tracer.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/sarchlab/bindtrace/tracing"
)

// A Component is a loadable unit.
type Component struct {
	Name         string   `json:"name"`
	Version      string   `json:"version,omitempty"`
	File         string   `json:"file,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// DisplayName returns the full identity of the component, such as
// "Foo, Version=1.0".
func (c Component) DisplayName() string {
	if c.Version == "" {
		return c.Name
	}

	return c.Name + ", Version=" + c.Version
}

// FileName returns the file that holds the component.
func (c Component) FileName() string {
	if c.File == "" {
		return c.Name + ".so"
	}

	return c.File
}

// A Catalog lists the components a Loader knows about, by simple name.
type Catalog struct {
	components map[string]Component
}

// NewCatalog creates a catalog. Component names must be unique.
func NewCatalog(components ...Component) (*Catalog, error) {
	c := &Catalog{components: make(map[string]Component, len(components))}

	for _, comp := range components {
		if comp.Name == "" {
			return nil, fmt.Errorf("component without a name")
		}

		key := tracing.SimpleName(comp.Name)
		if _, dup := c.components[key]; dup {
			return nil, fmt.Errorf("component %q listed twice", key)
		}

		c.components[key] = comp
	}

	return c, nil
}

type catalogFile struct {
	Components []Component `json:"components"`
}

// ReadCatalog reads a catalog from a JSON file of the form
// {"components": [{"name": "...", "dependencies": [...]}]}.
func ReadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var f catalogFile

	err = json.Unmarshal(data, &f)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}

	return NewCatalog(f.Components...)
}

// Lookup finds a component by name. Identity qualifiers in the name are
// ignored.
func (c *Catalog) Lookup(name string) (Component, bool) {
	comp, ok := c.components[tracing.SimpleName(name)]
	return comp, ok
}

// Names returns the simple names of all components, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.components))
	for name := range c.components {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
