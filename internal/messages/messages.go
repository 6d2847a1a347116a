// Package messages holds the user-facing message catalog.
//
// Messages are keyed by dotted names and loaded from YAML. The embedded
// catalog is the default; a file given in configuration overrides
// individual keys.
package messages

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var defaultYAML []byte

// Catalog maps message keys to fmt templates.
type Catalog struct {
	templates map[string]string
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded messages: %v", err))
	}
	return c
}

// Parse decodes a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	templates := map[string]string{}
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("parse messages: %w", err)
	}
	return &Catalog{templates: templates}, nil
}

// Load reads the embedded catalog and overlays the YAML in r.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	overlay, err := Parse(data)
	if err != nil {
		return nil, err
	}
	c := Default()
	for k, v := range overlay.templates {
		c.templates[k] = v
	}
	return c, nil
}

// LoadFile is Load on a file. An empty path returns the default catalog.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open messages: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Get returns the raw template. Unknown keys return the key itself.
func (c *Catalog) Get(key string) string {
	if t, ok := c.templates[key]; ok {
		return t
	}
	return key
}

// Format renders the template of key with args.
func (c *Catalog) Format(key string, args ...any) string {
	t := c.Get(key)
	if len(args) == 0 {
		return t
	}
	return fmt.Sprintf(t, args...)
}

// Has reports whether key is in the catalog.
func (c *Catalog) Has(key string) bool {
	_, ok := c.templates[key]
	return ok
}
