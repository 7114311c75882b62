// internal/catalog/catalog.go
//
// Appliance catalog: the fixed set of in-room objects and the liters each use
// consumes.
//
// Loading behavior:
//   - Load("") or Default() returns the catalog embedded in the assets package.
//   - Load(path) reads a YAML document with the same shape from disk
//     (CATALOG_FILE in the server config).
//
// Document shape:
//
//	appliances:
//	  - id: tap
//	    name: Tap
//	    liters: 12
//
// Ids are normalized to lowercase; they are what clients send on interact.

package catalog

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hychen958/Water-trekkie-gov/assets"
)

// Appliance is a single catalog entry.
type Appliance struct {
	ID     string  `yaml:"id" json:"id"`
	Name   string  `yaml:"name" json:"name"`
	Liters float64 `yaml:"liters" json:"liters"`
}

// Catalog is an immutable lookup of appliances by id.
type Catalog struct {
	items []Appliance
	byID  map[string]Appliance
}

type document struct {
	Appliances []Appliance `yaml:"appliances"`
}

// New validates items and builds a catalog.
// Ids must be non-empty and unique; liters must be finite and non-negative.
func New(items []Appliance) (*Catalog, error) {
	if len(items) == 0 {
		return nil, errors.New("catalog: no appliances")
	}
	c := &Catalog{
		items: make([]Appliance, 0, len(items)),
		byID:  make(map[string]Appliance, len(items)),
	}
	for _, a := range items {
		a.ID = normalizeID(a.ID)
		if a.ID == "" {
			return nil, errors.New("catalog: appliance id is required")
		}
		if _, dup := c.byID[a.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate appliance %q", a.ID)
		}
		if math.IsNaN(a.Liters) || math.IsInf(a.Liters, 0) || a.Liters < 0 {
			return nil, fmt.Errorf("catalog: appliance %q has invalid liters %v", a.ID, a.Liters)
		}
		if a.Name == "" {
			a.Name = a.ID
		}
		c.items = append(c.items, a)
		c.byID[a.ID] = a
	}
	return c, nil
}

// Parse builds a catalog from a YAML document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	return New(doc.Appliances)
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog, parsed once.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		data, err := assets.Appliances()
		if err != nil {
			defaultErr = fmt.Errorf("catalog: read embedded: %w", err)
			return
		}
		defaultCat, defaultErr = Parse(data)
	})
	return defaultCat, defaultErr
}

// Load reads the catalog at path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Get looks up an appliance by id (case-insensitive).
func (c *Catalog) Get(id string) (Appliance, bool) {
	a, ok := c.byID[normalizeID(id)]
	return a, ok
}

// Cost returns the liters consumed by one use of the appliance.
func (c *Catalog) Cost(id string) (float64, bool) {
	a, ok := c.Get(id)
	return a.Liters, ok
}

// All returns the appliances in document order.
func (c *Catalog) All() []Appliance {
	return append([]Appliance(nil), c.items...)
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
