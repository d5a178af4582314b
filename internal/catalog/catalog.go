// Package catalog maps buff source ids to their configured effect, and
// resolves restored buffs back onto an owner's stats.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/statbuff/internal/buff"
)

var (
	ErrUnknownSource = errors.New("unknown buff source")
	ErrUnknownStat   = errors.New("unknown stat")
)

// Definition is one buff an item or skill grants.
type Definition struct {
	buff.Value `yaml:",inline"`
	Stat       string `yaml:"stat"` // target stat name on the owner's sheet
}

// Catalog is a read-only set of definitions keyed by source id.
type Catalog struct {
	defs  map[string]Definition
	order []string
}

type file struct {
	Buffs []Definition `yaml:"buffs"`
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a catalog:
//
//	buffs:
//	  - source_id: potion_of_might
//	    stat: attack
//	    flat: 10
//	    percent: 0.1
//	    duration: 60
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return New(f.Buffs...)
}

// New builds a catalog from definitions. Source ids must be unique and
// every definition must name a stat.
func New(defs ...Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}

	for i, d := range defs {
		if d.SourceID == "" {
			return nil, fmt.Errorf("buff #%d: empty source_id", i)
		}
		if d.Stat == "" {
			return nil, fmt.Errorf("buff %q: empty stat", d.SourceID)
		}
		if _, dup := c.defs[d.SourceID]; dup {
			return nil, fmt.Errorf("buff %q: duplicate source_id", d.SourceID)
		}
		c.defs[d.SourceID] = d
		c.order = append(c.order, d.SourceID)
	}

	return c, nil
}

// Lookup returns the definition for sourceID.
func (c *Catalog) Lookup(sourceID string) (Definition, error) {
	d, ok := c.defs[sourceID]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownSource, sourceID)
	}
	return d, nil
}

// Definitions returns all definitions in file order.
func (c *Catalog) Definitions() []Definition {
	result := make([]Definition, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, c.defs[id])
	}
	return result
}

// Len returns the number of definitions.
func (c *Catalog) Len() int { return len(c.defs) }
