package entity

import "fmt"

// Catalog is the validated set of entities owned by a single port engine
// (spec §3 "Ownership/lifecycle": "Entities and automations are rebuilt
// from config on every (re)start of a port").
type Catalog struct {
	entities []*Entity
	byID     map[string]*Entity
}

// NewCatalog validates entities and indexes them by ID.
func NewCatalog(entities []*Entity) (*Catalog, error) {
	byID := make(map[string]*Entity, len(entities))
	for _, e := range entities {
		if !e.Type.Valid() {
			return nil, fmt.Errorf("%w: entity %q has type %q", ErrUnknownType, e.ID, e.Type)
		}
		if _, exists := byID[e.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, e.ID)
		}
		if e.Type != TypeButton {
			if _, ok := e.Rule("state"); !ok {
				return nil, fmt.Errorf("%w: entity %q", ErrMissingStateRule, e.ID)
			}
		}
		byID[e.ID] = e
	}
	return &Catalog{entities: entities, byID: byID}, nil
}

// All returns every entity in declaration order.
func (c *Catalog) All() []*Entity {
	return c.entities
}

// Get looks up an entity by ID.
func (c *Catalog) Get(id string) (*Entity, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// Len returns the number of entities in the catalog.
func (c *Catalog) Len() int {
	return len(c.entities)
}
