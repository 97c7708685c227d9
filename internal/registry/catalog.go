package registry

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/entity"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/inference"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/materialize"
)

// Catalog maps dataset identifiers to the descriptors of their physical
// tables. It is filled once at startup and then only by dataset creation;
// every change bumps the version.
type Catalog struct {
	mu      sync.RWMutex
	tables  map[string]*materialize.Table
	version uint64
}

func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]*materialize.Table)}
}

// Register adds or replaces the descriptor of a dataset table and returns
// the new catalog version.
func (c *Catalog) Register(t *materialize.Table) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tables[t.Name] = t
	c.version++
	return c.version
}

// Lookup returns the table descriptor of a dataset. Descriptors are never
// modified after registration.
func (c *Catalog) Lookup(datasetID string) (*materialize.Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tables[datasetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, datasetID)
	}
	return t, nil
}

func (c *Catalog) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

// Load registers every dataset recorded in the database.
func (c *Catalog) Load(ctx context.Context, db *gorm.DB, schema string) error {
	var datasets []entity.Dataset
	err := db.WithContext(ctx).
		Preload("Columns", func(tx *gorm.DB) *gorm.DB { return tx.Order("position") }).
		Preload("GeospatialColumns", func(tx *gorm.DB) *gorm.DB { return tx.Order("position") }).
		Find(&datasets).Error
	if err != nil {
		return fmt.Errorf("failed to load dataset schemas: %w", err)
	}

	for _, d := range datasets {
		c.Register(tableFromEntities(schema, d))
	}
	return nil
}

func tableFromEntities(schema string, d entity.Dataset) *materialize.Table {
	t := &materialize.Table{Schema: schema, Name: d.UUID}
	for _, col := range d.Columns {
		t.Columns = append(t.Columns, materialize.Column{Name: col.Name, Type: inference.DataType(col.DataType)})
	}
	for _, geo := range d.GeospatialColumns {
		t.Geo = append(t.Geo, materialize.GeoSpec{Column: geo.Column, GeometryType: geo.GeometryType, SRID: geo.SRID})
	}
	return t
}

func columnEntities(t *materialize.Table) []entity.DatasetColumn {
	columns := make([]entity.DatasetColumn, len(t.Columns))
	for i, c := range t.Columns {
		columns[i] = entity.DatasetColumn{DatasetUUID: t.Name, Position: i, Name: c.Name, DataType: string(c.Type)}
	}
	return columns
}

func geoEntities(t *materialize.Table) []entity.GeospatialColumn {
	geo := make([]entity.GeospatialColumn, len(t.Geo))
	for i, spec := range t.Geo {
		geo[i] = entity.GeospatialColumn{
			DatasetUUID:      t.Name,
			Column:           spec.Column,
			ColumnDefinition: spec.Definition(),
			GeometryType:     spec.GeometryType,
			SRID:             spec.SRID,
			Position:         i,
		}
	}
	return geo
}
