package materialize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/inference"
)

// IDColumn is the auto-incrementing row identifier every dataset table has.
const IDColumn = "id"

var ErrColumnMismatch = errors.New("column mismatch")

type Column struct {
	Name string             `json:"name"`
	Type inference.DataType `json:"type"`
}

// Table describes the physical table backing one dataset.
type Table struct {
	Schema  string    `json:"schema"`
	Name    string    `json:"name"`
	Columns []Column  `json:"columns"`
	Geo     []GeoSpec `json:"geospatial_columns"`
}

// NewTable validates a finalized column/type mapping. Columns named by a
// geospatial declaration become geometry columns, and geometry columns
// without a declaration get the default one.
func NewTable(schema, name string, columns []string, types []inference.DataType, geo []GeoSpec) (*Table, error) {
	if name == "" {
		return nil, errors.New("table name cannot be empty")
	}
	if len(columns) == 0 {
		return nil, errors.New("table needs at least one column")
	}
	if len(columns) != len(types) {
		return nil, fmt.Errorf("%w: %d columns but %d datatypes", ErrColumnMismatch, len(columns), len(types))
	}

	t := &Table{Schema: schema, Name: name, Columns: make([]Column, len(columns))}
	seen := make(map[string]bool, len(columns))
	for i, c := range columns {
		if c == "" || strings.EqualFold(c, IDColumn) {
			return nil, fmt.Errorf("%w: invalid column name %q", ErrColumnMismatch, c)
		}
		if seen[c] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrColumnMismatch, c)
		}
		seen[c] = true
		t.Columns[i] = Column{Name: c, Type: types[i]}
	}

	declared := make(map[string]bool, len(geo))
	for _, spec := range geo {
		i := t.index(spec.Column)
		if i < 0 {
			return nil, fmt.Errorf("%w: geospatial column %q is not in the upload", ErrColumnMismatch, spec.Column)
		}
		if declared[spec.Column] {
			return nil, fmt.Errorf("%w: geospatial column %q declared twice", ErrColumnMismatch, spec.Column)
		}
		declared[spec.Column] = true
		t.Columns[i].Type = inference.Geometry
		t.Geo = append(t.Geo, spec)
	}
	for _, c := range t.Columns {
		if c.Type == inference.Geometry && !declared[c.Name] {
			t.Geo = append(t.Geo, DefaultGeoSpec(c.Name))
		}
	}
	return t, nil
}

func (t *Table) index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (t *Table) Column(name string) (Column, bool) {
	if i := t.index(name); i >= 0 {
		return t.Columns[i], true
	}
	return Column{}, false
}

func (t *Table) GeoSpec(column string) (GeoSpec, bool) {
	for _, spec := range t.Geo {
		if spec.Column == column {
			return spec, true
		}
	}
	return GeoSpec{}, false
}

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// GeoColumnNames lists the geometry columns in declaration order.
func (t *Table) GeoColumnNames() []string {
	names := make([]string, len(t.Geo))
	for i, spec := range t.Geo {
		names[i] = spec.Column
	}
	return names
}

func (t *Table) QualifiedName() string {
	if t.Schema == "" {
		return pq.QuoteIdentifier(t.Name)
	}
	return pq.QuoteIdentifier(t.Schema) + "." + pq.QuoteIdentifier(t.Name)
}

func (t *Table) CreateStatement() string {
	defs := make([]string, 0, len(t.Columns)+1)
	defs = append(defs, pq.QuoteIdentifier(IDColumn)+" BIGSERIAL PRIMARY KEY")
	for _, c := range t.Columns {
		sqlType := c.Type.SQLType()
		if spec, ok := t.GeoSpec(c.Name); ok {
			sqlType = spec.Definition()
		}
		defs = append(defs, pq.QuoteIdentifier(c.Name)+" "+sqlType)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", t.QualifiedName(), strings.Join(defs, ", "))
}

// SelectList selects the row id and every column, with geometry columns
// rendered as GeoJSON text under their own names.
func (t *Table) SelectList() string {
	items := make([]string, 0, len(t.Columns)+1)
	items = append(items, pq.QuoteIdentifier(IDColumn))
	for _, c := range t.Columns {
		col := pq.QuoteIdentifier(c.Name)
		if c.Type == inference.Geometry {
			items = append(items, fmt.Sprintf("ST_AsGeoJSON(%s) AS %s", col, col))
			continue
		}
		items = append(items, col)
	}
	return strings.Join(items, ", ")
}

// CreateTable creates the physical table; it becomes visible to other
// sessions once tx commits.
func CreateTable(tx *gorm.DB, t *Table) error {
	if err := tx.Exec(t.CreateStatement()).Error; err != nil {
		return fmt.Errorf("failed to create table %s: %w", t.QualifiedName(), err)
	}
	return nil
}
