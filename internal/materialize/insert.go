package materialize

import (
	"fmt"
	"math"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/inference"
	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/tabular"
)

// maxParams stays below the PostgreSQL limit of 65535 bind parameters.
const maxParams = 65000

// DefaultBatchSize is the number of rows written per INSERT statement.
var DefaultBatchSize = 500

// RowError reports a value that could not be converted for insertion.
// Row is the 1-based data row of the uploaded file.
type RowError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %q: cannot insert %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// placeholder is one bind parameter and the SQL expression wrapping it.
type placeholder struct {
	expr  string
	value interface{}
}

// Insert bulk-loads a frame into the table and returns the ids of the new
// rows in insertion order. The frame may carry a subset of the table columns.
// Every value is converted before the first INSERT so a bad row never burns
// sequence ids.
func Insert(tx *gorm.DB, t *Table, f *tabular.Frame) ([]int64, error) {
	columns, err := frameColumns(t, f)
	if err != nil {
		return nil, err
	}
	if f.Len() == 0 {
		return nil, nil
	}

	values, err := convertRows(t, columns, f.Rows)
	if err != nil {
		return nil, err
	}

	batchSize := DefaultBatchSize
	if limit := maxParams / len(columns); batchSize > limit {
		batchSize = limit
	}

	ids := make([]int64, 0, f.Len())
	for start := 0; start < len(values); start += batchSize {
		end := start + batchSize
		if end > len(values) {
			end = len(values)
		}
		batchIDs, err := insertBatch(tx, t, columns, values[start:end])
		if err != nil {
			return nil, err
		}
		ids = append(ids, batchIDs...)
	}
	return ids, nil
}

func frameColumns(t *Table, f *tabular.Frame) ([]Column, error) {
	if len(f.Columns) == 0 {
		return nil, fmt.Errorf("%w: upload has no columns", ErrColumnMismatch)
	}
	columns := make([]Column, len(f.Columns))
	for i, name := range f.Columns {
		c, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: column %q does not exist in dataset %s", ErrColumnMismatch, name, t.Name)
		}
		columns[i] = c
	}
	return columns, nil
}

func convertRows(t *Table, columns []Column, rows [][]string) ([][]placeholder, error) {
	converted := make([][]placeholder, len(rows))
	for r, row := range rows {
		values := make([]placeholder, len(columns))
		for i, c := range columns {
			raw := ""
			if i < len(row) {
				raw = row[i]
			}
			p, err := convert(t, c, raw)
			if err != nil {
				return nil, &RowError{Row: r + 1, Column: c.Name, Value: raw, Err: err}
			}
			values[i] = p
		}
		converted[r] = values
	}
	return converted, nil
}

func insertBatch(tx *gorm.DB, t *Table, columns []Column, rows [][]placeholder) ([]int64, error) {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = pq.QuoteIdentifier(c.Name)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", t.QualifiedName(), strings.Join(names, ", "))

	args := make([]interface{}, 0, len(rows)*len(columns))
	for r, row := range rows {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for i, p := range row {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.expr)
			args = append(args, p.value)
		}
		sb.WriteByte(')')
	}
	fmt.Fprintf(&sb, " RETURNING %s", pq.QuoteIdentifier(IDColumn))

	result, err := tx.Raw(sb.String(), args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to insert rows into %s: %w", t.QualifiedName(), err)
	}
	defer result.Close()

	ids := make([]int64, 0, len(rows))
	for result.Next() {
		var id int64
		if err := result.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to read inserted row id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to insert rows into %s: %w", t.QualifiedName(), err)
	}
	return ids, nil
}

// convert turns a raw cell into a bind parameter for the column type.
// Geometry text is validated here and converted by PostGIS at insert time.
func convert(t *Table, c Column, raw string) (placeholder, error) {
	if tabular.IsNull(raw) {
		return placeholder{expr: "?", value: nil}, nil
	}

	switch c.Type {
	case inference.Integer:
		if v, err := inference.ParseInt(raw); err == nil {
			return placeholder{expr: "?", value: v}, nil
		}
		f, err := inference.ParseFloat(raw)
		if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
			return placeholder{}, fmt.Errorf("not an integer")
		}
		if f < -(1<<63) || f >= 1<<63 {
			return placeholder{}, fmt.Errorf("integer out of range")
		}
		return placeholder{expr: "?", value: int64(f)}, nil
	case inference.Float:
		v, err := inference.ParseFloat(raw)
		if err != nil {
			return placeholder{}, fmt.Errorf("not a number")
		}
		return placeholder{expr: "?", value: v}, nil
	case inference.Boolean:
		switch strings.TrimSpace(raw) {
		case "1":
			return placeholder{expr: "?", value: true}, nil
		case "0":
			return placeholder{expr: "?", value: false}, nil
		}
		v, err := inference.ParseBool(raw)
		if err != nil {
			return placeholder{}, err
		}
		return placeholder{expr: "?", value: v}, nil
	case inference.DateTime:
		v, err := inference.ParseDateTime(raw)
		if err != nil {
			return placeholder{}, err
		}
		return placeholder{expr: "?", value: v}, nil
	case inference.Geometry:
		return geometryPlaceholder(t, c, raw)
	}
	return placeholder{expr: "?", value: raw}, nil
}

func geometryPlaceholder(t *Table, c Column, raw string) (placeholder, error) {
	spec, ok := t.GeoSpec(c.Name)
	if !ok {
		spec = DefaultGeoSpec(c.Name)
	}
	_, format, err := inference.ParseGeometry(raw)
	if err != nil {
		return placeholder{}, err
	}

	value := strings.TrimSpace(raw)
	switch format {
	case inference.GeoJSON:
		return placeholder{expr: fmt.Sprintf("ST_SetSRID(ST_GeomFromGeoJSON(?), %d)", spec.SRID), value: value}, nil
	case inference.EWKT:
		return placeholder{expr: "ST_GeomFromEWKT(?)", value: value}, nil
	}
	return placeholder{expr: fmt.Sprintf("ST_GeomFromText(?, %d)", spec.SRID), value: value}, nil
}
