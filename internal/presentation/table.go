package presentation

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// NullMarker replaces null and not-a-number cells in transported rows.
const NullMarker = "null"

const timeLayout = "2006-01-02 15:04:05"

var (
	latitudeColumns  = []string{"latitude", "lat"}
	longitudeColumns = []string{"longitude", "lon", "lng"}
)

// Table is a result set as ordered column names and ordered rows.
type Table struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// ScanTable reads every remaining row and closes rows.
func ScanTable(rows *sql.Rows) (*Table, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	t := &Table{Columns: columns, Rows: [][]interface{}{}}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		t.Rows = append(t.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return t, nil
}

// Sanitized returns a copy of the table that is safe to encode as JSON.
func (t *Table) Sanitized() *Table {
	out := &Table{Columns: t.Columns, Rows: make([][]interface{}, len(t.Rows))}
	for i, row := range t.Rows {
		clean := make([]interface{}, len(row))
		for j, v := range row {
			clean[j] = Sanitize(v)
		}
		out.Rows[i] = clean
	}
	return out
}

// Sanitize converts one cell for transport: null and NaN become NullMarker,
// anything that is not a plain JSON scalar becomes its string form.
func Sanitize(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return NullMarker
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return NullMarker
		}
		return x
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return NullMarker
		}
		return x
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(timeLayout)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// MedianLatLon returns the median latitude and longitude of the rows, read
// from the conventional latitude/longitude columns. Either is nil when the
// column is missing or holds no numbers.
func MedianLatLon(t *Table) (lat, lon *float64) {
	return t.median(latitudeColumns), t.median(longitudeColumns)
}

func (t *Table) median(names []string) *float64 {
	i := t.columnIndexFold(names)
	if i < 0 {
		return nil
	}
	values := make([]float64, 0, len(t.Rows))
	for _, row := range t.Rows {
		if f, ok := toFloat(row[i]); ok {
			values = append(values, f)
		}
	}
	m, ok := Median(values)
	if !ok {
		return nil
	}
	return &m
}

func (t *Table) columnIndexFold(names []string) int {
	for _, name := range names {
		for i, c := range t.Columns {
			if strings.EqualFold(c, name) {
				return i
			}
		}
	}
	return -1
}

// Median of the values; the mean of the two middle values for even counts.
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}

func toFloat(v interface{}) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case int:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case []byte:
		return toFloat(string(x))
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
