package tabular

import (
	"strings"
)

// Frame is a parsed tabular buffer. Cells are kept as the raw strings found in
// the uploaded file; an empty cell is a null.
type Frame struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func (f *Frame) Len() int {
	return len(f.Rows)
}

// Column returns the values of the i-th column in row order.
func (f *Frame) Column(i int) []string {
	values := make([]string, 0, len(f.Rows))
	for _, row := range f.Rows {
		if i < len(row) {
			values = append(values, row[i])
		} else {
			values = append(values, "")
		}
	}
	return values
}

// Index returns the position of the named column or -1.
func (f *Frame) Index(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Sample returns a frame holding at most the first n rows.
func (f *Frame) Sample(n int) *Frame {
	if n > len(f.Rows) {
		n = len(f.Rows)
	}
	return &Frame{Columns: f.Columns, Rows: f.Rows[:n]}
}

// NormalizeColumns rewrites the header with NormalizeColumnName.
func (f *Frame) NormalizeColumns() {
	for i, c := range f.Columns {
		f.Columns[i] = NormalizeColumnName(c)
	}
}

var columnNameReplacer = strings.NewReplacer(" ", "_", "?", "_")

// NormalizeColumnName makes an uploaded header usable as a column of a
// dataset table. The synthetic row identifier owns the name "id".
func NormalizeColumnName(name string) string {
	name = columnNameReplacer.Replace(strings.TrimSpace(name))
	if strings.EqualFold(name, "id") {
		return "id_original"
	}
	return name
}

var nullMarkers = map[string]bool{
	"":     true,
	"nan":  true,
	"null": true,
	"none": true,
	"na":   true,
	"n/a":  true,
}

// IsNull reports whether a raw cell stands for a missing value.
func IsNull(value string) bool {
	return nullMarkers[strings.ToLower(strings.TrimSpace(value))]
}
