package inference

import (
	"strings"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/tabular"
)

// SampleSize bounds how many non-null values of a column are inspected.
const SampleSize = 100

// DateTimeTokens mark a column as holding dates or times by its name.
var DateTimeTokens = []string{"time", "date"}

type Column struct {
	Name string   `json:"name"`
	Type DataType `json:"type"`
}

type Result struct {
	Columns  []Column   `json:"columns"`
	Possible []DataType `json:"possibleDatatypes"`
}

// Types returns the proposed types in column order.
func (r Result) Types() []DataType {
	types := make([]DataType, len(r.Columns))
	for i, c := range r.Columns {
		types[i] = c.Type
	}
	return types
}

// Infer proposes a type for every column of the frame.
func Infer(f *tabular.Frame) Result {
	result := Result{Columns: make([]Column, len(f.Columns)), Possible: PossibleTypes()}
	for i, name := range f.Columns {
		result.Columns[i] = Column{Name: name, Type: InferColumn(name, f.Column(i))}
	}
	return result
}

// InferColumn proposes the most specific type all sampled values fit.
// Columns with no usable values are text.
func InferColumn(name string, values []string) DataType {
	sample := make([]string, 0, SampleSize)
	for _, v := range values {
		if tabular.IsNull(v) {
			continue
		}
		sample = append(sample, v)
		if len(sample) == SampleSize {
			break
		}
	}
	if len(sample) == 0 {
		return Text
	}

	if IsDateTimeName(name) && all(sample, isDateTime) {
		return DateTime
	}

	switch {
	case all(sample, isInteger):
		return Integer
	case all(sample, isFloat):
		return Float
	case all(sample, isDateTime):
		return DateTime
	case all(sample, isBool):
		return Boolean
	case all(sample, isGeometry):
		return Geometry
	}
	return Text
}

func IsDateTimeName(name string) bool {
	lower := strings.ToLower(name)
	for _, token := range DateTimeTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func all(values []string, fits func(string) bool) bool {
	for _, v := range values {
		if !fits(v) {
			return false
		}
	}
	return true
}

func isInteger(v string) bool {
	_, err := ParseInt(v)
	return err == nil
}

func isFloat(v string) bool {
	_, err := ParseFloat(v)
	return err == nil
}

func isDateTime(v string) bool {
	_, err := ParseDateTime(v)
	return err == nil
}

func isBool(v string) bool {
	_, err := ParseBool(v)
	return err == nil
}

func isGeometry(v string) bool {
	_, _, err := ParseGeometry(v)
	return err == nil
}
