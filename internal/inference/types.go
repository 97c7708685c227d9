package inference

import (
	"errors"
	"fmt"
	"strings"
)

type DataType string

const (
	Text     DataType = "text"
	Integer  DataType = "integer"
	Float    DataType = "float"
	Boolean  DataType = "boolean"
	DateTime DataType = "datetime"
	Geometry DataType = "geometry"
)

var ErrUnknownType = errors.New("unknown data type")

var possibleTypes = []DataType{Text, Integer, Float, Boolean, DateTime, Geometry}

var sqlTypes = map[DataType]string{
	Text:     "TEXT",
	Integer:  "BIGINT",
	Float:    "DOUBLE PRECISION",
	Boolean:  "BOOLEAN",
	DateTime: "TIMESTAMP",
}

// PossibleTypes is the closed set of types a user may pick for a column.
func PossibleTypes() []DataType {
	types := make([]DataType, len(possibleTypes))
	copy(types, possibleTypes)
	return types
}

func ParseType(s string) (DataType, error) {
	t := DataType(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range possibleTypes {
		if p == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// ParseTypes parses a comma separated list of types as posted by the type picker.
func ParseTypes(list string) ([]DataType, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	parts := strings.Split(list, ",")
	types := make([]DataType, 0, len(parts))
	for _, p := range parts {
		t, err := ParseType(p)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// SQLType is the column type used in a dataset table. Geometry columns take
// their definition from the geospatial declaration instead.
func (t DataType) SQLType() string {
	if s, ok := sqlTypes[t]; ok {
		return s
	}
	return "TEXT"
}
