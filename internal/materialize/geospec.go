package materialize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultGeometryType = "GEOMETRY"
	DefaultSRID         = 4326
)

var ErrInvalidGeoSpec = errors.New("invalid geospatial column")

var geometryTypes = map[string]bool{
	"GEOMETRY":           true,
	"POINT":              true,
	"LINESTRING":         true,
	"POLYGON":            true,
	"MULTIPOINT":         true,
	"MULTILINESTRING":    true,
	"MULTIPOLYGON":       true,
	"GEOMETRYCOLLECTION": true,
}

// GeoSpec declares a column as spatial geometry.
type GeoSpec struct {
	Column       string `json:"column"`
	GeometryType string `json:"geometry_type"`
	SRID         int    `json:"srid"`
}

// Definition is the PostGIS column type, e.g. geometry(POINT,4326).
func (s GeoSpec) Definition() string {
	return fmt.Sprintf("geometry(%s,%d)", s.GeometryType, s.SRID)
}

func DefaultGeoSpec(column string) GeoSpec {
	return GeoSpec{Column: column, GeometryType: DefaultGeometryType, SRID: DefaultSRID}
}

// ParseGeoSpec parses "column[:TYPE[:SRID]]".
func ParseGeoSpec(s string) (GeoSpec, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 3 {
		return GeoSpec{}, fmt.Errorf("%w %q: expected column[:type[:srid]]", ErrInvalidGeoSpec, s)
	}

	spec := DefaultGeoSpec(strings.TrimSpace(parts[0]))
	if spec.Column == "" {
		return GeoSpec{}, fmt.Errorf("%w %q: missing column name", ErrInvalidGeoSpec, s)
	}

	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		spec.GeometryType = strings.ToUpper(strings.TrimSpace(parts[1]))
		if !geometryTypes[spec.GeometryType] {
			return GeoSpec{}, fmt.Errorf("%w %q: unknown geometry type %q", ErrInvalidGeoSpec, s, parts[1])
		}
	}

	if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
		srid, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil || srid < 0 {
			return GeoSpec{}, fmt.Errorf("%w %q: bad srid %q", ErrInvalidGeoSpec, s, parts[2])
		}
		spec.SRID = srid
	}
	return spec, nil
}

// ParseGeoSpecs parses the comma separated list posted with the type picker.
// Column names go through the same normalization as the uploaded header.
func ParseGeoSpecs(list string, normalize func(string) string) ([]GeoSpec, error) {
	var specs []GeoSpec
	for _, item := range strings.Split(list, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		spec, err := ParseGeoSpec(item)
		if err != nil {
			return nil, err
		}
		if normalize != nil {
			spec.Column = normalize(spec.Column)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
