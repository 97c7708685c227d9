package presentation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
	"github.com/paulmach/orb/geojson"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/materialize"
)

// GeometryField is the result column holding the rendered geometry.
const GeometryField = "geometry"

var ErrNoGeometry = errors.New("dataset has no geospatial columns")

// Feature is a GeoJSON Feature with the sorted property names attached.
type Feature struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Geometry   *geojson.Geometry      `json:"geometry"`
	Keys       []string               `json:"keys"`
}

// FeatureSelectList selects the row id and the non-geometry columns, plus the
// first declared geometry column rendered as GeoJSON under GeometryField.
func FeatureSelectList(t *materialize.Table) (string, error) {
	if len(t.Geo) == 0 {
		return "", ErrNoGeometry
	}

	items := []string{pq.QuoteIdentifier(materialize.IDColumn)}
	for _, c := range t.Columns {
		if _, isGeo := t.GeoSpec(c.Name); isGeo || c.Name == GeometryField {
			continue
		}
		items = append(items, pq.QuoteIdentifier(c.Name))
	}
	items = append(items, fmt.Sprintf("ST_AsGeoJSON(%s) AS %s",
		pq.QuoteIdentifier(t.Geo[0].Column), pq.QuoteIdentifier(GeometryField)))
	return strings.Join(items, ", "), nil
}

// Features turns every row into a Feature. Properties hold every column
// except the geometry columns and GeometryField.
func Features(t *Table, geoColumns []string) ([]Feature, error) {
	geomIndex := -1
	excluded := make(map[string]bool, len(geoColumns)+1)
	excluded[GeometryField] = true
	for _, c := range geoColumns {
		excluded[c] = true
	}
	for i, c := range t.Columns {
		if c == GeometryField {
			geomIndex = i
		}
	}
	if geomIndex < 0 {
		return nil, ErrNoGeometry
	}

	features := make([]Feature, 0, len(t.Rows))
	for _, row := range t.Rows {
		geometry, err := decodeGeometry(row[geomIndex])
		if err != nil {
			return nil, err
		}

		properties := make(map[string]interface{}, len(t.Columns))
		keys := make([]string, 0, len(t.Columns))
		for i, c := range t.Columns {
			if excluded[c] {
				continue
			}
			properties[c] = Sanitize(row[i])
			keys = append(keys, c)
		}
		sort.Strings(keys)

		features = append(features, Feature{
			Type:       "Feature",
			Properties: properties,
			Geometry:   geometry,
			Keys:       keys,
		})
	}
	return features, nil
}

func decodeGeometry(v interface{}) (*geojson.Geometry, error) {
	var data []byte
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		data = []byte(x)
	case []byte:
		data = x
	default:
		return nil, fmt.Errorf("unexpected geometry value of type %T", v)
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode geometry: %w", err)
	}
	return g, nil
}
