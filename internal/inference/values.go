package inference

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006 15:04",
	"1/2/2006",
	"02-Jan-2006",
	"Jan 2, 2006",
	"2 January 2006",
	time.RFC1123,
	"20060102150405",
	"20060102",
	"15:04:05",
	"15:04",
}

// ParseDateTime tries the known date and time layouts in order.
func ParseDateTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date/time %q", v)
}

func ParseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "t", "yes", "y":
		return true, nil
	case "false", "f", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized boolean %q", v)
}

func ParseInt(v string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
}

func ParseFloat(v string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(v), 64)
}

// GeometryFormat is the textual encoding a geometry value was uploaded in.
type GeometryFormat int

const (
	WKT GeometryFormat = iota
	EWKT
	GeoJSON
)

// ParseGeometry recognizes WKT, EWKT (SRID=n;WKT) and GeoJSON geometry text.
func ParseGeometry(v string) (orb.Geometry, GeometryFormat, error) {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "{") {
		g, err := geojson.UnmarshalGeometry([]byte(v))
		if err != nil {
			return nil, GeoJSON, fmt.Errorf("malformed geojson geometry: %w", err)
		}
		return g.Geometry(), GeoJSON, nil
	}

	format := WKT
	if strings.HasPrefix(strings.ToUpper(v), "SRID=") {
		i := strings.Index(v, ";")
		if i < 0 {
			return nil, EWKT, errors.New("malformed ewkt geometry: missing ';'")
		}
		if _, err := strconv.Atoi(v[len("SRID="):i]); err != nil {
			return nil, EWKT, fmt.Errorf("malformed ewkt srid: %w", err)
		}
		v = v[i+1:]
		format = EWKT
	}

	g, err := wkt.Unmarshal(v)
	if err != nil {
		return nil, format, fmt.Errorf("malformed wkt geometry: %w", err)
	}
	return g, format, nil
}
