package geometry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
)

type SkipReason string

const (
	SkipNone               SkipReason = ""
	SkipNullGeometry       SkipReason = "null_geometry"
	SkipEmptyCoordinates   SkipReason = "empty_coordinates"
	SkipInvalidAfterRepair SkipReason = "invalid_after_repair"
	SkipParseError         SkipReason = "parse_error"
)

// CountsAsNull reports whether the skip is tallied as missing geometry rather
// than a parse failure.
func (r SkipReason) CountsAsNull() bool {
	return r == SkipNullGeometry || r == SkipEmptyCoordinates
}

type Options struct {
	// SimplifyTolerance in degrees; zero disables simplification. Keep it
	// below the boundary buffer.
	SimplifyTolerance float64
	QuakeRadius       float64
	CircleSegments    int
}

type Normalizer struct {
	opts       Options
	simplifier *simplify.DouglasPeuckerSimplifier
}

func NewNormalizer(opts Options) *Normalizer {
	if opts.QuakeRadius <= 0 {
		opts.QuakeRadius = DefaultQuakeRadius
	}
	if opts.CircleSegments <= 0 {
		opts.CircleSegments = DefaultCircleSegments
	}
	n := &Normalizer{opts: opts}
	if opts.SimplifyTolerance > 0 {
		n.simplifier = simplify.DouglasPeucker(opts.SimplifyTolerance)
	}
	return n
}

type geometryHeader struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Normalize turns one raw GeoJSON geometry into a valid Polygon or
// MultiPolygon. Points are buffered into circles only when bufferPoints is
// set. It never panics; failures come back as a SkipReason.
func (n *Normalizer) Normalize(raw json.RawMessage, bufferPoints bool) (g orb.Geometry, reason SkipReason) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("recovered while normalizing geometry", "panic", fmt.Sprint(r))
			g, reason = nil, SkipParseError
		}
	}()

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, SkipNullGeometry
	}

	var hdr geometryHeader
	if err := json.Unmarshal(trimmed, &hdr); err != nil {
		return nil, SkipParseError
	}
	if hdr.Type == "" || emptyJSON(hdr.Coordinates) {
		return nil, SkipEmptyCoordinates
	}

	parsed, err := geojson.UnmarshalGeometry(trimmed)
	if err != nil || parsed == nil || parsed.Geometry() == nil {
		return nil, SkipParseError
	}

	switch geom := parsed.Geometry().(type) {
	case orb.Point:
		if !bufferPoints {
			return nil, SkipInvalidAfterRepair
		}
		return Circle(geom, n.opts.QuakeRadius, n.opts.CircleSegments), SkipNone
	case orb.Polygon:
		fixed, ok := repairPolygon(n.simplifyPolygon(geom))
		if !ok {
			return nil, SkipInvalidAfterRepair
		}
		return collapse(fixed), SkipNone
	case orb.MultiPolygon:
		simplified := make(orb.MultiPolygon, len(geom))
		for i, p := range geom {
			simplified[i] = n.simplifyPolygon(p)
		}
		fixed, ok := repairMultiPolygon(simplified)
		if !ok {
			return nil, SkipInvalidAfterRepair
		}
		return collapse(fixed), SkipNone
	default:
		return nil, SkipInvalidAfterRepair
	}
}

func (n *Normalizer) simplifyPolygon(p orb.Polygon) orb.Polygon {
	if n.simplifier == nil {
		return p
	}
	if s, ok := n.simplifier.Simplify(p.Clone()).(orb.Polygon); ok {
		return s
	}
	return p
}

// collapse returns a lone part as a plain Polygon.
func collapse(mp orb.MultiPolygon) orb.Geometry {
	if len(mp) == 1 {
		return mp[0]
	}
	return mp
}

func emptyJSON(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null")) || bytes.Equal(t, []byte("[]"))
}
