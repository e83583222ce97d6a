package geometry

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_SkipReasons(t *testing.T) {
	n := NewNormalizer(Options{})

	tests := []struct {
		name string
		raw  string
		want SkipReason
	}{
		{"absent", ``, SkipNullGeometry},
		{"null", `null`, SkipNullGeometry},
		{"missing type", `{"coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`, SkipEmptyCoordinates},
		{"empty coordinates", `{"type":"Polygon","coordinates":[]}`, SkipEmptyCoordinates},
		{"missing coordinates", `{"type":"Polygon"}`, SkipEmptyCoordinates},
		{"garbage", `{"type":`, SkipParseError},
		{"point without buffer", `{"type":"Point","coordinates":[1,2]}`, SkipInvalidAfterRepair},
		{"linestring", `{"type":"LineString","coordinates":[[0,0],[1,1]]}`, SkipInvalidAfterRepair},
		{"collapsed ring", `{"type":"Polygon","coordinates":[[[0,0],[1,1],[0,0]]]}`, SkipInvalidAfterRepair},
		{"zero area ring", `{"type":"Polygon","coordinates":[[[0,0],[1,1],[2,2],[0,0]]]}`, SkipInvalidAfterRepair},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, reason := n.Normalize(json.RawMessage(tt.raw), false)
			assert.Nil(t, g)
			assert.Equal(t, tt.want, reason)
		})
	}
}

func TestNormalize_RepairsOpenClockwiseRing(t *testing.T) {
	n := NewNormalizer(Options{})

	// clockwise, unclosed, with a repeated vertex
	raw := `{"type":"Polygon","coordinates":[[[0,0],[0,2],[0,2],[2,2],[2,0]]]}`
	g, reason := n.Normalize(json.RawMessage(raw), false)
	require.Equal(t, SkipNone, reason)

	poly, ok := g.(orb.Polygon)
	require.True(t, ok)
	require.Len(t, poly, 1)
	assert.True(t, poly[0].Closed())
	assert.Len(t, poly[0], 5)
	assert.Greater(t, signedArea(poly[0]), 0.0)
	assert.True(t, planar.PolygonContains(poly, orb.Point{1, 1}))
}

func TestNormalize_BowTieSplitsIntoLobes(t *testing.T) {
	n := NewNormalizer(Options{})

	raw := `{"type":"Polygon","coordinates":[[[0,0],[2,2],[2,0],[0,2],[0,0]]]}`
	g, reason := n.Normalize(json.RawMessage(raw), false)
	require.Equal(t, SkipNone, reason)

	mp, ok := g.(orb.MultiPolygon)
	require.True(t, ok)
	require.Len(t, mp, 2)
	for _, lobe := range mp {
		assert.InDelta(t, 1.0, signedArea(lobe[0]), 1e-9)
		assert.False(t, selfIntersects(lobe[0]))
	}

	assert.True(t, planar.MultiPolygonContains(mp, orb.Point{1.5, 1}))
	assert.True(t, planar.MultiPolygonContains(mp, orb.Point{0.5, 1}))
	// between the lobes, inside the hull
	assert.False(t, planar.MultiPolygonContains(mp, orb.Point{1, 0.2}))
	assert.False(t, planar.MultiPolygonContains(mp, orb.Point{1, 1.8}))
}

func TestNormalize_TwistedConcaveShellKeepsNotch(t *testing.T) {
	n := NewNormalizer(Options{})

	// U shape with a small twist on its west edge
	raw := `{"type":"Polygon","coordinates":[[
		[-93,34],[-92,34],[-92,35],[-92.2,35],[-92.2,34.2],[-92.8,34.2],[-92.8,35],[-93,35],
		[-93,34.52],[-92.99,34.50],[-92.99,34.52],[-93,34.50],[-93,34]
	]]}`
	g, reason := n.Normalize(json.RawMessage(raw), false)
	require.Equal(t, SkipNone, reason)

	poly, ok := g.(orb.Polygon)
	require.True(t, ok)
	assert.False(t, selfIntersects(poly[0]))
	assert.Greater(t, signedArea(poly[0]), 0.0)

	assert.False(t, planar.PolygonContains(poly, orb.Point{-92.5, 34.8}), "notch must stay outside")
	assert.True(t, planar.PolygonContains(poly, orb.Point{-92.5, 34.1}))
	assert.True(t, planar.PolygonContains(poly, orb.Point{-92.9, 34.8}))
	assert.True(t, planar.PolygonContains(poly, orb.Point{-92.1, 34.8}))
}

func TestRepairShell_DegenerateAndSpikedRings(t *testing.T) {
	// a ring that doubles back along itself leaves no simple loop with area
	ring := orb.Ring{{0, 0}, {2, 0}, {1, 0}, {3, 0}, {0, 0}}
	assert.Empty(t, repairShell(ring))

	// a spike crossing the shell still yields an areal result
	shells := repairShell(orb.Ring{{0, 0}, {4, 0}, {4, 4}, {2, 4}, {2, -1}, {1, 4}, {0, 4}, {0, 0}})
	require.NotEmpty(t, shells)
	for _, s := range shells {
		assert.Greater(t, signedArea(s), 0.0)
		assert.False(t, selfIntersects(s))
	}
}

func TestNormalize_DropsEscapingHole(t *testing.T) {
	n := NewNormalizer(Options{})

	raw := `{"type":"Polygon","coordinates":[
		[[0,0],[4,0],[4,4],[0,4],[0,0]],
		[[1,1],[1,2],[2,2],[2,1],[1,1]],
		[[3,3],[3,5],[5,5],[5,3],[3,3]]
	]}`
	g, reason := n.Normalize(json.RawMessage(raw), false)
	require.Equal(t, SkipNone, reason)

	poly := g.(orb.Polygon)
	require.Len(t, poly, 2)
	assert.Less(t, signedArea(poly[1]), 0.0)
}

func TestNormalize_MultiPolygonKeepsValidParts(t *testing.T) {
	n := NewNormalizer(Options{})

	raw := `{"type":"MultiPolygon","coordinates":[
		[[[0,0],[1,0],[1,1],[0,1],[0,0]]],
		[[[5,5],[6,6],[5,5]]],
		[[[10,10],[11,10],[11,11],[10,11],[10,10]]]
	]}`
	g, reason := n.Normalize(json.RawMessage(raw), false)
	require.Equal(t, SkipNone, reason)

	mp, ok := g.(orb.MultiPolygon)
	require.True(t, ok)
	assert.Len(t, mp, 2)
}

func TestNormalize_BufferedPoint(t *testing.T) {
	n := NewNormalizer(Options{QuakeRadius: 0.5, CircleSegments: 64})

	g, reason := n.Normalize(json.RawMessage(`{"type":"Point","coordinates":[-118.2,34.05,10.5]}`), true)
	require.Equal(t, SkipNone, reason)

	poly := g.(orb.Polygon)
	assert.Len(t, poly[0], 65)
	assert.True(t, planar.PolygonContains(poly, orb.Point{-118.2, 34.3}))
	assert.False(t, planar.PolygonContains(poly, orb.Point{-118.2, 34.6}))
}

func TestNormalize_Simplify(t *testing.T) {
	n := NewNormalizer(Options{SimplifyTolerance: 0.0001})

	raw := `{"type":"Polygon","coordinates":[[[0,0],[1,0],[2,0.00001],[3,0],[3,3],[0,3],[0,0]]]}`
	g, reason := n.Normalize(json.RawMessage(raw), false)
	require.Equal(t, SkipNone, reason)

	poly := g.(orb.Polygon)
	assert.Len(t, poly[0], 5)
}

func TestConvexHull(t *testing.T) {
	hull := ConvexHull([]orb.Point{{0, 0}, {1, 1}, {2, 0}, {2, 2}, {0, 2}, {1, 0.5}})
	require.Len(t, hull, 5)
	assert.True(t, hull.Closed())
	assert.InDelta(t, 4.0, signedArea(hull), 1e-9)

	assert.Nil(t, ConvexHull([]orb.Point{{0, 0}, {1, 1}}))
}
