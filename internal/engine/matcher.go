package engine

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

const DefaultBuffer = 0.001

// Matcher answers which zones of a run cover a point. A point on or within
// buffer degrees of a zone boundary counts as inside.
type Matcher struct {
	run    *Run
	buffer float64
}

func NewMatcher(run *Run, buffer float64) *Matcher {
	if buffer < 0 {
		buffer = 0
	}
	return &Matcher{run: run, buffer: buffer}
}

// Match returns the description of every covering zone across all
// categories, unsorted and possibly repeated.
func (m *Matcher) Match(p orb.Point) []string {
	zones := m.Zones(p)
	hits := make([]string, len(zones))
	for i, z := range zones {
		hits[i] = z.Description
	}
	return hits
}

// Zones returns every zone covering p, in category order.
func (m *Matcher) Zones(p orb.Point) []models.HazardZone {
	var hits []models.HazardZone
	for _, cat := range models.Categories {
		zones := m.run.zones[cat]
		for _, i := range m.run.indices[cat].Query(p, m.buffer) {
			if m.covers(zones[i].Geometry, p) {
				hits = append(hits, zones[i])
			}
		}
	}
	return hits
}

func (m *Matcher) covers(g orb.Geometry, p orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, p) || m.nearPolygon(geom, p)
	case orb.MultiPolygon:
		if planar.MultiPolygonContains(geom, p) {
			return true
		}
		for _, poly := range geom {
			if m.nearPolygon(poly, p) {
				return true
			}
		}
	}
	return false
}

func (m *Matcher) nearPolygon(poly orb.Polygon, p orb.Point) bool {
	for _, ring := range poly {
		for i := 0; i < len(ring)-1; i++ {
			if planar.DistanceFromSegment(ring[i], ring[i+1], p) <= m.buffer {
				return true
			}
		}
	}
	return false
}
