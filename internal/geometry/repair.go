package geometry

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// repairPolygon returns the cleaned parts of p, or false when nothing areal
// survives. A self-intersecting shell may come back as several parts. Outer
// rings end up counter-clockwise and holes clockwise.
func repairPolygon(p orb.Polygon) (orb.MultiPolygon, bool) {
	if len(p) == 0 {
		return nil, false
	}

	shells := repairShell(p[0])
	if len(shells) == 0 {
		return nil, false
	}

	out := make(orb.MultiPolygon, len(shells))
	for i, shell := range shells {
		out[i] = orb.Polygon{shell}
	}
	for _, h := range p[1:] {
		hole, ok := repairHole(h)
		if !ok {
			continue
		}
		for i := range out {
			if ringInside(hole, out[i][0]) {
				out[i] = append(out[i], hole)
				break
			}
		}
	}
	return out, true
}

func repairMultiPolygon(mp orb.MultiPolygon) (orb.MultiPolygon, bool) {
	out := make(orb.MultiPolygon, 0, len(mp))
	for _, p := range mp {
		if fixed, ok := repairPolygon(p); ok {
			out = append(out, fixed...)
		}
	}
	return out, len(out) > 0
}

// closeRing drops repeated and non-finite vertices and closes the ring.
// It returns nil when fewer than three distinct vertices remain.
func closeRing(r orb.Ring) orb.Ring {
	ring := dedupe(r)
	if len(ring) == 0 {
		return nil
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	if len(ring) < 4 {
		return nil
	}
	return ring
}

// repairShell returns the simple counter-clockwise rings covering r. A
// self-intersecting ring is split at its crossings; the convex hull is used
// only when splitting does not yield simple rings.
func repairShell(r orb.Ring) []orb.Ring {
	ring := closeRing(r)
	if ring == nil {
		return nil
	}

	if !selfIntersects(ring) {
		if signedArea(ring) == 0 {
			return nil
		}
		orient(ring, true)
		return []orb.Ring{ring}
	}

	if parts := splitRing(ring); len(parts) > 0 {
		return parts
	}

	hull := ConvexHull(ring)
	if len(hull) < 4 || signedArea(hull) == 0 {
		return nil
	}
	return []orb.Ring{hull}
}

// repairHole returns a clockwise copy of r. Self-intersecting holes are
// dropped.
func repairHole(r orb.Ring) (orb.Ring, bool) {
	ring := closeRing(r)
	if ring == nil || selfIntersects(ring) || signedArea(ring) == 0 {
		return nil, false
	}
	orient(ring, false)
	return ring, true
}

func orient(r orb.Ring, ccw bool) {
	if (signedArea(r) > 0) != ccw {
		r.Reverse()
	}
}

// splitRing nodes r at every self-intersection and cuts it into the loops
// between repeated vertices, so a bow tie becomes its two lobes. Loops
// enclosed by a larger loop are folded into it. It returns nil if any loop
// is still not simple.
func splitRing(r orb.Ring) []orb.Ring {
	var loops []orb.Ring
	for _, loop := range extractLoops(nodeRing(r)) {
		if len(loop) < 4 || signedArea(loop) == 0 {
			continue
		}
		if selfIntersects(loop) {
			return nil
		}
		orient(loop, true)
		loops = append(loops, loop)
	}

	sort.Slice(loops, func(i, j int) bool {
		return signedArea(loops[i]) > signedArea(loops[j])
	})
	var out []orb.Ring
	for _, loop := range loops {
		enclosed := false
		for _, kept := range out {
			if ringInside(loop, kept) {
				enclosed = true
				break
			}
		}
		if !enclosed {
			out = append(out, loop)
		}
	}
	return out
}

// nodeRing returns r with every crossing or touching point inserted into the
// edges it lies on. A crossing point is the same value on both edges.
func nodeRing(r orb.Ring) orb.Ring {
	n := len(r) - 1
	splits := make([][]orb.Point, n)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if adjacent(i, j, n) {
				continue
			}
			a, b, c, d := r[i], r[i+1], r[j], r[j+1]
			if !segmentsIntersect(a, b, c, d) {
				continue
			}
			onAB, onCD := crossingPoints(a, b, c, d)
			splits[i] = append(splits[i], onAB...)
			splits[j] = append(splits[j], onCD...)
		}
	}

	out := make(orb.Ring, 0, len(r)+2*n)
	for i := 0; i < n; i++ {
		a := r[i]
		out = append(out, a)
		pts := splits[i]
		sort.Slice(pts, func(x, y int) bool {
			return sqDist(a, pts[x]) < sqDist(a, pts[y])
		})
		for _, p := range pts {
			if p.Equal(out[len(out)-1]) || p.Equal(r[i+1]) {
				continue
			}
			out = append(out, p)
		}
	}
	return append(out, r[n])
}

// crossingPoints returns the points to insert into ab and cd for a pair of
// edges known to intersect.
func crossingPoints(a, b, c, d orb.Point) (onAB, onCD []orb.Point) {
	d1 := cross(c, d, a)
	d2 := cross(c, d, b)
	d3 := cross(a, b, c)
	d4 := cross(a, b, d)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		t := d1 / (d1 - d2)
		p := orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
		return []orb.Point{p}, []orb.Point{p}
	}

	if d3 == 0 && onSegment(a, b, c) {
		onAB = append(onAB, c)
	}
	if d4 == 0 && onSegment(a, b, d) {
		onAB = append(onAB, d)
	}
	if d1 == 0 && onSegment(c, d, a) {
		onCD = append(onCD, a)
	}
	if d2 == 0 && onSegment(c, d, b) {
		onCD = append(onCD, b)
	}
	return onAB, onCD
}

// extractLoops walks a noded ring and cuts out a closed loop each time the
// walk returns to a vertex it is still holding.
func extractLoops(r orb.Ring) []orb.Ring {
	var (
		loops []orb.Ring
		path  []orb.Point
		seen  = make(map[orb.Point]int)
	)
	for _, p := range r[:len(r)-1] {
		if j, ok := seen[p]; ok {
			loop := make(orb.Ring, 0, len(path)-j+1)
			loop = append(loop, path[j:]...)
			loops = append(loops, append(loop, p))
			for _, q := range path[j+1:] {
				delete(seen, q)
			}
			path = path[:j+1]
			continue
		}
		seen[p] = len(path)
		path = append(path, p)
	}

	if len(path) > 0 {
		rest := make(orb.Ring, 0, len(path)+1)
		rest = append(rest, path...)
		loops = append(loops, append(rest, path[0]))
	}
	return loops
}

func sqDist(a, b orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	return dx*dx + dy*dy
}

func dedupe(r orb.Ring) orb.Ring {
	out := make(orb.Ring, 0, len(r))
	for _, p := range r {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
			continue
		}
		if len(out) > 0 && out[len(out)-1].Equal(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// signedArea is positive for counter-clockwise rings.
func signedArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i < len(r)-1; i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}

func ringInside(inner, outer orb.Ring) bool {
	for _, p := range inner[:len(inner)-1] {
		if !planar.RingContains(outer, p) {
			return false
		}
	}
	return true
}

type segment struct {
	a, b       orb.Point
	idx        int
	minX, maxX float64
}

// selfIntersects reports whether any two non-adjacent edges of a closed ring
// touch. Edges are swept by x extent so long perimeters stay cheap.
func selfIntersects(r orb.Ring) bool {
	n := len(r) - 1
	segs := make([]segment, n)
	for i := 0; i < n; i++ {
		a, b := r[i], r[i+1]
		segs[i] = segment{a: a, b: b, idx: i, minX: math.Min(a[0], b[0]), maxX: math.Max(a[0], b[0])}
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].minX < segs[j].minX })

	for i := range segs {
		for j := i + 1; j < len(segs) && segs[j].minX <= segs[i].maxX; j++ {
			if adjacent(segs[i].idx, segs[j].idx, n) {
				continue
			}
			if segmentsIntersect(segs[i].a, segs[i].b, segs[j].a, segs[j].b) {
				return true
			}
		}
	}
	return false
}

func adjacent(i, j, n int) bool {
	d := i - j
	if d < 0 {
		d = -d
	}
	return d <= 1 || d == n-1
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

func segmentsIntersect(p1, p2, p3, p4 orb.Point) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	switch {
	case d1 == 0 && onSegment(p3, p4, p1):
		return true
	case d2 == 0 && onSegment(p3, p4, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, p3):
		return true
	case d4 == 0 && onSegment(p1, p2, p4):
		return true
	}
	return false
}

// ConvexHull returns the closed counter-clockwise hull of the given points
// (monotone chain).
func ConvexHull(points []orb.Point) orb.Ring {
	pts := make([]orb.Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	uniq := pts[:0]
	for _, p := range pts {
		if len(uniq) > 0 && p.Equal(uniq[len(uniq)-1]) {
			continue
		}
		uniq = append(uniq, p)
	}
	pts = uniq
	if len(pts) < 3 {
		return nil
	}

	hull := make([]orb.Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// the last point equals the first, which closes the ring
	return orb.Ring(hull)
}
