package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	DefaultQuakeRadius    = 0.5
	DefaultCircleSegments = 64
)

// Circle approximates a disc of radius degrees around center with a closed
// counter-clockwise ring of segments edges.
func Circle(center orb.Point, radius float64, segments int) orb.Polygon {
	if segments < 3 {
		segments = DefaultCircleSegments
	}
	ring := make(orb.Ring, 0, segments+1)
	for i := 0; i < segments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		ring = append(ring, orb.Point{
			center[0] + radius*math.Cos(theta),
			center[1] + radius*math.Sin(theta),
		})
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}
