package spatial

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"
)

// Index is a bounding-box R-tree over one category's zones. It is built once
// and only read afterwards, so concurrent queries are safe.
type Index struct {
	tree rtree.RTreeG[int]
	size int
}

// Build indexes the bounds by slice position.
func Build(bounds []orb.Bound) *Index {
	ix := &Index{size: len(bounds)}
	for i, b := range bounds {
		ix.tree.Insert(
			[2]float64{b.Min[0], b.Min[1]},
			[2]float64{b.Max[0], b.Max[1]},
			i,
		)
	}
	return ix
}

func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return ix.size
}

// Query returns the positions of every bound that, padded by pad on each
// side, contains p. The result is a superset of the true hits, in ascending
// order.
func (ix *Index) Query(p orb.Point, pad float64) []int {
	if ix.Len() == 0 {
		return nil
	}

	var hits []int
	ix.tree.Search(
		[2]float64{p[0] - pad, p[1] - pad},
		[2]float64{p[0] + pad, p[1] + pad},
		func(_, _ [2]float64, i int) bool {
			hits = append(hits, i)
			return true
		},
	)
	sort.Ints(hits)
	return hits
}
