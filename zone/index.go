package zone

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/tidwall/rtree"
)

// Index is an R-tree of zones keyed by their envelope in web mercator.
type Index struct {
	tree rtree.RTreeG[*Zone]
}

func NewIndex() *Index {
	return &Index{}
}

// Projected envelope of a zone.
func Envelope(z *Zone) orb.Bound {
	return project.Geometry(orb.Clone(z.Geometry), project.WGS84.ToMercator).Bound()
}

// Insert adds z. Zones without geometry are not indexed.
func (idx *Index) Insert(z *Zone) bool {
	if z.Geometry == nil {
		return false
	}
	b := Envelope(z)
	idx.tree.Insert([2]float64{b.Min[0], b.Min[1]}, [2]float64{b.Max[0], b.Max[1]}, z)
	return true
}

// Load inserts all zones. Returns the number indexed.
func (idx *Index) Load(zones []*Zone) int {
	n := 0
	for _, z := range zones {
		if idx.Insert(z) {
			n++
		}
	}
	return n
}

func (idx *Index) Len() int {
	return idx.tree.Len()
}

// Within returns zones whose envelope intersects the square of side
// 2*radius meters centered on p (lon, lat). Results are in no
// particular order.
func (idx *Index) Within(p orb.Point, radius float64) []*Zone {
	q := SearchBound(p, radius)

	candidates := []*Zone{}
	idx.tree.Search(
		[2]float64{q.Min[0], q.Min[1]},
		[2]float64{q.Max[0], q.Max[1]},
		func(min, max [2]float64, z *Zone) bool {
			candidates = append(candidates, z)
			return true
		},
	)
	return candidates
}

// SearchBound is the mercator search envelope around p. Mercator
// stretches distances by 1/cos(lat), so the pad is scaled to match.
func SearchBound(p orb.Point, radius float64) orb.Bound {
	center := project.Point(p, project.WGS84.ToMercator)
	scale := 1 / math.Cos(p.Lat()*math.Pi/180)
	return center.Bound().Pad(radius * scale)
}
