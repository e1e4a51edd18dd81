// Package surface builds the interpolated concentration surface: a k-nearest
// index over the point samples in the metric frame and an inverse-distance
// weighted grid estimator driven by it.
package surface

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// site is one indexed sample. It carries its measured value so neighbor
// queries return values directly instead of an index to chase.
type site struct {
	x, y  float64
	value float64
}

// Compare implements kdtree.Comparable.
func (s site) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(site)
	switch d {
	case 0:
		return s.x - q.x
	case 1:
		return s.y - q.y
	default:
		panic("surface: illegal dimension")
	}
}

// Dims implements kdtree.Comparable.
func (s site) Dims() int { return 2 }

// Distance implements kdtree.Comparable, returning squared Euclidean
// distance.
func (s site) Distance(c kdtree.Comparable) float64 {
	q := c.(site)
	dx := s.x - q.x
	dy := s.y - q.y
	return dx*dx + dy*dy
}

// sites satisfies kdtree.Interface.
type sites []site

func (p sites) Index(i int) kdtree.Comparable         { return p[i] }
func (p sites) Len() int                              { return len(p) }
func (p sites) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p sites) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(sitePlane{sites: p, Dim: d}, kdtree.MedianOfRandoms(sitePlane{sites: p, Dim: d}, 100))
}

// sitePlane implements sort.Interface and kdtree.SortSlicer along one axis.
type sitePlane struct {
	sites
	kdtree.Dim
}

func (p sitePlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.sites[i].x < p.sites[j].x
	case 1:
		return p.sites[i].y < p.sites[j].y
	default:
		panic("surface: illegal dimension")
	}
}

func (p sitePlane) Slice(start, end int) kdtree.SortSlicer {
	return sitePlane{sites: p.sites[start:end], Dim: p.Dim}
}

func (p sitePlane) Swap(i, j int) {
	p.sites[i], p.sites[j] = p.sites[j], p.sites[i]
}

// Neighbor is one result from a k-nearest query.
type Neighbor struct {
	Dist  float64 // Euclidean distance in metric units
	Value float64 // measured value at the sample
}

// Index supports k-nearest queries over the point samples. Build once per
// dataset; queries are read-only and safe to issue concurrently.
type Index struct {
	tree *kdtree.Tree
	n    int
}

// NewIndex builds the spatial index. xs, ys and values must be equal-length
// and non-empty.
func NewIndex(xs, ys, values []float64) *Index {
	data := make(sites, len(xs))
	for i := range xs {
		data[i] = site{x: xs[i], y: ys[i], value: values[i]}
	}
	return &Index{tree: kdtree.New(data, true), n: len(data)}
}

// Len returns the number of indexed samples.
func (ix *Index) Len() int { return ix.n }

// Nearest appends the m nearest samples to the point (x, y) into dst and
// returns it. dst is reused across calls to keep the per-cell query
// allocation-free.
func (ix *Index) Nearest(x, y float64, m int, dst []Neighbor) []Neighbor {
	keeper := kdtree.NewNKeeper(m)
	ix.tree.NearestSet(keeper, site{x: x, y: y})

	dst = dst[:0]
	for _, item := range keeper.Heap {
		// The keeper seeds its heap with an infinite-distance sentinel.
		if item.Comparable == nil {
			continue
		}
		s := item.Comparable.(site)
		dst = append(dst, Neighbor{Dist: sqrtNonNeg(item.Dist), Value: s.value})
	}
	return dst
}

func sqrtNonNeg(d float64) float64 {
	if d <= 0 {
		return 0
	}
	return math.Sqrt(d)
}
