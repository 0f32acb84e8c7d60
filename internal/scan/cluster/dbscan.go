// Package cluster implements density-based spatial clustering (DBSCAN) over
// region-filtered points, backed by a 3D grid spatial index so a frame of N
// points completes in expected O(N log N) rather than the O(N²) of a naive
// neighbor scan.
package cluster

import (
	"math"

	"github.com/banshee-data/scan360/internal/scan/decode"
	"gonum.org/v1/gonum/stat"
)

// RawCluster is one density cluster's points plus its coordinate-wise mean
// centroid. Transient: it lives only across one frame's processing.
type RawCluster struct {
	Points   []decode.Point
	Centroid [3]float64
}

// Params tunes the clustering pass.
type Params struct {
	Eps        float64
	MinSamples int
}

const (
	unvisited = 0
	noise     = -1
)

// spatialIndex buckets points into eps-sized cells so regionQuery only has
// to examine the 27 neighboring cells instead of every point in the frame.
type spatialIndex struct {
	cellSize float64
	grid     map[int64][]int
}

func newSpatialIndex(points []decode.Point, cellSize float64) *spatialIndex {
	idx := &spatialIndex{cellSize: cellSize, grid: make(map[int64][]int)}
	for i, p := range points {
		id := idx.cellID(float64(p.X), float64(p.Y), float64(p.Z))
		idx.grid[id] = append(idx.grid[id], i)
	}
	return idx
}

func (idx *spatialIndex) cellID(x, y, z float64) int64 {
	cx := int64(math.Floor(x / idx.cellSize))
	cy := int64(math.Floor(y / idx.cellSize))
	cz := int64(math.Floor(z / idx.cellSize))
	return szudzik(szudzik(zigzag(cx), zigzag(cy)), zigzag(cz))
}

// zigzag maps signed integers onto non-negative ones so szudzik's pairing
// function (defined over naturals) can combine negative cell coordinates.
func zigzag(n int64) int64 {
	if n >= 0 {
		return n * 2
	}
	return -n*2 - 1
}

// szudzik is Szudzik's elegant pairing function, combining two non-negative
// integers into one unique non-negative integer.
func szudzik(a, b int64) int64 {
	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

func (idx *spatialIndex) regionQuery(points []decode.Point, i int, eps float64) []int {
	p := points[i]
	cx := int64(math.Floor(float64(p.X) / idx.cellSize))
	cy := int64(math.Floor(float64(p.Y) / idx.cellSize))
	cz := int64(math.Floor(float64(p.Z) / idx.cellSize))

	eps2 := eps * eps
	var neighbors []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				id := szudzik(szudzik(zigzag(cx+dx), zigzag(cy+dy)), zigzag(cz+dz))
				for _, j := range idx.grid[id] {
					q := points[j]
					ddx := float64(q.X - p.X)
					ddy := float64(q.Y - p.Y)
					ddz := float64(q.Z - p.Z)
					if ddx*ddx+ddy*ddy+ddz*ddz <= eps2 {
						neighbors = append(neighbors, j)
					}
				}
			}
		}
	}
	return neighbors
}

// DBSCAN partitions points into density clusters plus noise. It returns the
// non-noise clusters and the full labeled point set (noise points carry
// decode.ClusterNoise; clustered points carry their cluster's index into the
// returned slice, 0-based; the caller, typically the tracker, remaps these
// into stable identities).
func DBSCAN(points []decode.Point, params Params) (clusters []RawCluster, labeled []decode.Point) {
	labels := make([]int, len(points))
	idx := newSpatialIndex(points, params.Eps)

	nextLabel := 1
	for i := range points {
		if labels[i] != unvisited {
			continue
		}
		neighbors := idx.regionQuery(points, i, params.Eps)
		if len(neighbors) < params.MinSamples {
			labels[i] = noise
			continue
		}
		labels[i] = nextLabel
		expandCluster(points, idx, labels, neighbors, nextLabel, params)
		nextLabel++
	}

	labeled = make([]decode.Point, len(points))
	copy(labeled, points)

	buckets := make(map[int][]int, nextLabel-1)
	for i, l := range labels {
		if l == noise {
			labeled[i].ClusterID = decode.ClusterNoise
			continue
		}
		buckets[l] = append(buckets[l], i)
	}

	clusters = make([]RawCluster, 0, len(buckets))
	clusterIndex := make(map[int]int, len(buckets))
	for label, memberIdx := range buckets {
		rc := buildCluster(points, memberIdx)
		clusterIndex[label] = len(clusters)
		clusters = append(clusters, rc)
	}
	for i, l := range labels {
		if l == noise {
			continue
		}
		labeled[i].ClusterID = int32(clusterIndex[l])
	}
	return clusters, labeled
}

func expandCluster(points []decode.Point, idx *spatialIndex, labels []int, seeds []int, label int, params Params) {
	queue := append([]int{}, seeds...)
	for qi := 0; qi < len(queue); qi++ {
		j := queue[qi]
		if labels[j] == noise {
			labels[j] = label
			continue
		}
		if labels[j] != unvisited {
			continue
		}
		labels[j] = label
		neighbors := idx.regionQuery(points, j, params.Eps)
		if len(neighbors) >= params.MinSamples {
			queue = append(queue, neighbors...)
		}
	}
}

func buildCluster(points []decode.Point, memberIdx []int) RawCluster {
	xs := make([]float64, len(memberIdx))
	ys := make([]float64, len(memberIdx))
	zs := make([]float64, len(memberIdx))
	pts := make([]decode.Point, len(memberIdx))
	for k, i := range memberIdx {
		p := points[i]
		xs[k], ys[k], zs[k] = float64(p.X), float64(p.Y), float64(p.Z)
		pts[k] = p
	}
	return RawCluster{
		Points: pts,
		Centroid: [3]float64{
			stat.Mean(xs, nil),
			stat.Mean(ys, nil),
			stat.Mean(zs, nil),
		},
	}
}
