package cluster

import (
	"testing"

	"github.com/banshee-data/scan360/internal/scan/decode"
)

func TestDBSCAN_SeparatesTwoDenseGroups(t *testing.T) {
	points := []decode.Point{
		{X: 0, Y: 0, Z: 0},
		{X: 0.1, Y: 0, Z: 0},
		{X: 0, Y: 0.1, Z: 0},
		{X: 10, Y: 10, Z: 10},
		{X: 10.1, Y: 10, Z: 10},
		{X: 10, Y: 10.1, Z: 10},
	}
	clusters, labeled := DBSCAN(points, Params{Eps: 0.5, MinSamples: 2})

	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	labelsSeen := map[int32]bool{}
	for _, p := range labeled {
		if p.ClusterID == decode.ClusterNoise {
			t.Errorf("expected no noise points in two dense groups, got one")
		}
		labelsSeen[p.ClusterID] = true
	}
	if len(labelsSeen) != 2 {
		t.Fatalf("expected 2 distinct cluster ids across points, got %d", len(labelsSeen))
	}
}

func TestDBSCAN_IsolatedPointIsNoise(t *testing.T) {
	points := []decode.Point{
		{X: 0, Y: 0, Z: 0},
		{X: 0.1, Y: 0, Z: 0},
		{X: 100, Y: 100, Z: 100}, // far from everything
	}
	clusters, labeled := DBSCAN(points, Params{Eps: 0.5, MinSamples: 2})
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if labeled[2].ClusterID != decode.ClusterNoise {
		t.Errorf("expected isolated point to be labeled noise, got %d", labeled[2].ClusterID)
	}
}

func TestDBSCAN_DeterministicPartitionAcrossRuns(t *testing.T) {
	points := []decode.Point{
		{X: 0, Y: 0, Z: 0},
		{X: 0.1, Y: 0, Z: 0},
		{X: 0, Y: 0.1, Z: 0},
		{X: 5, Y: 5, Z: 5},
	}
	_, a := DBSCAN(points, Params{Eps: 0.5, MinSamples: 2})
	_, b := DBSCAN(points, Params{Eps: 0.5, MinSamples: 2})

	samePartition := func(l []decode.Point) [][2]int {
		var pairs [][2]int
		for i := range l {
			for j := i + 1; j < len(l); j++ {
				together := 0
				if l[i].ClusterID == l[j].ClusterID {
					together = 1
				}
				pairs = append(pairs, [2]int{i*100 + j, together})
			}
		}
		return pairs
	}
	pa, pb := samePartition(a), samePartition(b)
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("partition differs across runs at pair %v: %v vs %v", pa[i], pa[i], pb[i])
		}
	}
}
