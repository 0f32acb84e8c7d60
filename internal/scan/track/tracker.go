// Package track assigns stable identities to per-frame clusters and derives
// their kinematic state. It owns two small pieces of state across frames:
// the previous frame's centroids/velocities keyed by id, and a pool of ids
// freed by tracks that dropped out, so identities stay low and dense rather
// than growing unbounded.
//
// State is owned exclusively by the pipeline's single processing task; it is
// never accessed concurrently, so no internal locking is needed.
package track

import (
	"fmt"
	"math"

	"github.com/banshee-data/scan360/internal/scan/cluster"
	"github.com/banshee-data/scan360/internal/scan/decode"
	"gonum.org/v1/gonum/floats"
)

// movedHysteresis and alertRadius are fixed by the tracking contract, not
// configurable tunables: a cluster that shifts more than 10cm between frames
// is "moved"; a cluster within 50cm of the origin raises a proximity alert.
const (
	movedHysteresis = 0.1
	alertRadius     = 0.5
)

// Config holds the tunables the tracker needs from the global configuration.
type Config struct {
	MaxMatchDist float64
	FrameDtSec   float64
	MaxClusterID int32
}

// Track is one tracked identity's kinematic state, persisted across frames.
type Track struct {
	ID            int32
	Centroid      [3]float64
	Velocity      [3]float64
	LastSeenFrame uint64
}

// Tracked is the per-cluster output the broadcaster serializes: the assigned
// id plus every derived statistic a viewer needs.
type Tracked struct {
	ID       int32
	Centroid [3]float64
	Velocity [3]float64
	Speed    float64
	BBoxMin  [3]float64
	BBoxMax  [3]float64
	Moved    bool
	Count    int
	Points   []decode.Point
}

// State is the tracker's persistent map of id -> Track, its id reuse pool,
// and the next id to hand out once the reuse pool and the low end of the id
// space are both exhausted.
type State struct {
	tracks      map[int32]Track
	nextID      int32
	reusableIDs map[int32]struct{}
}

// NewState returns an empty tracker state.
func NewState() *State {
	return &State{
		tracks:      make(map[int32]Track),
		reusableIDs: make(map[int32]struct{}),
	}
}

// Process matches the current frame's raw clusters against the previous
// frame's tracks, allocates ids for unmatched clusters, and returns the
// tracked output plus any proximity alerts. frameNumber is the frame these
// clusters came from, recorded on each surviving track as LastSeenFrame.
func (s *State) Process(clusters []cluster.RawCluster, frameNumber uint64, cfg Config) ([]Tracked, []string) {
	idsBefore := make(map[int32]struct{}, len(s.tracks))
	for id := range s.tracks {
		idsBefore[id] = struct{}{}
	}

	claimed := make(map[int32]bool, len(clusters))
	assignedThisFrame := make(map[int32]bool, len(clusters))
	newTracks := make(map[int32]Track, len(clusters))
	results := make([]Tracked, len(clusters))
	var alerts []string

	for i, rc := range clusters {
		id, prevCentroid, isNew := s.matchOrAllocate(rc.Centroid, cfg, claimed, assignedThisFrame)

		var velocity [3]float64
		moved := isNew
		if !isNew {
			velocity = scaledDelta(prevCentroid, rc.Centroid, cfg.FrameDtSec)
			moved = euclidean(prevCentroid, rc.Centroid) > movedHysteresis
		}

		newTracks[id] = Track{ID: id, Centroid: rc.Centroid, Velocity: velocity, LastSeenFrame: frameNumber}

		bboxMin, bboxMax := boundingBox(rc.Points)
		results[i] = Tracked{
			ID:       id,
			Centroid: rc.Centroid,
			Velocity: velocity,
			Speed:    math.Sqrt(velocity[0]*velocity[0] + velocity[1]*velocity[1] + velocity[2]*velocity[2]),
			BBoxMin:  bboxMin,
			BBoxMax:  bboxMax,
			Moved:    moved,
			Count:    len(rc.Points),
			Points:   rc.Points,
		}

		if dist := math.Sqrt(rc.Centroid[0]*rc.Centroid[0] + rc.Centroid[1]*rc.Centroid[1] + rc.Centroid[2]*rc.Centroid[2]); dist < alertRadius {
			alerts = append(alerts, fmt.Sprintf(
				"Cluster %d is %.2fm from origin, velocity (%.2f, %.2f, %.2f) m/s",
				id, dist, velocity[0], velocity[1], velocity[2]))
		}
	}

	idsNow := make(map[int32]struct{}, len(newTracks))
	for id := range newTracks {
		idsNow[id] = struct{}{}
	}
	reusable := make(map[int32]struct{})
	for id := range idsBefore {
		if _, stillLive := idsNow[id]; !stillLive {
			reusable[id] = struct{}{}
		}
	}

	s.tracks = newTracks
	s.reusableIDs = reusable
	return results, alerts
}

// matchOrAllocate finds the nearest unclaimed previous track within
// MaxMatchDist (first-come wins: clusters are processed in order, and each
// previous id can be claimed by at most one current cluster), or allocates a
// fresh id per the reuse-pool -> low-id-scan -> next-id fallback order.
func (s *State) matchOrAllocate(centroid [3]float64, cfg Config, claimed map[int32]bool, assignedThisFrame map[int32]bool) (id int32, prevCentroid [3]float64, isNew bool) {
	bestID := int32(-1)
	bestDist := math.MaxFloat64
	for candidateID, tr := range s.tracks {
		if claimed[candidateID] {
			continue
		}
		d := euclidean(tr.Centroid, centroid)
		if d <= cfg.MaxMatchDist && d < bestDist {
			bestDist = d
			bestID = candidateID
		}
	}
	if bestID >= 0 {
		claimed[bestID] = true
		return bestID, s.tracks[bestID].Centroid, false
	}

	return s.allocateID(cfg.MaxClusterID, assignedThisFrame), [3]float64{}, true
}

func (s *State) allocateID(maxClusterID int32, assignedThisFrame map[int32]bool) int32 {
	if len(s.reusableIDs) > 0 {
		var smallest int32 = math.MaxInt32
		for id := range s.reusableIDs {
			if id < smallest {
				smallest = id
			}
		}
		delete(s.reusableIDs, smallest)
		assignedThisFrame[smallest] = true
		return smallest
	}

	for id := int32(0); id < maxClusterID; id++ {
		if _, inUse := s.tracks[id]; inUse {
			continue
		}
		if assignedThisFrame[id] {
			continue
		}
		assignedThisFrame[id] = true
		return id
	}

	id := s.nextID
	s.nextID = (s.nextID + 1) % maxClusterID
	assignedThisFrame[id] = true
	return id
}

func euclidean(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func scaledDelta(prev, cur [3]float64, dt float64) [3]float64 {
	return [3]float64{(cur[0] - prev[0]) / dt, (cur[1] - prev[1]) / dt, (cur[2] - prev[2]) / dt}
}

func boundingBox(points []decode.Point) (min, max [3]float64) {
	if len(points) == 0 {
		return min, max
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	zs := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i], zs[i] = float64(p.X), float64(p.Y), float64(p.Z)
	}
	min = [3]float64{floats.Min(xs), floats.Min(ys), floats.Min(zs)}
	max = [3]float64{floats.Max(xs), floats.Max(ys), floats.Max(zs)}
	return min, max
}
