// Package stats tracks packet and frame counters for the health endpoint and
// status page, mirroring the sensor ingestion counters a supervisor watches
// to tell a healthy pipeline from a stalled one.
package stats

import "sync"

// Stats is a mutex-protected set of monotonically increasing counters. It is
// safe for concurrent use by the ingest goroutine and the HTTP handlers.
type Stats struct {
	mu              sync.Mutex
	packetsReceived uint64
	packetsDropped  uint64
	bytesReceived   uint64
	framesEmitted   uint64
	pointsDecoded   uint64
}

// New returns a zeroed Stats.
func New() *Stats {
	return &Stats{}
}

// AddReceived records one accepted datagram of n bytes.
func (s *Stats) AddReceived(n int) {
	s.mu.Lock()
	s.packetsReceived++
	s.bytesReceived += uint64(n)
	s.mu.Unlock()
}

// AddDropped records one malformed or unrecognized datagram.
func (s *Stats) AddDropped() {
	s.mu.Lock()
	s.packetsDropped++
	s.mu.Unlock()
}

// AddFrame records one emitted frame with its point count.
func (s *Stats) AddFrame(points int) {
	s.mu.Lock()
	s.framesEmitted++
	s.pointsDecoded += uint64(points)
	s.mu.Unlock()
}

// Snapshot is a point-in-time, unlocked copy of the counters for rendering.
type Snapshot struct {
	PacketsReceived uint64
	PacketsDropped  uint64
	BytesReceived   uint64
	FramesEmitted   uint64
	PointsDecoded   uint64
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		PacketsReceived: s.packetsReceived,
		PacketsDropped:  s.packetsDropped,
		BytesReceived:   s.bytesReceived,
		FramesEmitted:   s.framesEmitted,
		PointsDecoded:   s.pointsDecoded,
	}
}
