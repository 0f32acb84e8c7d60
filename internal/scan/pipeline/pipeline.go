// Package pipeline is the composition root: it owns the Assembler and
// Tracker state exclusively and drives every completed frame through
// filter -> cluster -> track -> broadcast synchronously, per the
// single-threaded cooperative scheduling model. Only the final broadcast
// step is allowed to be non-blocking with respect to a slow subscriber;
// decode, assemble, cluster, and track never suspend.
package pipeline

import (
	"github.com/banshee-data/scan360/internal/scan/broadcast"
	"github.com/banshee-data/scan360/internal/scan/cluster"
	"github.com/banshee-data/scan360/internal/scan/decode"
	"github.com/banshee-data/scan360/internal/scan/frame"
	"github.com/banshee-data/scan360/internal/scan/roi"
	"github.com/banshee-data/scan360/internal/scan/scanconfig"
	"github.com/banshee-data/scan360/internal/scan/scanlog"
	"github.com/banshee-data/scan360/internal/scan/stats"
	"github.com/banshee-data/scan360/internal/scan/track"
)

// Pipeline wires the four core subsystems together. A Pipeline is not safe
// for concurrent use: exactly one goroutine (the datagram read loop) may
// call HandleDatagram.
type Pipeline struct {
	cfg scanconfig.Config

	assembler frame.Assembler
	tracker   *track.State
	hub       *broadcast.Hub
	stats     *stats.Stats
}

// New builds a Pipeline from the given configuration and hub. The hub is
// shared with the HTTP layer's WebSocket acceptor, which registers and
// unregisters subscribers concurrently with HandleDatagram; see
// broadcast.Hub's own concurrency note.
func New(cfg scanconfig.Config, hub *broadcast.Hub, st *stats.Stats) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		tracker: track.NewState(),
		hub:     hub,
		stats:   st,
	}
}

// HandleDatagram runs one received UDP payload through decode -> assemble,
// and on frame completion through filter -> cluster -> track -> broadcast.
// Malformed datagrams are dropped, counted, and never surfaced as an error,
// per the error handling taxonomy's "malformed datagram" policy.
func (p *Pipeline) HandleDatagram(buf []byte) {
	p.stats.AddReceived(len(buf))

	m, ok := decode.Decode(buf)
	if !ok {
		p.stats.AddDropped()
		scanlog.Ops("dropped malformed datagram (%d bytes)", len(buf))
		return
	}

	f, complete := p.assembler.Ingest(m)
	if !complete {
		return
	}
	p.processFrame(f)
}

// processFrame runs one completed frame through the remaining stages and
// broadcasts the result. An empty frame (no points survive filtering) is
// skipped per the "empty frame: skip broadcast, no error" policy.
func (p *Pipeline) processFrame(f frame.Frame) {
	region := roi.Region{
		Shape:           regionShape(p.cfg.RegionShape),
		Radius:          p.cfg.ClusterRadius,
		ConeCenterTheta: p.cfg.ConeCenterTheta,
		ConeCenterPhi:   p.cfg.ConeCenterPhi,
		ConeHalfAngle:   p.cfg.ConeHalfAngle,
	}
	eligible, unprocessed := roi.Apply(f.Points, region)

	if len(eligible)+len(unprocessed) == 0 {
		scanlog.Diag("frame %d: empty after filtering, skipping broadcast", f.FrameNumber)
		return
	}

	rawClusters, labeled := cluster.DBSCAN(eligible, cluster.Params{
		Eps:        p.cfg.DBSCANEps,
		MinSamples: p.cfg.DBSCANMinSamples,
	})

	tracked, alerts := p.tracker.Process(rawClusters, f.FrameNumber, track.Config{
		MaxMatchDist: p.cfg.MaxMatchDist,
		FrameDtSec:   p.cfg.FrameDtSec,
		MaxClusterID: p.cfg.MaxClusterID,
	})
	// labeled carries decode.ClusterNoise for points the clusterer rejected;
	// buildCluster's points are re-attached to tracked clusters via
	// rawClusters, so only the noise subset still needs to ride along
	// separately in the broadcast payload.
	noise := make([]decode.Point, 0, len(labeled))
	for _, pt := range labeled {
		if pt.ClusterID == decode.ClusterNoise {
			noise = append(noise, pt)
		}
	}
	extra := append(noise, unprocessed...)

	payload, err := broadcast.BuildFrame(tracked, extra, alerts)
	if err != nil {
		scanlog.Ops("failed to marshal frame %d: %v", f.FrameNumber, err)
		return
	}

	p.stats.AddFrame(len(f.Points))
	p.hub.Broadcast(payload)
}

func regionShape(s scanconfig.RegionShape) roi.Shape {
	if s == scanconfig.RegionCone {
		return roi.Cone
	}
	return roi.Sphere
}
