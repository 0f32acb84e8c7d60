package broadcast

import (
	"encoding/json"
	"strconv"

	"github.com/banshee-data/scan360/internal/scan/decode"
	"github.com/banshee-data/scan360/internal/scan/track"
)

// pointJSON is one point in the wire schema documented in the external
// interfaces contract: x/y/z plus the azimuth tag and its cluster id.
type pointJSON struct {
	X         float32 `json:"x"`
	Y         float32 `json:"y"`
	Z         float32 `json:"z"`
	Theta     float32 `json:"theta"`
	ClusterID int32   `json:"cluster_id"`
}

type bboxJSON struct {
	Min [3]float32 `json:"min"`
	Max [3]float32 `json:"max"`
}

type clusterJSON struct {
	Centroid [3]float32 `json:"centroid"`
	Velocity [3]float32 `json:"velocity"`
	Speed    float32    `json:"speed"`
	BBox     bboxJSON   `json:"bbox"`
	Moved    bool       `json:"moved"`
	Count    uint32     `json:"count"`
}

type frameJSON struct {
	Points   []pointJSON            `json:"points"`
	Clusters map[string]clusterJSON `json:"clusters"`
	Alerts   []string               `json:"alerts"`
}

// BuildFrame assembles one processed frame's JSON payload: every point
// carrying its final cluster_id (tracked, noise, or unprocessed), the
// tracked clusters' derived statistics keyed by id, and the frame's alerts.
func BuildFrame(tracked []track.Tracked, extra []decode.Point, alerts []string) ([]byte, error) {
	msg := frameJSON{
		Clusters: make(map[string]clusterJSON, len(tracked)),
		Alerts:   alerts,
	}
	if msg.Alerts == nil {
		msg.Alerts = []string{}
	}

	for _, tr := range tracked {
		for _, p := range tr.Points {
			msg.Points = append(msg.Points, pointJSON{
				X: p.X, Y: p.Y, Z: p.Z, Theta: p.Theta, ClusterID: tr.ID,
			})
		}
		msg.Clusters[strconv.FormatInt(int64(tr.ID), 10)] = clusterJSON{
			Centroid: f32Triple(tr.Centroid),
			Velocity: f32Triple(tr.Velocity),
			Speed:    float32(tr.Speed),
			BBox: bboxJSON{
				Min: f32Triple(tr.BBoxMin),
				Max: f32Triple(tr.BBoxMax),
			},
			Moved: tr.Moved,
			Count: uint32(tr.Count),
		}
	}
	for _, p := range extra {
		msg.Points = append(msg.Points, pointJSON{
			X: p.X, Y: p.Y, Z: p.Z, Theta: p.Theta, ClusterID: p.ClusterID,
		})
	}
	if msg.Points == nil {
		msg.Points = []pointJSON{}
	}

	return json.Marshal(msg)
}

func f32Triple(v [3]float64) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}
