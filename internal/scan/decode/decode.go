// Package decode turns one UDP datagram payload into a decoded module: a
// frame number, a last-module flag, and the 3D points it carries.
//
// The wire format is a small self-delimited chain: a 32-byte datagram header
// names the size of the first sub-module, and each sub-module in turn names
// the size of the next one. Decode walks that chain and flattens every
// sub-module's points into a single output, terminating cleanly (never
// erroring) on the first malformed or out-of-bounds read.
package decode

import (
	"encoding/binary"
	"math"
)

const (
	startOfFrameMarker = 0x02020202
	commandID          = 1

	datagramHeaderSize = 32
	moduleHeaderSize   = 32
	layerTimestampSize = 16

	frameNumberOffset = 8
	numLayersOffset   = 20
	numBeamsOffset    = 24
	numEchosOffset    = 28
)

// ClusterUnprocessed marks a point that has not yet been assigned a cluster
// label, either because it has not reached the clusterer yet or because the
// spatial filter excluded it from clustering. Distinct from ClusterNoise (-1)
// so a viewer can distinguish "never considered" from "considered, rejected".
const ClusterUnprocessed int32 = -2

// ClusterNoise labels a point the clusterer examined but could not assign to
// any density cluster.
const ClusterNoise int32 = -1

// Point is one 3D sample in sensor coordinates, meters.
type Point struct {
	X, Y, Z   float32
	Layer     int32
	Beam      int32
	Echo      int32
	Theta     float32
	ClusterID int32
}

// DecodedModule is the immutable output of Decode: a frame number, whether
// this is the frame's closing module, and the points it carried.
type DecodedModule struct {
	FrameNumber uint64
	LastModule  bool
	Points      []Point
}

// Decode parses one datagram payload. It returns ok=false for any malformed
// or unrecognized datagram; callers must treat that as "drop, count, move
// on" per the UDP best-effort contract, never as an error to propagate.
func Decode(buf []byte) (DecodedModule, bool) {
	if len(buf) < datagramHeaderSize {
		return DecodedModule{}, false
	}
	if binary.BigEndian.Uint32(buf[0:4]) != startOfFrameMarker {
		return DecodedModule{}, false
	}
	if binary.LittleEndian.Uint32(buf[4:8]) != commandID {
		return DecodedModule{}, false
	}
	moduleSize := binary.LittleEndian.Uint32(buf[28:32])

	out := DecodedModule{}
	offset := datagramHeaderSize
	haveFrameNumber := false

	for moduleSize != 0 {
		end := offset + int(moduleSize)
		if end > len(buf) || end < offset {
			break
		}
		m := buf[offset:end]

		fn, points, nextSize, ok := decodeModule(m)
		if !ok {
			break
		}
		if !haveFrameNumber {
			out.FrameNumber = fn
			haveFrameNumber = true
		}
		out.Points = append(out.Points, points...)

		offset = end
		moduleSize = nextSize
		if moduleSize == 0 {
			out.LastModule = true
		}
	}

	if !haveFrameNumber {
		return DecodedModule{}, false
	}
	return out, true
}

// decodeModule parses a single sub-module and returns its frame number,
// points, and the size of the next sub-module in the chain (0 ends it).
func decodeModule(m []byte) (frameNumber uint64, points []Point, nextModuleSize uint32, ok bool) {
	if len(m) < moduleHeaderSize {
		return 0, nil, 0, false
	}
	frameNumber = binary.LittleEndian.Uint64(m[frameNumberOffset:])
	numLayers := int(binary.LittleEndian.Uint32(m[numLayersOffset:]))
	numBeams := int(binary.LittleEndian.Uint32(m[numBeamsOffset:]))
	numEchos := int(binary.LittleEndian.Uint32(m[numEchosOffset:]))

	pos := moduleHeaderSize + numLayers*layerTimestampSize
	arraysEnd := pos + numLayers*4*3
	if arraysEnd+4+4+4 > len(m) {
		return 0, nil, 0, false
	}

	phi := readFloat32Array(m, pos, numLayers)
	pos += numLayers * 4
	thetaStart := readFloat32Array(m, pos, numLayers)
	pos += numLayers * 4
	thetaStop := readFloat32Array(m, pos, numLayers)
	pos += numLayers * 4

	scaling := math.Float32frombits(binary.LittleEndian.Uint32(m[pos:]))
	pos += 4
	nextModuleSize = binary.LittleEndian.Uint32(m[pos:])
	pos += 4
	pos++ // reserved
	dataEchos := m[pos]
	pos++
	dataBeams := m[pos]
	pos++
	pos++ // reserved
	dataOffset := pos

	echoSize := 0
	if dataEchos&1 != 0 {
		echoSize += 2
	}
	if dataEchos&2 != 0 {
		echoSize += 2
	}
	beamPropSize := 0
	if dataBeams&1 != 0 {
		beamPropSize = 1
	}
	beamAngleSize := 0
	if dataBeams&2 != 0 {
		beamAngleSize = 2
	}
	beamSize := echoSize*numEchos + beamPropSize + beamAngleSize

	points = make([]Point, 0, numBeams*numLayers*numEchos)
	for b := 0; b < numBeams; b++ {
		for l := 0; l < numLayers; l++ {
			base := dataOffset + (b*numLayers+l)*beamSize
			for ec := 0; ec < numEchos; ec++ {
				idx := base + ec*echoSize
				if idx+echoSize > len(m) {
					continue
				}
				var raw uint16
				if echoSize > 0 {
					raw = binary.LittleEndian.Uint16(m[idx:])
				}
				d := float32(raw) * scaling / 1000.0

				denom := numBeams - 1
				if denom < 1 {
					denom = 1
				}
				theta := thetaStart[l] + float32(b)*(thetaStop[l]-thetaStart[l])/float32(denom)

				cosPhi := float32(math.Cos(float64(phi[l])))
				points = append(points, Point{
					X:         d * cosPhi * float32(math.Cos(float64(theta))),
					Y:         d * cosPhi * float32(math.Sin(float64(theta))),
					Z:         d * float32(math.Sin(float64(phi[l]))),
					Layer:     int32(l),
					Beam:      int32(b),
					Echo:      int32(ec),
					Theta:     theta,
					ClusterID: ClusterUnprocessed,
				})
			}
		}
	}
	return frameNumber, points, nextModuleSize, true
}

func readFloat32Array(buf []byte, offset, n int) []float32 {
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[offset+i*4:]))
	}
	return out
}
