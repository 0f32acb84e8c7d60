// Package roi implements the spatial filter: it drops sentinel "no return"
// points and partitions the remainder into cluster-eligible points and
// unprocessed points outside the configured region of interest.
package roi

import (
	"math"

	"github.com/banshee-data/scan360/internal/scan/decode"
)

// Shape selects the region-of-interest test applied after the zero filter.
type Shape int

const (
	Sphere Shape = iota
	Cone
)

// Region holds the tunables needed to test a point for cluster eligibility.
type Region struct {
	Shape           Shape
	Radius          float64
	ConeCenterTheta float64 // radians
	ConeCenterPhi   float64 // radians
	ConeHalfAngle   float64 // radians
}

// Apply drops zero-origin points unconditionally, then splits the remainder
// into eligible (in-region) and unprocessed (out-of-region) points. Eligible
// points are returned unmodified; unprocessed points have ClusterID set to
// decode.ClusterUnprocessed so a downstream consumer can tell them apart from
// noise without re-deriving the region test.
func Apply(points []decode.Point, region Region) (eligible, unprocessed []decode.Point) {
	eligible = make([]decode.Point, 0, len(points))
	unprocessed = make([]decode.Point, 0)

	axisX, axisY, axisZ := coneAxis(region.ConeCenterTheta, region.ConeCenterPhi)

	for _, p := range points {
		if p.X == 0 && p.Y == 0 && p.Z == 0 {
			continue
		}
		if inRegion(p, region, axisX, axisY, axisZ) {
			eligible = append(eligible, p)
		} else {
			p.ClusterID = decode.ClusterUnprocessed
			unprocessed = append(unprocessed, p)
		}
	}
	return eligible, unprocessed
}

func inRegion(p decode.Point, region Region, axisX, axisY, axisZ float64) bool {
	x, y, z := float64(p.X), float64(p.Y), float64(p.Z)
	dist := math.Sqrt(x*x + y*y + z*z)
	if dist > region.Radius {
		return false
	}
	if region.Shape == Sphere {
		return true
	}

	// Cone: angle between the point's unit vector and the cone axis.
	ux, uy, uz := x/dist, y/dist, z/dist
	dot := ux*axisX + uy*axisY + uz*axisZ
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	angle := math.Acos(dot)
	return angle < region.ConeHalfAngle
}

// coneAxis converts the configured (theta, phi) cone center into a unit
// vector using the same spherical convention as the decoder's point math:
// theta is azimuth about Z, phi is elevation from the XY plane.
func coneAxis(theta, phi float64) (x, y, z float64) {
	cosPhi := math.Cos(phi)
	return cosPhi * math.Cos(theta), cosPhi * math.Sin(theta), math.Sin(phi)
}
