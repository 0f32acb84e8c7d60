// Package frame accumulates decoded modules into complete 360° frames.
//
// The transport may close a frame two ways: an explicit last-module flag, or
// implicitly by starting the next frame number before the last module of the
// previous one arrived. Assembler honors whichever happens first, so a
// dropped closing packet never stalls the pipeline past the next frame's
// first packet.
package frame

import "github.com/banshee-data/scan360/internal/scan/decode"

// Frame is the union of every module sharing one frame number.
type Frame struct {
	FrameNumber uint64
	Points      []decode.Point
}

// Assembler is a stateful accumulator fed one decoded module at a time. The
// zero value is ready to use.
type Assembler struct {
	haveCurrent bool
	current     uint64
	accum       []decode.Point
}

// Ingest folds one decoded module into the accumulator. It returns a
// completed frame and ok=true when the module closes a frame, either because
// it carries the last-module flag or because it starts a new frame number.
func (a *Assembler) Ingest(m decode.DecodedModule) (Frame, bool) {
	if !a.haveCurrent {
		a.haveCurrent = true
		a.current = m.FrameNumber
		a.accum = nil
	}

	if m.FrameNumber != a.current {
		emitted := Frame{FrameNumber: a.current, Points: a.accum}
		a.current = m.FrameNumber
		a.accum = append([]decode.Point{}, m.Points...)
		return emitted, true
	}

	a.accum = append(a.accum, m.Points...)
	if m.LastModule {
		emitted := Frame{FrameNumber: a.current, Points: a.accum}
		a.accum = nil
		a.haveCurrent = false
		return emitted, true
	}
	return Frame{}, false
}
