package pipeline

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"github.com/banshee-data/scan360/internal/scan/broadcast"
	"github.com/banshee-data/scan360/internal/scan/scanconfig"
	"github.com/banshee-data/scan360/internal/scan/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildModule and buildDatagram mirror the decoder's own test helpers; kept
// local to avoid an inter-package test dependency for a handful of bytes.
// buildModule constructs a single self-closing module (next_module_size=0,
// so LastModule is always true) carrying one echo sample per beam.
func buildModule(t *testing.T, frameNumber uint64, raws []uint16) []byte {
	t.Helper()
	const numLayers, numEchos = 1, 1
	header := make([]byte, 32)
	binary.LittleEndian.PutUint64(header[8:], frameNumber)
	binary.LittleEndian.PutUint32(header[20:], numLayers)
	binary.LittleEndian.PutUint32(header[24:], uint32(len(raws)))
	binary.LittleEndian.PutUint32(header[28:], numEchos)

	buf := append([]byte{}, header...)
	buf = append(buf, make([]byte, numLayers*16)...)

	putF32 := func(v float32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		buf = append(buf, b[:]...)
	}
	putF32(0) // phi
	putF32(0) // theta_start
	putF32(float32(len(raws)) * 0.01) // theta_stop: small spread so points separate a bit

	putF32(1.0) // scaling

	var nb [4]byte // next_module_size = 0: this is the chain's only (and last) module
	buf = append(buf, nb[:]...)

	buf = append(buf, 0, 1, 0, 0) // reserved, data_echos=1 (2-byte echo), data_beams=0, reserved

	for _, raw := range raws {
		var rb [2]byte
		binary.LittleEndian.PutUint16(rb[:], raw)
		buf = append(buf, rb[:]...)
	}
	return buf
}

func buildDatagram(t *testing.T, module []byte) []byte {
	t.Helper()
	header := make([]byte, 32)
	binary.BigEndian.PutUint32(header[0:4], 0x02020202)
	binary.LittleEndian.PutUint32(header[4:8], 1)
	binary.LittleEndian.PutUint32(header[28:32], uint32(len(module)))
	return append(header, module...)
}

func TestHandleDatagram_S1_EmitsOnePointFrame(t *testing.T) {
	cfg := scanconfig.Default()
	cfg.DBSCANMinSamples = 1
	hub := broadcast.NewHub()
	sub := hub.Register()
	p := New(cfg, hub, stats.New())

	datagram := buildDatagram(t, buildModule(t, 42, []uint16{1000}))
	p.HandleDatagram(datagram)

	select {
	case payload := <-sub.Send:
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(payload, &decoded))
		points, _ := decoded["points"].([]any)
		assert.Len(t, points, 1)
	default:
		t.Fatal("expected a broadcast frame, got none")
	}
}

func TestHandleDatagram_S2_MalformedDatagramDropped(t *testing.T) {
	cfg := scanconfig.Default()
	hub := broadcast.NewHub()
	hub.Register()
	st := stats.New()
	p := New(cfg, hub, st)

	bad := make([]byte, 32)
	binary.BigEndian.PutUint32(bad[0:4], 0x01020202)
	p.HandleDatagram(bad)

	snap := st.Snapshot()
	assert.Equal(t, uint64(1), snap.PacketsDropped)
	assert.Equal(t, uint64(0), snap.FramesEmitted)
}

func TestHandleDatagram_S6_OriginPointNeverBroadcast(t *testing.T) {
	cfg := scanconfig.Default()
	cfg.DBSCANMinSamples = 1
	hub := broadcast.NewHub()
	sub := hub.Register()
	p := New(cfg, hub, stats.New())

	// raw=0 decodes to distance 0, landing the point at the origin.
	datagram := buildDatagram(t, buildModule(t, 1, []uint16{0}))
	p.HandleDatagram(datagram)

	select {
	case <-sub.Send:
		t.Fatal("a frame containing only the origin point must not be broadcast (empty after filtering)")
	default:
	}
}
