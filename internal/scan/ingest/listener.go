// Package ingest runs the UDP datagram read loop: the sole suspension point
// upstream of frame processing. Every accepted datagram is handed to a
// Handler synchronously, in arrival order, before the next read.
package ingest

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/banshee-data/scan360/internal/scan/scanlog"
)

// maxDatagramSize covers the largest payload this transport is expected to
// carry; datagrams are read into one reusable buffer, and each one is copied
// into its own slice before it is handed to the Handler.
const maxDatagramSize = 65536

// readDeadline bounds each blocking read so the loop can observe ctx
// cancellation promptly instead of blocking forever on an idle socket.
const readDeadline = 100 * time.Millisecond

// Handler processes one raw datagram payload. Implementations must
// never block: HandleDatagram runs synchronously on the read loop's
// goroutine, per the single-threaded cooperative scheduling model.
type Handler interface {
	HandleDatagram(buf []byte)
}

// Listener owns the UDP socket on the ingress port.
type Listener struct {
	port    int
	handler Handler
}

// New returns a Listener bound to the given handler; Start opens the socket.
func New(port int, handler Handler) *Listener {
	return &Listener{port: port, handler: handler}
}

// Start resolves and listens on the configured UDP port, then reads
// datagrams until ctx is canceled. It returns once the socket is closed.
func (l *Listener) Start(ctx context.Context) error {
	addr := &net.UDPAddr{Port: l.port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen udp :%d: %w", l.port, err)
	}
	defer conn.Close()

	scanlog.Ops("listening for scan datagrams on udp :%d", l.port)

	buf := make([]byte, maxDatagramSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}

		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			scanlog.Ops("udp read error: %v", err)
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		l.handler.HandleDatagram(payload)
	}
}
