// Package scanlog provides the three-stream leveled logging convention used
// across the scan pipeline: ops for actionable events, diag for per-frame
// diagnostics, and trace for per-packet detail. Each stream is a *log.Logger
// that may be nil, in which case the corresponding helper is a no-op.
//
// DO NOT add a generic Logf function here. Every callsite picks Ops, Diag,
// or Trace explicitly so log volume stays legible under load.
package scanlog

import (
	"fmt"
	"io"
	"log"
	"os"
)

var (
	opsLogger   = log.New(os.Stderr, "ops   ", log.LstdFlags)
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetWriters configures the three streams. A nil writer disables that stream.
func SetWriters(ops, diag, trace io.Writer) {
	opsLogger = newOrNil(ops, "ops   ")
	diagLogger = newOrNil(diag, "diag  ")
	traceLogger = newOrNil(trace, "trace ")
}

func newOrNil(w io.Writer, prefix string) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags)
}

// Ops logs an actionable, low-frequency event: dropped datagram, subscriber
// eviction, config reload, startup/shutdown.
func Ops(format string, args ...any) {
	if opsLogger == nil {
		return
	}
	opsLogger.Output(2, fmt.Sprintf(format, args...))
}

// Diag logs per-frame diagnostics: point counts, cluster counts, track churn.
func Diag(format string, args ...any) {
	if diagLogger == nil {
		return
	}
	diagLogger.Output(2, fmt.Sprintf(format, args...))
}

// Trace logs per-packet detail. Expect this to be disabled outside local
// debugging; it is the highest-volume stream.
func Trace(format string, args ...any) {
	if traceLogger == nil {
		return
	}
	traceLogger.Output(2, fmt.Sprintf(format, args...))
}
