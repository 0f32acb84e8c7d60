// Command scansrv is the scan360 pipeline's entrypoint: it loads
// config.json (or defaults), starts the UDP ingest loop and the HTTP/
// WebSocket surface, and runs until signaled to stop.
//
// Per the external interfaces contract there are no CLI flags beyond the
// optional presence of config.json in the working directory; a config
// change is applied by writing a new config.json via POST /config and
// letting a process supervisor restart this binary.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/banshee-data/scan360/internal/fsutil"
	"github.com/banshee-data/scan360/internal/httpapi"
	"github.com/banshee-data/scan360/internal/scan/broadcast"
	"github.com/banshee-data/scan360/internal/scan/ingest"
	"github.com/banshee-data/scan360/internal/scan/pipeline"
	"github.com/banshee-data/scan360/internal/scan/scanconfig"
	"github.com/banshee-data/scan360/internal/scan/scanlog"
	"github.com/banshee-data/scan360/internal/scan/stats"
)

func main() {
	fs := fsutil.OSFileSystem{}
	cfg, err := scanconfig.Load(fs)
	if err != nil {
		// Config parse error is fatal at startup, per the error handling
		// taxonomy; the old configuration has no meaning before a process
		// has even started once.
		log.Fatalf("scansrv: %v", err)
	}

	st := stats.New()
	hub := broadcast.NewHub()
	pl := pipeline.New(cfg, hub, st)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := httpapi.NewServer(httpapi.Config{
		Addr:    cfg.HTTPAddr,
		UDPPort: cfg.UDPPort,
		Hub:     hub,
		FS:      fs,
		Stats:   st,
		Initial: cfg,
		OnConfigPersisted: func(scanconfig.Config) {
			scanlog.Ops("config.json updated, shutting down for restart")
			stop()
		},
	})

	listener := ingest.New(cfg.UDPPort, pl)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := listener.Start(ctx); err != nil {
			scanlog.Ops("udp listener stopped: %v", err)
		}
	}()

	go func() {
		defer wg.Done()
		if err := httpServer.Start(ctx); err != nil {
			scanlog.Ops("http server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	wg.Wait()
	scanlog.Ops("scansrv: graceful shutdown complete")
	os.Exit(0)
}
