// Package httpapi implements the external HTTP/WebSocket surface: the
// /ws broadcast upgrade, /config get-and-persist, a /health liveness
// endpoint, a status page, and static file serving for everything else.
// These are all "external collaborators" per the core pipeline's contract
// and own no pipeline state of their own; they talk to it only through the
// broadcast.Hub, the shared stats counters, and the config file on disk.
package httpapi

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/banshee-data/scan360/internal/fsutil"
	"github.com/banshee-data/scan360/internal/httputil"
	"github.com/banshee-data/scan360/internal/scan/broadcast"
	"github.com/banshee-data/scan360/internal/scan/scanconfig"
	"github.com/banshee-data/scan360/internal/scan/scanlog"
	"github.com/banshee-data/scan360/internal/scan/stats"
	"github.com/banshee-data/scan360/internal/version"
	"github.com/gorilla/websocket"
)

//go:embed status.html
var statusHTML embed.FS

// Server is the HTTP/WebSocket acceptor. It owns no pipeline state: it reads
// the subscriber set through hub and the current config through a
// mutex-protected field updated only at startup and on a successful
// POST /config.
type Server struct {
	addr      string
	staticDir string
	udpPort   int

	hub    *broadcast.Hub
	fs     fsutil.FileSystem
	stats  *stats.Stats
	server *http.Server
	start  time.Time

	upgrader websocket.Upgrader

	cfgMu sync.Mutex
	cfg   scanconfig.Config

	// onConfigPersisted is invoked after POST /config successfully writes
	// config.json. The pipeline's design mandates a full process restart on
	// config change rather than in-process reload, so this is normally
	// wired to trigger graceful shutdown; cmd/scansrv's supervisor brings
	// the process back up with the new file in place.
	onConfigPersisted func(scanconfig.Config)
}

// Config bundles Server's construction parameters.
type Config struct {
	Addr              string
	StaticDir         string
	UDPPort           int
	Hub               *broadcast.Hub
	FS                fsutil.FileSystem
	Stats             *stats.Stats
	Initial           scanconfig.Config
	OnConfigPersisted func(scanconfig.Config)
}

// NewServer builds a Server and registers its routes.
func NewServer(c Config) *Server {
	s := &Server{
		addr:      c.Addr,
		staticDir: c.StaticDir,
		udpPort:   c.UDPPort,
		hub:       c.Hub,
		fs:        c.FS,
		stats:     c.Stats,
		start:     time.Now(),
		cfg:       c.Initial,
		onConfigPersisted: c.OnConfigPersisted,
		upgrader: websocket.Upgrader{
			// No-goals exclude authenticated access; this surface is meant
			// for local/trusted-network viewers, so any origin is accepted.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleStatic)

	s.server = &http.Server{Addr: c.Addr, Handler: mux}
	return s
}

// Start runs the HTTP server until ctx is canceled, then shuts it down
// gracefully within a short deadline, falling back to a hard close.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		scanlog.Ops("graceful shutdown failed, forcing close: %v", err)
		return s.server.Close()
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		scanlog.Ops("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := s.hub.Register()
	defer s.hub.Unregister(sub.ID)

	for payload := range sub.Send {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.cfgMu.Lock()
		cfg := s.cfg
		s.cfgMu.Unlock()
		httputil.WriteJSONOK(w, cfg)

	case http.MethodPost:
		var next scanconfig.Config
		if err := decodeJSONBody(w, r, &next); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if err := scanconfig.Save(s.fs, next); err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		s.cfgMu.Lock()
		s.cfg = next
		s.cfgMu.Unlock()

		httputil.WriteJSONOK(w, map[string]string{"status": "persisted, restarting"})
		if s.onConfigPersisted != nil {
			go s.onConfigPersisted(next)
		}

	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]any{
		"status":  "ok",
		"version": version.Version,
		"uptime":  time.Since(s.start).String(),
		"stats":   s.stats.Snapshot(),
	})
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		s.handleStatus(w, r)
		return
	}
	if s.staticDir == "" {
		httputil.NotFound(w, "static file serving is not configured")
		return
	}
	http.FileServer(http.Dir(s.staticDir)).ServeHTTP(w, r)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	tmpl, err := template.ParseFS(statusHTML, "status.html")
	if err != nil {
		httputil.InternalServerError(w, "failed to load status page")
		return
	}

	data := struct {
		Uptime      string
		UDPPort     int
		HTTPAddress string
		Subscribers int
		Stats       stats.Snapshot
	}{
		Uptime:      time.Since(s.start).String(),
		UDPPort:     s.udpPort,
		HTTPAddress: s.addr,
		Subscribers: s.hub.Count(),
		Stats:       s.stats.Snapshot(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		scanlog.Ops("failed to render status page: %v", err)
	}
}
