// Package dashboard serves a live view over the snapwyr event stream: the
// last N entries are retained in a ring buffer, exposed over a small JSON
// API and pushed to connected viewers over a websocket channel.
package dashboard

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	snapwyr "github.com/snapwyr/snapwyr-go"
	"github.com/snapwyr/snapwyr-go/pkg/event"
	"github.com/snapwyr/snapwyr-go/pkg/ringbuf"
)

//go:embed dashboard.html
var dashboardHTML []byte

// Config controls the dashboard server.
type Config struct {
	// Port to listen on (default 3333). A negative port binds an
	// ephemeral one; read it back with Addr.
	Port int
	// Host to bind to (default "localhost").
	Host string
	// MaxRequests bounds in-memory retention (default 1000).
	MaxRequests int
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 3333
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.MaxRequests <= 0 {
		c.MaxRequests = ringbuf.DefaultCapacity
	}
	return c
}

// Server owns the retention buffer and the set of connected viewers. Use
// New, then Serve/Stop; both are safe to call from any goroutine.
type Server struct {
	mu          sync.Mutex
	running     bool
	store       *ringbuf.Buffer[event.Entry]
	viewers     map[string]*viewer
	httpServer  *http.Server
	listener    net.Listener
	unsubscribe func()

	emitter  *snapwyr.Service
	log      *zap.Logger
	upgrader websocket.Upgrader
	dropWarn *rate.Limiter
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the operational logger (default: no-op).
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) { s.log = log }
}

// New returns a dashboard server bridged to the given emitter. Pass
// snapwyr.Default() to observe the shared process-wide stream.
func New(emitter *snapwyr.Service, opts ...Option) *Server {
	s := &Server{
		viewers: make(map[string]*viewer),
		emitter: emitter,
		log:     zap.NewNop(),
		upgrader: websocket.Upgrader{
			// Viewers may be served from another origin; the API is
			// deliberately open, same as the CORS policy below.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		dropWarn: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve transitions the server from stopped to running. Calling it while
// already running is a warning no-op, never a duplicate bind. The listener
// runs in a background goroutine; Serve returns once the port is bound.
func (s *Server) Serve(cfg Config) error {
	cfg = cfg.withDefaults()

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn("dashboard server is already running")
		return nil
	}

	port := cfg.Port
	if port < 0 {
		port = 0
	}
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, port))
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("dashboard: listen: %w", err)
	}

	s.store = ringbuf.New[event.Entry](cfg.MaxRequests)
	s.listener = ln
	srv := &http.Server{Handler: s.routes()}
	s.httpServer = srv
	s.running = true
	s.unsubscribe = s.emitter.Subscribe(s.bridge)
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("dashboard server stopped", zap.Error(err))
		}
	}()

	s.log.Info("dashboard running", zap.String("addr", "http://"+ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" when stopped.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop disconnects all viewers, releases the listener and detaches from
// the emitter. Stopping a stopped server is a no-op.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	viewers := s.viewers
	s.viewers = make(map[string]*viewer)
	srv := s.httpServer
	s.httpServer = nil
	s.listener = nil
	s.mu.Unlock()

	for _, v := range viewers {
		v.close()
	}
	if srv != nil {
		_ = srv.Close()
	}
	s.log.Info("dashboard stopped")
}

// Push appends an entry to the buffer and broadcasts it to every connected
// viewer. Entries arriving while the server is stopped are dropped.
func (s *Server) Push(entry event.Entry) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.store.Push(entry)
	viewers := s.viewersLocked()
	s.mu.Unlock()

	s.deliver(viewers, pushMessage{Type: "request", Data: &entry})
}

// Clear empties the buffer and tells every viewer, regardless of which
// side issued the command.
func (s *Server) Clear() {
	s.mu.Lock()
	if s.store != nil {
		s.store.Clear()
	}
	viewers := s.viewersLocked()
	s.mu.Unlock()

	s.deliver(viewers, pushMessage{Type: "clear"})
}

func (s *Server) snapshot() []event.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return []event.Entry{}
	}
	return s.store.Snapshot()
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/", s.handleHTTP)
	return mux
}

func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch {
	case r.URL.Path == "/" || r.URL.Path == "/index.html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(dashboardHTML)

	case r.URL.Path == "/api/requests":
		writeJSON(w, s.snapshot())

	case r.URL.Path == "/api/clear" && r.Method == http.MethodPost:
		s.Clear()
		writeJSON(w, map[string]bool{"success": true})

	case r.URL.Path == "/api/stats":
		writeJSON(w, calculateStats(s.snapshot()))

	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Not Found"))
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// client went away mid-write; nothing to do
		return
	}
}
