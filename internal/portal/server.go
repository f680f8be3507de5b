package portal

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/wifisetup/internal/logging"
	"github.com/muurk/wifisetup/internal/provision"
	"github.com/muurk/wifisetup/internal/wifi"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Events buffered per /events subscriber
	eventBuffer = 16
)

// Provisioner is the orchestrator surface the portal drives.
type Provisioner interface {
	Networks() []wifi.Network
	Rescan(ctx context.Context) ([]wifi.Network, error)
	Connect(ctx context.Context, ssid, password string) (string, error)
	Subscribe(buf int) (<-chan provision.Event, func())
}

// Config holds the portal configuration.
type Config struct {
	Addr        string // listen address, e.g. 10.42.0.1:80
	HotspotSSID string // shown on the page
}

// Server is the captive portal.
type Server struct {
	cfg      Config
	prov     Provisioner
	http     *http.Server
	upgrader websocket.Upgrader

	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a portal Server for prov.
func New(cfg Config, prov Provisioner) *Server {
	s := &Server{
		cfg:     cfg,
		prov:    prov,
		closing: make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// captive clients arrive under whatever host the OS probe used
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// hijacked /events connections are not closed by Shutdown
	s.http.RegisterOnShutdown(s.closeStreams)
	return s
}

// Handler returns the portal's routes wrapped in access logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /scan", s.handleScan)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("POST /connect", s.handleConnect)
	mux.HandleFunc("GET /", s.handleIndex)
	mux.HandleFunc("/", http.NotFound)
	return logRequests(mux)
}

// ListenAndServe serves until Shutdown.
func (s *Server) ListenAndServe() error {
	logging.Info("Setup portal listening", zap.String("addr", s.cfg.Addr))
	return s.http.ListenAndServe()
}

// Shutdown stops accepting requests, ends event streams and waits for
// in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) closeStreams() {
	s.closeOnce.Do(func() { close(s.closing) })
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes through to the underlying writer for websocket upgrades.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer %T does not support hijacking", r.ResponseWriter)
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
