package web

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shroudlabs/shroud/internal/audit"
	"github.com/shroudlabs/shroud/internal/cloak"
	"github.com/shroudlabs/shroud/internal/config"
	"github.com/shroudlabs/shroud/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Server. Config, Engine and Audit are required;
// Redis and Mongo are optional health check probes.
type Options struct {
	Config *config.Provider
	Engine *cloak.Engine
	Audit  *audit.Logger
	Logger *slog.Logger
	Redis  Pinger
	Mongo  Pinger
}

// Server is the HTTP front of the classifier. It serves the landing page,
// the PWA manifest, health and audit endpoints, and a live event stream.
type Server struct {
	cfg     *config.Provider
	engine  *cloak.Engine
	audit   *audit.Logger
	logger  *slog.Logger
	redis   Pinger
	mongo   Pinger
	limiter *IPRateLimiter
	events  *EventHub

	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// NewServer wires the handlers and connects the audit log to the event
// stream so every classified request is broadcast as it is recorded.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Web()
	}

	s := &Server{
		cfg:     opts.Config,
		engine:  opts.Engine,
		audit:   opts.Audit,
		logger:  logger,
		redis:   opts.Redis,
		mongo:   opts.Mongo,
		limiter: NewIPRateLimiter(),
		events:  NewEventHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameHostOrigin,
		},
	}

	s.audit.SetOnRecord(s.events.Broadcast)

	mux := http.NewServeMux()
	mux.HandleFunc("/manifest.json", s.handleManifest)
	mux.HandleFunc("/favicon.ico", s.handleFavicon)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/requests", s.handleRequests)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/", s.handleLanding)

	s.httpServer = &http.Server{
		Handler:           s.loggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the root handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts serving on addr and blocks until the server stops.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger.Info("http server listening", "addr", listener.Addr().String())
	return s.httpServer.Serve(listener)
}

// Shutdown drains in-flight requests and stops background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.limiter.Close()
	return err
}

// sameHostOrigin accepts WebSocket upgrades from pages served by this host.
// Non-browser clients that send no Origin header are accepted as well.
func sameHostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// loggingMiddleware logs each request after it completes.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"ip", clientIP(r),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// statusRecorder captures the response status for access logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack exposes the underlying connection so WebSocket upgrades work
// through the logging wrapper.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hj.Hijack()
}
