// Package web serves the local control page and status endpoints.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sweeney/irrigation-controller/internal/control"
	"github.com/sweeney/irrigation-controller/internal/history"
	"github.com/sweeney/irrigation-controller/internal/logging"
	"github.com/sweeney/irrigation-controller/internal/status"
)

// commandTimeout bounds how long /on and /off wait for the control loop.
// A pulse in progress delays the command by up to the pulse length.
const commandTimeout = 30 * time.Second

// Commander applies an actuator command through the control loop, so it
// has the same side effects as one received over MQTT.
type Commander interface {
	Submit(ctx context.Context, a control.Action) error
}

// HistorySource lists recorded commands.
type HistorySource interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Options configures a Server.
type Options struct {
	Addr     string
	Tracker  *status.Tracker
	Commands Commander
	History  HistorySource // may be nil

	// Username and Password enable HTTP basic auth when Username is set.
	Username string
	Password string

	Logger *logging.Logger
}

// Server serves the control page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	commands   Commander
	history    HistorySource
	hub        *Hub
	log        *logging.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	s := &Server{
		tracker:  opts.Tracker,
		commands: opts.Commands,
		history:  opts.History,
		hub:      NewHub(log),
		log:      log,
	}

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.buildRouter(opts.Username, opts.Password),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) buildRouter(user, pass string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)
	if user != "" {
		r.Use(middleware.BasicAuth("irrigation", map[string]string{user: pass}))
	}

	r.Get("/", s.handleIndex)
	r.Get("/index.html", s.handleIndex)
	r.Get("/style.css", s.handleStyle)
	r.Get("/index.json", s.handleJSON)
	r.Get("/history.json", s.handleHistory)
	r.Get("/ws", s.handleWebSocket)

	for path, action := range map[string]control.Action{"/on": control.ActionOn, "/off": control.ActionOff} {
		h := s.handleCommand(action)
		r.Get(path, h)
		r.Post(path, h)
	}
	return r
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown closes websocket clients and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()
	return s.httpServer.Shutdown(ctx)
}

// NotifyChange pushes the current status to websocket clients.
func (s *Server) NotifyChange() {
	if s.hub.ClientCount() == 0 {
		return
	}
	s.hub.Broadcast(status.FormatCompact(s.tracker.Snapshot()))
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
