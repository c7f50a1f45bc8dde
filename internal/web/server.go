// Package web provides an HTTP status and command server for the
// home-sentinel daemon.
package web

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/home-sentinel/internal/logic"
	"github.com/sweeney/home-sentinel/internal/sensor"
	"github.com/sweeney/home-sentinel/internal/status"
)

// ErrBusy is returned by a command sink that cannot take another command.
var ErrBusy = errors.New("command queue full")

// Options configures the optional parts of the server.
type Options struct {
	// Gatherer is served on /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer

	// Commands receives sensor commands. It must not block. Nil disables
	// the command routes.
	Commands func(sensor.Command) error

	// AccessLog receives one line per request. Nil disables access logging.
	AccessLog io.Writer
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	commands   func(sensor.Command) error
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, opts Options) *Server {
	s := &Server{tracker: tracker, commands: opts.Commands}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.json", s.handleJSON).Methods(http.MethodGet)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	if opts.Commands != nil {
		r.HandleFunc("/sensors/{id}/enabled", s.handleCommand(logic.FieldEnabled)).Methods(http.MethodPost)
		r.HandleFunc("/sensors/{id}/locked", s.handleCommand(logic.FieldLocked)).Methods(http.MethodPost)
	}

	var h http.Handler = r
	if opts.AccessLog != nil {
		h = handlers.LoggingHandler(opts.AccessLog, r)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: h,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleCommand(field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		snap, ok := s.tracker.Snapshot().Sensor(id)
		if !ok {
			http.Error(w, "unknown sensor", http.StatusNotFound)
			return
		}
		if field == logic.FieldLocked && snap.Door == nil {
			http.Error(w, "sensor has no lock", http.StatusBadRequest)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 64))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		v, err := strconv.ParseBool(strings.TrimSpace(string(body)))
		if err != nil {
			http.Error(w, "body must be true or false", http.StatusBadRequest)
			return
		}

		err = s.commands(sensor.Command{SensorID: id, Field: field, Value: v})
		switch {
		case errors.Is(err, ErrBusy):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusAccepted)
		}
	}
}
