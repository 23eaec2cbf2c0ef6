// Package web provides an HTTP status server for the solard daemon.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/sweeney/solard/internal/logic"
	"github.com/sweeney/solard/internal/status"
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
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

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		logrus.WithError(err).Warn("web: render failed")
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// Health problems reported by /health.
const (
	ProblemNotReady  = "not_ready"
	ProblemCritical  = "critical_temperature"
	ProblemOnBattery = "on_battery"
)

// HealthJSON is the /health response. Problems is empty when the controller
// is running normally.
type HealthJSON struct {
	Healthy      bool              `json:"healthy"`
	Problems     []string          `json:"problems"`
	Mode         string            `json:"mode"`
	Cycles       uint64            `json:"cycles"`
	SensorErrors map[string]uint16 `json:"sensor_errors,omitempty"`
}

func buildHealth(snap status.Snapshot) HealthJSON {
	cs := snap.Controller
	h := HealthJSON{Problems: []string{}, Mode: cs.Mode.String(), Cycles: cs.Cycles}
	if !snap.Ready {
		h.Problems = append(h.Problems, ProblemNotReady)
	}
	if cs.Critical {
		h.Problems = append(h.Problems, ProblemCritical)
	}
	if cs.OnBattery {
		h.Problems = append(h.Problems, ProblemOnBattery)
	}
	for ch := logic.Channel(0); ch < logic.NumChannels; ch++ {
		if n := cs.Sensors[ch].Errors; n > 0 {
			if h.SensorErrors == nil {
				h.SensorErrors = map[string]uint16{}
			}
			h.SensorErrors[ch.String()] = n
		}
	}
	h.Healthy = len(h.Problems) == 0
	return h
}

// handleHealth answers 200 while the controller runs normally and 503 while
// it is starting, dumping heat or running from battery.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := buildHealth(s.tracker.Snapshot())
	w.Header().Set("Content-Type", "application/json")
	if !h.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(h); err != nil {
		logrus.WithError(err).Warn("web: health encode failed")
	}
}
