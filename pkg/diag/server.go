// Package diag exposes the read-only diagnostic HTTP surface: run status,
// update history, health and metrics.
package diag

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/updraft-io/updraft/pkg/history"
	"github.com/updraft-io/updraft/pkg/httputil"
	"github.com/updraft-io/updraft/pkg/updater"
)

// HistorySource provides read access to recorded update runs. A nil source
// disables the history endpoints.
type HistorySource interface {
	ListRuns(ctx context.Context, limit int) ([]history.Run, error)
	ListOutcomes(ctx context.Context, runID string) ([]history.Outcome, error)
}

// Server serves the diagnostic API
type Server struct {
	result   *updater.ResultCell
	history  HistorySource
	registry *prometheus.Registry
	log      *logrus.Logger
	handler  http.Handler
}

// NewServer creates a diagnostic server over the given run result cell
func NewServer(result *updater.ResultCell, hist HistorySource, registry *prometheus.Registry, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}

	s := &Server{
		result:   result,
		history:  hist,
		registry: registry,
		log:      log,
	}

	router := mux.NewRouter()
	s.setupRoutes(router)

	s.handler = httputil.Chain(
		httputil.RecoveryMiddleware(log),
		httputil.LoggingMiddleware(log),
	)(otelhttp.NewHandler(router, "diag"))

	return s
}

func (s *Server) setupRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", s.health).Methods("GET")
	router.HandleFunc("/api/v1/status", s.getStatus).Methods("GET")

	if s.history != nil {
		router.HandleFunc("/api/v1/history", s.listRuns).Methods("GET")
		router.HandleFunc("/api/v1/history/{id}", s.getRun).Methods("GET")
	}

	if s.registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods("GET")
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{"status": "ok"})
}

// statusResponse is the run status payload. Statistics is only present once
// the run has completed successfully.
type statusResponse struct {
	State      string              `json:"state"`
	Statistics *updater.Statistics `json:"statistics,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// getStatus handles GET /api/v1/status. The read never blocks: before the
// run publishes its result the state is reported as pending.
func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	stats, err, ok := s.result.Get()
	switch {
	case !ok:
		httputil.WriteSuccess(w, statusResponse{State: "pending"})
	case err != nil:
		httputil.WriteSuccess(w, statusResponse{State: "failed", Error: err.Error()})
	default:
		httputil.WriteSuccess(w, statusResponse{State: "completed", Statistics: &stats})
	}
}

// listRuns handles GET /api/v1/history
func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := httputil.ParseQueryInt(r, "limit", 20)

	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}

	httputil.WriteSuccess(w, runs)
}

// runDetail is one run together with its per-candidate outcomes
type runDetail struct {
	Run      history.Run       `json:"run"`
	Outcomes []history.Outcome `json:"outcomes"`
}

// getRun handles GET /api/v1/history/{id}
func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	runs, err := s.history.ListRuns(r.Context(), 0)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	for _, run := range runs {
		if run.ID != runID {
			continue
		}

		outcomes, err := s.history.ListOutcomes(r.Context(), runID)
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		if outcomes == nil {
			outcomes = []history.Outcome{}
		}

		httputil.WriteSuccess(w, runDetail{Run: run, Outcomes: outcomes})
		return
	}

	httputil.WriteNotFoundError(w, "run not found: "+runID)
}
