package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/recordupdate/internal/engine"
	"github.com/roach88/recordupdate/internal/update"
)

// maxRequestBytes bounds the body of one update request.
const maxRequestBytes = 4 << 20

// Updater runs update requests. *update.Service implements it.
type Updater interface {
	Update(ctx context.Context, req *update.Request) (*update.Response, error)
	Validate(ctx context.Context, req *update.Request) (*update.Response, error)
}

// Server is the HTTP surface of the update service:
//
//	POST /api/v1/update    run a request
//	POST /api/v1/validate  run the validation part of a request
//	GET  /healthz          liveness
//	GET  /metrics          Prometheus metrics
type Server struct {
	updater Updater
	metrics *engine.Metrics
	logger  *slog.Logger
}

// NewServer creates a Server. A nil metrics collector leaves /metrics out.
func NewServer(updater Updater, metrics *engine.Metrics, logger *slog.Logger) *Server {
	return &Server{updater: updater, metrics: metrics, logger: logger}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/update", s.handle(s.updater.Update))
		r.Post("/validate", s.handle(s.updater.Validate))
	})
	return r
}

type runFunc func(ctx context.Context, req *update.Request) (*update.Response, error)

func (s *Server) handle(run runFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req update.Request
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body", err)
			return
		}
		if req.TrackingID == "" {
			req.TrackingID = chimiddleware.GetReqID(r.Context())
		}

		resp, err := run(r.Context(), &req)
		if err != nil {
			s.logger.Error("update aborted", "tracking_id", req.TrackingID, "error", err)
			if resp == nil || engine.IsInvalidRequestError(err) {
				s.respondError(w, http.StatusBadRequest, "request rejected", err)
				return
			}
			s.respondJSON(w, http.StatusInternalServerError, resp)
			return
		}
		s.respondJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string, err error) {
	s.respondJSON(w, status, CLIError{Code: http.StatusText(status), Message: message, Details: err.Error()})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
