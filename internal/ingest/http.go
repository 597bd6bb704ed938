package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"theftalert/internal/domain"
	"theftalert/internal/logging"
)

const maxEventBytes = 1 << 20

// RouterOptions wires the HTTP surface.
type RouterOptions struct {
	Processor Processor
	Metrics   http.Handler
	Health    func(ctx context.Context) error
	Logger    *slog.Logger
}

type handler struct {
	processor Processor
	health    func(ctx context.Context) error
	logger    *slog.Logger
}

// NewRouter builds the chi router for event ingestion, health and metrics.
func NewRouter(opts RouterOptions) http.Handler {
	h := &handler{
		processor: opts.Processor,
		health:    opts.Health,
		logger:    logging.NewComponentLogger(opts.Logger, "ingest.http"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/v1/events/report-created", h.handleReportCreated)
	r.Get("/healthz", h.handleHealth)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) handleReportCreated(w http.ResponseWriter, r *http.Request) {
	report, err := DecodeReport(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	summary, err := h.processor.OnReportCreated(r.Context(), report)
	if err != nil {
		// Directory failures and cancellations are retryable by the sender.
		h.logger.Error("event processing failed",
			logging.String(logging.FieldReportID, report.ID),
			logging.String("request_id", middleware.GetReqID(r.Context())),
			logging.Bool("directory_unavailable", errors.Is(err, domain.ErrDirectoryUnavailable)),
			logging.Error(err),
		)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DecodeReport parses a JSON vehicle report.
func DecodeReport(r io.Reader) (domain.VehicleReport, error) {
	var report domain.VehicleReport
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return domain.VehicleReport{}, fmt.Errorf("decode report: %w", err)
	}
	return report, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Server runs the HTTP router on a TCP listener.
type Server struct {
	bind     string
	logger   *slog.Logger
	listener net.Listener
	server   *http.Server
}

// NewServer prepares a server for handler on bind.
func NewServer(bind string, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "ingest.http"),
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Minute,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start listens and serves in the background until ctx ends or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("http server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, letting in-flight requests finish for up to
// 30 seconds.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
