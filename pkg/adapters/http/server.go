// Package http exposes a session manager over a JSON HTTP API.
//
// Routes:
//
//	GET    /health
//	GET    /flow                      compiled flow
//	GET    /instances                 stored instance ids
//	POST   /instances                 start an instance
//	GET    /instances/{id}            current state
//	POST   /instances/{id}/events     step with an event
//	DELETE /instances/{id}            terminate
//	GET    /instances/{id}/stream     state diffs (SSE)
//	GET    /metrics                   Prometheus metrics, when a gatherer is set
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/gameflow/internal/logging"
	"github.com/aretw0/gameflow/pkg/codec"
	"github.com/aretw0/gameflow/pkg/compiler"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/session"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Server serves one flow's instances.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager

	flow     func() *compiler.Flow
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	validate *validator.Validate
}

// Option configures the Server.
type Option func(*Server)

// WithFlow exposes the compiled flow on GET /flow.
func WithFlow(flow *compiler.Flow) Option {
	return WithFlowSource(func() *compiler.Flow { return flow })
}

// WithFlowSource publishes whatever flow src returns, for engines that
// recompile while serving.
func WithFlowSource(src func() *compiler.Flow) Option {
	return func(s *Server) { s.flow = src }
}

// WithMetrics serves g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a Server. Streams must be registered as a commit hook of
// the manager for GET /instances/{id}/stream to receive updates; see
// StreamManager.CommitHook.
func NewServer(sessions *session.Manager, streams *StreamManager, opts ...Option) *Server {
	s := &Server{
		Sessions: sessions,
		Streams:  streams,
		logger:   logging.NewNop(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.getHealth)
	r.Get("/flow", s.getFlow)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/instances", func(r chi.Router) {
		r.Get("/", s.listInstances)
		r.Post("/", s.startInstance)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getInstance)
			r.Delete("/", s.deleteInstance)
			r.Post("/events", s.postEvent)
			r.Get("/stream", s.streamInstance)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartRequest is the body of POST /instances. An empty ID lets the server pick one.
type StartRequest struct {
	ID       string         `json:"id,omitempty" validate:"omitempty,max=128,excludesall=/\\"`
	Bindings map[string]any `json:"bindings,omitempty"`
}

// EventRequest is the body of POST /instances/{id}/events. An empty name is a tick.
type EventRequest struct {
	Name    string         `json:"name,omitempty" validate:"max=128"`
	Payload map[string]any `json:"payload,omitempty"`
}

// StepResponse is returned by POST /instances/{id}/events.
type StepResponse struct {
	State  *domain.FlowState `json:"state"`
	Paused bool              `json:"paused,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getFlow(w http.ResponseWriter, r *http.Request) {
	var flow *compiler.Flow
	if s.flow != nil {
		flow = s.flow()
	}
	if flow == nil {
		s.writeError(w, http.StatusNotFound, errors.New("no flow published"))
		return
	}
	data, err := codec.MarshalFlow(flow)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) listInstances(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

func (s *Server) startInstance(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if !s.decode(w, r, &body) {
		return
	}
	var (
		state *domain.FlowState
		err   error
	)
	if body.ID == "" {
		state, err = s.Sessions.Start(r.Context(), body.Bindings)
	} else {
		state, err = s.Sessions.StartWithID(r.Context(), body.ID, body.Bindings)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, state)
}

func (s *Server) getInstance(w http.ResponseWriter, r *http.Request) {
	state, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) deleteInstance(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Terminate(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postEvent(w http.ResponseWriter, r *http.Request) {
	var body EventRequest
	if !s.decode(w, r, &body) {
		return
	}
	id := chi.URLParam(r, "id")
	state, err := s.Sessions.Step(r.Context(), id, domain.Event{Name: body.Name, Payload: body.Payload})
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, StepResponse{State: state})
	case errors.Is(err, domain.ErrBreakpoint):
		s.writeJSON(w, http.StatusOK, StepResponse{State: state, Paused: true})
	case errors.Is(err, domain.ErrBrokenTransition) && state != nil:
		s.logger.Error("broken transition", "instance", id, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, StepResponse{State: state, Error: err.Error()})
	default:
		s.fail(w, r, err)
	}
}

// decode reads a JSON body (an empty body leaves out untouched) and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, err)
		return false
	}
	if len(data) > 0 {
		if err := sonic.ConfigStd.Unmarshal(data, out); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return false
		}
	}
	if err := s.validate.Struct(out); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

// statusOf maps engine and store errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrInstanceNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInstanceExists),
		errors.Is(err, domain.ErrAlreadyTerminated),
		errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidEvent),
		errors.Is(err, domain.ErrInvalidBinding):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBehaviorFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	s.writeError(w, status, err)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		s.logger.Error("response encode failed", "error", err)
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
