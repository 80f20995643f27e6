// Package server exposes an evaluator over HTTP.
//
//	POST /eval     {"form": "md('# Hi')"}   -> {"bundle": {...}, "html": "..."}
//	POST /render   declarative note (YAML or JSON) -> {"bundle": {...}, "html": "..."}
//	GET  /kinds    registered kinds
//	GET  /healthz  build info
//	GET  /metrics  Prometheus metrics, when configured
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/kindview/internal/notefile"
	"github.com/matzehuels/kindview/pkg/buildinfo"
	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/eval"
	"github.com/matzehuels/kindview/pkg/observability"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// Server serves one evaluator. Evaluations are serialized because a
// kernel keeps its globals between forms.
type Server struct {
	mu      sync.Mutex
	ev      *eval.Evaluator
	logger  *log.Logger
	metrics http.Handler
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// New returns a server for ev.
func New(ev *eval.Evaluator, opts ...Option) *Server {
	s := &Server{ev: ev, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Post("/eval", s.handleEval)
	r.Post("/render", s.handleRender)
	r.Get("/kinds", s.handleKinds)
	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// observe reports requests to the HTTP hooks and logs them.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		hooks.OnResponse(r.Context(), r.Method, route, status, elapsed)
		s.logger.Debug("request", "method", r.Method, "route", route, "status", status, "elapsed", elapsed,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

type evalRequest struct {
	Form string `json:"form"`
}

type displayResponse struct {
	Bundle      map[string]any `json:"bundle"`
	HTML        string         `json:"html,omitempty"`
	Passthrough bool           `json:"passthrough,omitempty"`
}

type errorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	var req evalRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if req.Form == "" {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "form cannot be empty"))
		return
	}

	s.mu.Lock()
	res, err := s.ev.Eval(r.Context(), req.Form)
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := displayResponse{Bundle: res.Bundle(), Passthrough: res.Passthrough}
	if !res.Passthrough {
		resp.HTML = res.Artifact.Tree.HTML()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	n, err := notefile.Decode(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		s.writeError(w, err)
		return
	}
	a, err := s.ev.Engine().RenderTop(r.Context(), n)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res := eval.Result{Form: n.Form, Value: n.Value, Artifact: a}
	s.writeJSON(w, http.StatusOK, displayResponse{Bundle: res.Bundle(), HTML: a.Tree.HTML()})
}

type kindInfo struct {
	Kind        string            `json:"kind"`
	Description string            `json:"description,omitempty"`
	Nestable    bool              `json:"nestable"`
	AnyOptions  bool              `json:"any_options,omitempty"`
	Options     map[string]string `json:"options,omitempty"`
}

func (s *Server) handleKinds(w http.ResponseWriter, _ *http.Request) {
	defs := s.ev.Engine().Registry().Definitions()
	out := make([]kindInfo, 0, len(defs))
	for _, def := range defs {
		info := kindInfo{
			Kind:        string(def.Kind),
			Description: def.Description,
			Nestable:    def.Nestable,
			AnyOptions:  def.AnyOptions,
		}
		if len(def.Options) > 0 {
			info.Options = make(map[string]string, len(def.Options))
			for name, typ := range def.Options {
				info.Options[name] = typ.Name()
			}
		}
		out = append(out, info)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"build":       buildinfo.Get(),
		"environment": s.ev.Engine().Environment(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, errorResponse{Error: errors.UserMessage(err), Code: errors.GetCode(err)})
}

// statusFor maps error codes to HTTP statuses.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeKernel, errors.ErrCodeCallable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
