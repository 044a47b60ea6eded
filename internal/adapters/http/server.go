// Package http serves speech and braille rendering over a JSON API.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nlbdev/MathCAT"
	"github.com/nlbdev/MathCAT/internal/logging"
	"github.com/nlbdev/MathCAT/internal/rules"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// Server renders each request in a fresh session. All sessions share the
// repository, so rules are loaded once.
type Server struct {
	repo     *rules.Repository
	logger   *slog.Logger
	sessions []mathcat.Option
	metrics  http.Handler
}

type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithSessionOptions passes opts to every per-request session.
func WithSessionOptions(opts ...mathcat.Option) Option {
	return func(s *Server) { s.sessions = append(s.sessions, opts...) }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// NewHandler creates the HTTP handler.
func NewHandler(repo *rules.Repository, opts ...Option) http.Handler {
	s := &Server{repo: repo, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.Health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/speech", s.Speech)
		r.Post("/braille", s.Braille)
		r.Get("/languages", s.Languages)
		r.Get("/languages/{lang}/styles", s.Styles)
		r.Get("/braille-codes", s.BrailleCodes)
	})
	return r
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": mathcat.Version})
}

// Speech handles POST /v1/speech.
func (s *Server) Speech(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, mathcat.OutputSpeech)
}

// Braille handles POST /v1/braille.
func (s *Server) Braille(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, mathcat.OutputBraille)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, output string) {
	var req mathcat.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "BAD_REQUEST", Message: "invalid request body: " + err.Error()})
		return
	}

	logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))
	opts := append([]mathcat.Option{mathcat.WithRepository(s.repo), mathcat.WithLogger(logger)}, s.sessions...)
	session, err := mathcat.NewSession(opts...)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := session.Process(r.Context(), output, req)
	if err != nil {
		logger.Debug("render rejected", "output", output, "err", err)
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// Languages handles GET /v1/languages.
func (s *Server) Languages(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"languages": s.repo.Languages()})
}

// Styles handles GET /v1/languages/{lang}/styles.
func (s *Server) Styles(w http.ResponseWriter, r *http.Request) {
	lang := chi.URLParam(r, "lang")
	styles := s.repo.Styles(lang)
	if len(styles) == 0 {
		s.writeJSON(w, http.StatusNotFound, ErrorResponse{Code: mathcat.CodeUnsupportedLocale, Message: "no speech rules for " + lang})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"language": lang, "styles": styles})
}

// BrailleCodes handles GET /v1/braille-codes.
func (s *Server) BrailleCodes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"braille_codes": s.repo.BrailleCodes()})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := mathcat.Code(err)
	if code == "" {
		code = "INTERNAL"
	}
	s.writeJSON(w, statusFor(code), ErrorResponse{Code: code, Message: err.Error()})
}

// statusFor maps an error code to an HTTP status. Caller mistakes are 4xx;
// a rule set unable to render a valid expression is 422.
func statusFor(code string) int {
	switch code {
	case mathcat.CodeMalformedMarkup,
		mathcat.CodeInvalidPreference,
		mathcat.CodeUnknownPreference,
		mathcat.CodeUnknownNode:
		return http.StatusBadRequest
	case mathcat.CodeExpressionTooLarge:
		return http.StatusRequestEntityTooLarge
	case mathcat.CodeUnsupportedLocale,
		mathcat.CodeUnsupportedStyle,
		mathcat.CodeUnsupportedBrailleCode,
		mathcat.CodeNoApplicableRule,
		mathcat.CodeAmbiguousRule,
		mathcat.CodeUnknownIntent,
		mathcat.CodeMissingArg,
		mathcat.CodeCycleDetected,
		mathcat.CodeStepsExceeded:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", "err", err)
	}
}
