package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/tradescout/pkg/utils/logging"
)

// Server exposes the health probe and, when configured, the Slack Events API
// ingress
type Server struct {
	router *chi.Mux
	events *SlackWebhookHandler
	secret string
	health HealthReporter
}

type Options func(*Server)

// WithSlackWebhook mounts the events endpoint. Requests must carry a valid
// signature for signingSecret.
func WithSlackWebhook(handler *SlackWebhookHandler, signingSecret string) Options {
	return func(s *Server) {
		s.events = handler
		s.secret = signingSecret
	}
}

func WithHealthReporter(reporter HealthReporter) Options {
	return func(s *Server) {
		s.health = reporter
	}
}

func New(opts ...Options) *Server {
	s := &Server{router: chi.NewRouter()}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", healthHandler(s.health))
	if s.events != nil {
		s.router.With(SlackSignatureMiddleware(s.secret)).
			Post("/hooks/slack/event", s.events.ServeHTTP)
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger attaches a request-scoped logger to the context and writes one
// access line per request. Health probes are logged at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := logging.Default().With("request_id", middleware.GetReqID(r.Context()))
		ctx := logging.With(r.Context(), logger)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		log := logger.Info
		if r.URL.Path == "/health" {
			log = logger.Debug
		}
		log("access",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
