package http_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davarch/pipelines-dashboard/internal/application"
	"github.com/davarch/pipelines-dashboard/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	idleTimeout    = 120 * time.Second
	requestTimeout = 60 * time.Second
	timeoutMargin  = time.Second
	maxBodyBytes   = 1 << 20
)

type Config struct {
	Addr          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	WebhookSecret string
}

// StatusSource exposes the last scheduler snapshot.
type StatusSource interface {
	Latest() domain.Snapshot
}

type Server struct {
	log     *zap.Logger
	server  *http.Server
	secret  string
	timeout time.Duration

	settings domain.SettingsStore
	gl       domain.GitlabClient
	agg      *application.Aggregator
	notifier *application.Notifier
	webhook  *application.WebhookHandler
	status   StatusSource
}

func New(
	l *zap.Logger,
	cfg Config,
	st domain.SettingsStore,
	gl domain.GitlabClient,
	agg *application.Aggregator,
	n *application.Notifier,
	wh *application.WebhookHandler,
	status StatusSource,
) *Server {
	s := &Server{
		log:      l,
		secret:   cfg.WebhookSecret,
		timeout:  handlerTimeout(cfg.WriteTimeout),
		settings: st,
		gl:       gl,
		agg:      agg,
		notifier: n,
		webhook:  wh,
		status:   status,
	}

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s
}

// handlerTimeout keeps handler deadlines inside the server write deadline so a
// slow request still gets a response.
func handlerTimeout(write time.Duration) time.Duration {
	switch {
	case write <= 0:
		return requestTimeout
	case write > 2*timeoutMargin:
		return min(write-timeoutMargin, requestTimeout)
	default:
		return write / 2
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/repositories", s.handleRepositories)
		r.Get("/pipelines", s.handlePipelines)
		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handleSaveSettings)
		r.Post("/test-connection", s.handleTestConnection)
		r.Post("/notify", s.handleNotify)
		r.Post("/webhook", s.handleWebhook)
		r.Get("/status", s.handleStatus)
	})
	r.Post("/webhook", s.handleWebhook)

	return r
}

func (s *Server) Addr() string { return s.server.Addr }

// Start blocks until the server stops. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
