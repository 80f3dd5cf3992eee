// Package web serves the portal pages: entity tables and forms, the booking
// calendar and the usage-control sheet. All data comes from the backend.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"portal/internal/backend"
	"portal/internal/calendar"
	"portal/internal/config"
	"portal/internal/domain"
	"portal/internal/logging"

	"github.com/rs/zerolog"
)

// Deps are the collaborators of the portal server.
type Deps struct {
	Config  *config.Config
	Backend *backend.Client
	Flashes domain.FlashRepository
	Events  domain.EventPublisher
	// Checks are pinged by /readyz, keyed by name.
	Checks map[string]domain.HealthChecker
	Logger *zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server exposes the portal over HTTP.
type Server struct {
	cfg      *config.Config
	backend  *backend.Client
	flashes  domain.FlashRepository
	events   domain.EventPublisher
	checks   map[string]domain.HealthChecker
	logger   *zerolog.Logger
	now      func() time.Time
	calendar calendar.Config
	pages    *pages
	limiter  *rateLimiter
	handler  http.Handler
	server   *http.Server
}

func NewServer(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("web: config is required")
	}
	if deps.Backend == nil {
		return nil, fmt.Errorf("web: backend client is required")
	}
	if deps.Flashes == nil {
		return nil, fmt.Errorf("web: flash repository is required")
	}

	p, err := loadPages()
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	cfg := deps.Config
	s := &Server{
		cfg:     cfg,
		backend: deps.Backend,
		flashes: deps.Flashes,
		events:  deps.Events,
		checks:  deps.Checks,
		logger:  logging.Component(deps.Logger, "http"),
		now:     now,
		calendar: calendar.Config{
			DayStart:    cfg.Calendar.DayStart,
			DayEnd:      cfg.Calendar.DayEnd,
			SlotMinutes: cfg.Calendar.SlotMinutes,
			Location:    cfg.Calendar.Location(),
		},
		pages:   p,
		limiter: newRateLimiter(cfg.HTTP.RateLimit),
	}

	mux := http.NewServeMux()
	s.routes(mux)
	s.handler = s.middleware(mux)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	return s, nil
}

// Handler returns the full middleware chain around the router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("portal listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) middleware(next http.Handler) http.Handler {
	h := methodOverride(next)
	h = s.limiter.wrap(h)
	h = metricsMiddleware(h)
	h = s.loggingMiddleware(h)
	h = s.sessionMiddleware(h)
	h = requestIDMiddleware(h)
	return s.recoverMiddleware(h)
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /static/portal.css", s.handleStylesheet)
	mux.HandleFunc("GET /reservas/calendario", s.handleCalendar)

	for _, r := range s.resources() {
		r.register(mux)
	}
}
