package ui

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"flakewatch/app"
	"flakewatch/domain/core"
	"flakewatch/internal"
)

//go:embed templates/*
var embeddedFiles embed.FS

// Server serves the stability grid JSON and the summary report page.
type Server struct {
	router    *chi.Mux
	service   *app.StabilityService
	templates *template.Template
	logger    *internal.Logger

	defaultGranularity core.Granularity
}

// Config holds server settings
type Config struct {
	Port               string
	DefaultGranularity core.Granularity
}

// NewServer creates the HTTP surface over the stability service.
func NewServer(service *app.StabilityService, cfg Config, logger *internal.Logger) (*Server, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}

	funcMap := template.FuncMap{
		"pct":   func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
		"deref": func(p *float64) float64 { return *p },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	gran := cfg.DefaultGranularity
	if gran == "" {
		gran = core.GranularityMonth
	}

	s := &Server{
		router:             chi.NewRouter(),
		service:            service,
		templates:          templates,
		logger:             logger,
		defaultGranularity: gran,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/report", s.handleReport)

	s.router.Get("/api/stability", s.handleStability)
	s.router.Get("/api/stability/{entity}", s.handleEntityDetail)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server on the configured port.
func (s *Server) Start(port string) error {
	addr := ":" + port
	s.logger.Info("serving stability reports on %s", addr)
	return http.ListenAndServe(addr, s.router)
}
