package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"roamfree/internal/actions"
	"roamfree/internal/auth"
	"roamfree/internal/config"
	"roamfree/internal/database"
	"roamfree/internal/distance"
	"roamfree/internal/geocoding"
	"roamfree/internal/handlers"
	"roamfree/internal/llm"
	"roamfree/internal/models"
	"roamfree/internal/planning"
	"roamfree/internal/session"
	"roamfree/web"
)

// Server wraps the HTTP server and all dependencies
type Server struct {
	httpServer *http.Server
	handler    *handlers.Handler
	store      database.Store
	places     *geocoding.Nominatim
	sessions   *session.Manager
	listener   net.Listener
	addr       string
	logger     *slog.Logger
}

// New creates and initializes a new server (does not start it)
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("opening data store", "driver", cfg.Store.Driver)
	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open data store: %w", err)
	}

	logger.Debug("loading templates")
	templates, err := loadTemplates(web.Templates)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey,
		llm.WithModel(cfg.LLM.Model),
		llm.WithLogger(logger),
	)
	gateway := planning.NewGateway(client,
		planning.WithTimeout(cfg.LLM.Timeout),
		planning.WithTemperature(cfg.LLM.Temperature),
		planning.WithLogger(logger),
		planning.WithMetrics(planning.NewMetrics(registry)),
	)
	acts := actions.NewService(gateway, logger)

	places := geocoding.NewNominatim(
		geocoding.WithBaseURL(cfg.Places.NominatimURL),
		geocoding.WithUserAgent(cfg.Places.UserAgent),
		geocoding.WithLogger(logger),
	)

	var estimator distance.Estimator = distance.Disabled{}
	if cfg.Distance.Enabled {
		estimator = distance.NewOSRM(
			distance.WithBaseURL(cfg.Distance.OSRMURL),
			distance.WithCache(database.Namespace(store, "cache")),
			distance.WithLogger(logger),
		)
	}

	sessions := session.NewManager(store, session.Deps{
		Actions:  acts,
		Places:   places,
		Distance: estimator,
		Logger:   logger,
	})

	handler := &handlers.Handler{
		Store:     store,
		Sessions:  sessions,
		Actions:   acts,
		Places:    places,
		Auth:      auth.NewMockProvider(),
		Templates: templates,
		Logger:    logger,
		OpenURL:   OpenBrowser,
	}

	router, err := setupRoutes(handler, web.Static, registry, cfg.Server.CORSOrigins, logger)
	if err != nil {
		places.Close()
		store.Close()
		return nil, err
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
		store:      store,
		places:     places,
		sessions:   sessions,
		addr:       cfg.Server.Addr,
		logger:     logger,
	}, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the server and returns the actual address (useful for random port)
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	actualAddr := listener.Addr().String()
	s.logger.Info("server starting", "addr", actualAddr)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	return actualAddr, nil
}

// Shutdown gracefully shuts down the server, then stops background session
// work and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.sessions.Close()
	s.places.Close()
	return errors.Join(err, s.store.Close())
}

// Template helper functions
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDuration": models.FormatDuration,
		"toJSON": func(v interface{}) string {
			b, err := json.Marshal(v)
			if err != nil {
				return "{}"
			}
			return string(b)
		},
		"formatSavedAt": func(s string) string {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return s
			}
			return t.Local().Format("Jan 2, 2006 15:04")
		},
	}
}

var pageFiles = []string{"index.html", "login.html"}

// loadTemplates loads all templates from the embedded filesystem
func loadTemplates(templatesFS fs.FS) (*handlers.TemplateSet, error) {
	funcs := templateFuncs()
	base := template.New("").Funcs(funcs)

	layoutContent, err := fs.ReadFile(templatesFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to read layout: %w", err)
	}
	if _, err := base.New("layout.html").Parse(string(layoutContent)); err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	partialFiles, err := fs.Glob(templatesFS, "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to glob partials: %w", err)
	}
	for _, file := range partialFiles {
		content, err := fs.ReadFile(templatesFS, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read partial %s: %w", file, err)
		}
		name := strings.TrimPrefix(file, "templates/partials/")
		if _, err := base.New(name).Parse(string(content)); err != nil {
			return nil, fmt.Errorf("failed to parse partial %s: %w", file, err)
		}
	}

	// Page templates are kept as strings and parsed per render
	pages := make(map[string]string)
	for _, name := range pageFiles {
		content, err := fs.ReadFile(templatesFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %s: %w", name, err)
		}
		pages[name] = string(content)
	}

	return &handlers.TemplateSet{
		Base:  base,
		Pages: pages,
		Funcs: funcs,
	}, nil
}

// setupRoutes configures middleware, static files, metrics and the handler routes
func setupRoutes(handler *handlers.Handler, staticFS fs.FS, registry *prometheus.Registry, origins []string, logger *slog.Logger) (chi.Router, error) {
	staticSubFS, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to create static sub-filesystem: %w", err)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(newSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(newCORSHandler(origins))
	r.Use(newHTTPMetrics(registry).instrument)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSubFS))))
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	r.Mount("/", handler.Routes())

	return r, nil
}

// OpenBrowser opens url with the platform's default handler
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
	return cmd.Start()
}
