// Package server wires the store, the job runner, the provider registry and
// the optional OCR container into one HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/lazyreader/textbookd/internal/api"
	"github.com/lazyreader/textbookd/internal/config"
	"github.com/lazyreader/textbookd/internal/home"
	"github.com/lazyreader/textbookd/internal/jobs"
	"github.com/lazyreader/textbookd/internal/ocrsvc"
	"github.com/lazyreader/textbookd/internal/providers"
	"github.com/lazyreader/textbookd/internal/server/endpoints"
	"github.com/lazyreader/textbookd/internal/store"
	"github.com/lazyreader/textbookd/internal/svcctx"
)

// Server is the main textbookd HTTP server. When the config enables
// auto-start it also manages the MinerU OCR container lifecycle, starting it
// on server start and stopping it on shutdown.
type Server struct {
	httpServer *http.Server
	home       *home.Dir
	store      *store.Store
	jobRunner  *jobs.Runner
	ocrManager *ocrsvc.DockerManager
	registry   *providers.Registry
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	// ocrStarted records that this process started the container, so
	// shutdown stops it again.
	ocrStarted bool

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// Home is the data directory (database, PDFs, caches)
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Home == nil {
		h, err := home.New("")
		if err != nil {
			return nil, err
		}
		cfg.Home = h
	}

	// Create provider registry
	registry := providers.NewRegistry()
	registry.SetLogger(cfg.Logger)

	// If config manager provided, set up providers and hot reload
	if cfg.ConfigManager != nil {
		registry.Reload(cfg.ConfigManager.Get().ToProviderRegistryConfig())

		cfg.ConfigManager.OnChange(func(c *config.Config) {
			registry.Reload(c.ToProviderRegistryConfig())
			cfg.Logger.Info("provider registry reloaded from config")
		})
	}

	s := &Server{
		home:      cfg.Home,
		registry:  registry,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}

	// The OCR container manager is optional: without a Docker daemon the
	// server still runs, it just cannot manage a local MinerU instance.
	if cfg.ConfigManager != nil {
		ocrCfg := cfg.ConfigManager.Get().OCRService
		manager, err := ocrsvc.NewDockerManager(ocrsvc.DockerConfig{
			ContainerName: ocrCfg.ContainerName,
			Image:         ocrCfg.Image,
			HostPort:      ocrCfg.Port,
		})
		if err != nil {
			cfg.Logger.Warn("docker unavailable, OCR container not managed", "error", err)
		} else {
			s.ocrManager = manager
		}
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{
		OCRManager:      s.ocrManager,
		SwaggerSpecPath: endpoints.GetSwaggerSpecPath(),
	}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start opens the store, starts the job runner and serves HTTP. It blocks
// until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.home.EnsureExists(); err != nil {
		s.setNotRunning()
		return fmt.Errorf("preparing home directory: %w", err)
	}

	st, err := store.Open(ctx, s.home.DatabasePath(), s.logger)
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("opening store: %w", err)
	}
	s.store = st

	if s.ocrManager != nil && s.autoStartOCR() {
		s.logger.Info("starting OCR container")
		if err := s.ocrManager.ValidateExisting(ctx); err != nil {
			_ = s.shutdown()
			return fmt.Errorf("existing OCR container incompatible: %w", err)
		}
		if err := s.ocrManager.Start(ctx); err != nil {
			_ = s.shutdown()
			return fmt.Errorf("starting OCR container: %w", err)
		}
		s.ocrStarted = true
		s.logger.Info("OCR container ready", "url", s.ocrManager.URL())
	}

	workers := 0
	if s.configMgr != nil {
		workers = s.configMgr.Get().Defaults.MaxWorkers
	}
	s.jobRunner = jobs.NewRunner(s.store, jobs.Config{Workers: workers}, s.logger)

	// Create services struct for context enrichment
	s.services = &svcctx.Services{
		Store:      s.store,
		Registry:   s.registry,
		JobRunner:  s.jobRunner,
		Config:     s.configMgr,
		Logger:     s.logger,
		Home:       s.home,
		OCRService: s.ocrManager,
	}

	// Jobs outlive their originating request, so workers run on a context
	// carrying the same services the handlers see.
	s.jobRunner.Start(svcctx.WithServices(context.WithoutCancel(ctx), s.services))

	if s.configMgr != nil {
		s.configMgr.WatchConfig()
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

func (s *Server) autoStartOCR() bool {
	return s.configMgr != nil && s.configMgr.Get().OCRService.AutoStart
}

// shutdown performs graceful shutdown: HTTP server first so no new jobs
// arrive, then the job runner, then the OCR container and the store.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.jobRunner != nil {
		s.jobRunner.Stop()
	}

	if s.ocrManager != nil {
		if s.ocrStarted {
			s.logger.Info("stopping OCR container")
			if err := s.ocrManager.Stop(shutdownCtx); err != nil {
				s.logger.Error("OCR container stop error", "error", err)
			}
		}
		if err := s.ocrManager.Close(); err != nil {
			s.logger.Error("OCR manager close error", "error", err)
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("store close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Store returns the store. Returns nil if the server hasn't started yet.
func (s *Server) Store() *store.Store {
	return s.store
}

// JobRunner returns the job runner. Returns nil if the server hasn't started
// yet.
func (s *Server) JobRunner() *jobs.Runner {
	return s.jobRunner
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// EndpointRegistry returns the endpoint registry, for building CLI commands.
func (s *Server) EndpointRegistry() *api.Registry {
	return s.endpointRegistry
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until the store and job runner are ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil || s.jobRunner == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
