package api

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inferencemax/dashboard/pkg/api/handlers"
	"github.com/inferencemax/dashboard/pkg/api/middleware"
	"github.com/inferencemax/dashboard/pkg/benchmarks"
	"github.com/inferencemax/dashboard/pkg/github"
	"github.com/inferencemax/dashboard/pkg/metrics"
	"github.com/inferencemax/dashboard/pkg/notifications"
	"github.com/inferencemax/dashboard/pkg/store"
	"github.com/inferencemax/dashboard/pkg/workflows"
)

// Server is the dashboard API server
type Server struct {
	app     *fiber.App
	cfg     Config
	catalog *workflows.Catalog
	service *benchmarks.Service
}

// NewServer wires the benchmark pipeline and creates the HTTP app.
func NewServer(cfg Config) (*Server, error) {
	return newServer(cfg, benchmarks.DefaultOptions())
}

func newServer(cfg Config, opts benchmarks.Options) (*Server, error) {
	catalog, err := workflows.LoadCatalog(cfg.WorkflowsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow catalog: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	client := github.NewClient(github.Config{
		Token:    cfg.GitHubToken,
		Repo:     cfg.GitHubRepo,
		BaseURL:  cfg.GitHubAPIURL,
		RetryMax: cfg.UpstreamRetries,
		Metrics:  m,
	})
	if cfg.MaxRuns > 0 {
		opts.MaxRuns = cfg.MaxRuns
	}
	fetcher := benchmarks.NewFetcher(client, opts, m)
	cache := benchmarks.NewCache(store.NewDiskStore(cfg.CacheDir), cfg.CacheTTL, m)
	log.Printf("[API] Benchmark cache in %s, TTL %s", cfg.CacheDir, cache.TTL())

	var notifier notifications.Notifier
	if cfg.SlackWebhookURL != "" {
		notifier = notifications.NewSlackNotifier(cfg.SlackWebhookURL, cfg.SlackChannel)
	}

	service := benchmarks.NewService(fetcher, cache, benchmarks.ServiceConfig{
		TokenConfigured: cfg.GitHubToken != "",
		DefaultDays:     cfg.DefaultDays,
		Workflows:       catalog,
		Notifier:        notifier,
		Metrics:         m,
	})

	catalog.SetOnReload(func() {
		log.Printf("[API] Workflow catalog reloaded: %d workflows, default %s", len(catalog.List()), catalog.Default())
	})

	if cfg.GitHubToken == "" {
		log.Printf("[API] WARNING: GITHUB_TOKEN not set, benchmark requests will be rejected")
	}

	app := fiber.New(fiber.Config{
		AppName:      "InferenceMAX Dashboard",
		ErrorHandler: errorHandler,
		ReadTimeout:  30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	})

	s := &Server{app: app, cfg: cfg, catalog: catalog, service: service}
	s.setupMiddleware()
	s.setupRoutes(reg)
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.app.Use(recover.New(recover.Config{EnableStackTrace: s.cfg.DevMode}))
	s.app.Use(middleware.RequestID())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.CORSOrigins,
		AllowMethods: "GET,OPTIONS",
	}))
}

func (s *Server) setupRoutes(reg *prometheus.Registry) {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := s.app.Group("/api")
	api.Get("/benchmarks", handlers.NewBenchmarkHandlers(s.service).GetBenchmarks)
	api.Get("/workflows", handlers.NewWorkflowHandlers(s.catalog).ListWorkflows)
}

// errorHandler renders fiber errors (unknown routes, panics) as JSON.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// App exposes the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Start watches the workflow catalog and serves until Shutdown.
func (s *Server) Start() error {
	if path := s.catalog.Path(); path != "" {
		if err := s.catalog.StartWatching(); err != nil {
			log.Printf("[API] Workflow catalog %s will not hot-reload: %v", path, err)
		}
	}
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	log.Printf("[API] Starting server on %s (repo %s, cache %s)", addr, s.cfg.GitHubRepo, s.cfg.CacheDir)
	return s.app.Listen(addr)
}

// Shutdown stops the catalog watcher and drains in-flight requests.
func (s *Server) Shutdown() error {
	s.catalog.StopWatching()
	return s.app.Shutdown()
}
