package http

import (
	"context"
	"encoding/json"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"rfcharts/internal/dashboard"
	applog "rfcharts/internal/log"
	"rfcharts/internal/middleware/ratelimit"
	"rfcharts/internal/middleware/security"
	"rfcharts/internal/middleware/trace"
	"rfcharts/internal/sheets"
	appweb "rfcharts/web"
)

// CacheStats is implemented by chart caches that count lookups.
type CacheStats interface {
	Size() int
	Stats() (hits, misses uint64)
}

// Options wires the server to its collaborators. Dashboard is required.
type Options struct {
	Dashboard *dashboard.Service
	// Plans lists the plans on the index page and /api/v1/plans. Optional.
	Plans sheets.PlanLister
	// ChartCache is reported by /api/v1/stats. Optional.
	ChartCache CacheStats
	// Ready is checked by /readyz, e.g. a database ping. Optional.
	Ready func(context.Context) error
	// RateLimit applies to POST requests. Zero means ratelimit.DefaultConfig.
	RateLimit ratelimit.Config
	Logger    *applog.Logger
}

type Server struct {
	http.Server
	dash      *dashboard.Service
	plans     sheets.PlanLister
	charts    CacheStats
	ready     func(context.Context) error
	templates *template.Template
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	logger    *applog.Logger
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger, _ = applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentHTTP})
	}
	rl := opts.RateLimit
	if rl.Requests <= 0 || rl.Window <= 0 {
		rl = ratelimit.DefaultConfig()
	}

	router := chi.NewMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		dash:     opts.Dashboard,
		plans:    opts.Plans,
		charts:   opts.ChartCache,
		ready:    opts.Ready,
		limiter:  ratelimit.NewLimiter(rl),
		detector: security.NewDetector(),
		logger:   logger,
		started:  time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	router.Use(middleware.RequestID)
	router.Use(applog.Middleware(logger))
	router.Use(applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	}))
	router.Use(s.tracer.Middleware)
	router.Use(middleware.Recoverer)
	router.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	router.Use(s.detector.Middleware(logger.Logger))
	router.Use(zstdMiddleware)
	router.Use(s.limitWrites)

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		router.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	router.Get("/healthz", s.handleHealth)
	router.Get("/readyz", s.handleReady)
	router.Get("/", s.handleIndex)
	router.Get("/plans/{planID}", s.handlePlan)

	cfg := huma.DefaultConfig("Reserve Fund Charts API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)
	registerPlanHandlers(api, s)
	registerChartHandlers(api, s)
	registerStatsHandlers(api, s)

	return s
}

// limitWrites applies the rate limiter to POST requests only; reads are
// served from cache and stay unlimited.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.tooManyRequests)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) tooManyRequests(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(huma.ErrorModel{
		Title:  http.StatusText(http.StatusTooManyRequests),
		Status: http.StatusTooManyRequests,
		Detail: "rate limit exceeded, try again later",
	})
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports 503 until templates are parsed and the backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.ready == nil {
		checks["backend"] = "not_checked"
	} else if err := s.ready(ctx); err != nil {
		checks["backend"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["backend"] = "ok"
	}

	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
