package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mfcastellanos/negobot/internal/api/handlers"
	mw "github.com/mfcastellanos/negobot/internal/api/middleware"
	"github.com/mfcastellanos/negobot/internal/buildconfig"
	"github.com/mfcastellanos/negobot/internal/classifier"
	"github.com/mfcastellanos/negobot/internal/config"
	"github.com/mfcastellanos/negobot/internal/domain"
	"github.com/mfcastellanos/negobot/internal/engine"
	"github.com/mfcastellanos/negobot/internal/enhance"
	"github.com/mfcastellanos/negobot/internal/store"
	"go.uber.org/zap"
)

// App holds the router and the decision engine for lifecycle management.
type App struct {
	Router       *chi.Mux
	Engine       *engine.Service
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) (*App, error) {
	// Stores
	flowStore := store.NewFlowStore(db)
	debtorStore := store.NewDebtorStore(db)
	decisionStore := store.NewDecisionLogStore(db)

	// Classifier, with an optional model artifact on top of the rule table
	var model classifier.Model
	if path := config.ClassifierModelPath(); path != "" {
		m, err := classifier.LoadArtifact(path)
		if err != nil {
			logger.Warn("classifier model artifact not loaded, rules only",
				zap.String("path", path), zap.Error(err))
		} else {
			model = m
			logger.Info("classifier model artifact loaded", zap.String("path", path))
		}
	}
	cls, err := classifier.New(model, logger)
	if err != nil {
		return nil, err
	}

	// Decision engine
	cache := engine.NewCache(flowStore, config.ConfigCacheTTL(), logger)
	svc := engine.NewService(cls, cache, debtorStore, logger)
	svc.SetDecisionLog(decisionStore)
	svc.SetLookupTimeout(config.LookupTimeout())

	enhancerProvider := config.EnhancerProvider()
	enhancer, err := enhance.NewEnhancer(enhancerProvider, config.EnhancerAPIKey())
	if err != nil {
		logger.Warn("enhancer initialization failed, replies stay template-rendered",
			zap.String("provider", enhancerProvider), zap.Error(err))
	} else if enhancer != nil {
		svc.SetEnhancer(enhancer)
		logger.Info("response enhancer initialized", zap.String("provider", enhancerProvider))
	}

	// Handlers
	chatHandler := handlers.NewChatHandler(svc)
	engineHandler := handlers.NewEngineHandler(svc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Engine:    svc,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", mw.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/chat/decide", chatHandler.Decide)
		r.Route("/engine", func(r chi.Router) {
			r.Get("/stats", engineHandler.Stats)
			r.Post("/refresh", engineHandler.Refresh)
		})
	})

	return app, nil
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"config_cache":   app.Engine.Stats(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"build":      buildconfig.VersionInfo(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.FlowStore        = (*store.FlowStore)(nil)
	_ domain.DebtorStore      = (*store.DebtorStore)(nil)
	_ domain.DecisionLogStore = (*store.DecisionLogStore)(nil)
	_ domain.ResponseEnhancer = (*enhance.OpenAIEnhancer)(nil)
	_ domain.ResponseEnhancer = (*enhance.MockEnhancer)(nil)
)
