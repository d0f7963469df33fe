package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/Harshitk-cp/vocabtest/internal/api/handlers"
	mw "github.com/Harshitk-cp/vocabtest/internal/api/middleware"
	"github.com/Harshitk-cp/vocabtest/internal/buildconfig"
	"github.com/Harshitk-cp/vocabtest/internal/config"
	"github.com/Harshitk-cp/vocabtest/internal/domain"
	"github.com/Harshitk-cp/vocabtest/internal/inference"
	"github.com/Harshitk-cp/vocabtest/internal/service"
	"github.com/Harshitk-cp/vocabtest/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Options carries everything NewApp reads from the environment.
type Options struct {
	Engine         service.EngineConfig
	SessionIdleTTL time.Duration
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int
}

func OptionsFromConfig() Options {
	am, av := config.AbilityPrior()
	bm, bv := config.BiasPrior()
	return Options{
		Engine: service.EngineConfig{
			AbilityPrior:  inference.Gaussian{Mean: am, Variance: av},
			BiasPrior:     inference.Gaussian{Mean: bm, Variance: bv},
			MaxIterations: config.MaxIterations(),
			MaxStimulus:   config.BoundsMaxStimulus(),
		},
		SessionIdleTTL: config.SessionIdleTTL(),
		APIKey:         config.APIKey(),
		RateLimitRPS:   config.RateLimitRPS(),
		RateLimitBurst: config.RateLimitBurst(),
	}
}

// App holds the router and the pieces main manages the lifecycle of.
type App struct {
	Router   *chi.Mux
	Sessions *service.SessionService
	Expirer  *service.ExpirerService
	Limiter  *mw.RateLimiter

	metrics   *mw.MetricsCollector
	ping      func(ctx context.Context) error
	startTime time.Time
}

// NewApp wires Postgres-backed stores when db is non-nil, and otherwise
// reads the catalog from CATALOG_PATH and keeps sessions in memory.
func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	var (
		catalogStore domain.CatalogStore
		sessionStore domain.SessionStore
		ping         func(ctx context.Context) error
	)
	if db != nil {
		catalogStore = store.NewCatalogStore(db)
		sessionStore = store.NewSessionStore(db)
		ping = db.Ping
		logger.Info("using postgres stores")
	} else {
		catalogStore = store.NewFileCatalogStore(config.CatalogPath())
		sessionStore = store.NewMemorySessionStore()
		logger.Info("using file catalog and in-memory sessions", zap.String("catalog_path", config.CatalogPath()))
	}
	return New(catalogStore, sessionStore, ping, OptionsFromConfig(), logger)
}

// New builds the router over the given stores. ping may be nil.
func New(catalogStore domain.CatalogStore, sessionStore domain.SessionStore, ping func(ctx context.Context) error, opts Options, logger *zap.Logger) *App {
	catalogSvc := service.NewCatalogService(catalogStore, logger)
	sessionSvc := service.NewSessionService(catalogSvc, sessionStore, opts.Engine, logger)
	sessionHandler := handlers.NewSessionHandler(sessionSvc, logger)

	r := chi.NewRouter()
	app := &App{
		Router:    r,
		Sessions:  sessionSvc,
		Expirer:   service.NewExpirerService(sessionSvc, opts.SessionIdleTTL, logger),
		Limiter:   mw.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		metrics:   mw.NewMetricsCollector(),
		ping:      ping,
		startTime: time.Now(),
	}

	// Order matters: the request ID and real IP must be set before anything
	// logs or rate limits.
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.metrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(app.Limiter.Middleware)

	r.Get("/health", app.healthHandler())
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(opts.APIKey))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.GetByID)
				r.Post("/responses", sessionHandler.Respond)
			})
		})
	})

	return app
}

func (app *App) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"status": "ok",
			"build":  buildconfig.Current(),
		}
		status := http.StatusOK
		if app.ping != nil {
			if err := app.ping(r.Context()); err != nil {
				resp["status"] = "error"
				resp["error"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
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
			"http":           app.metrics.Snapshot(),
			"sessions":       app.Sessions.Stats(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": float64(memStats.Alloc) / 1024 / 1024,
				"sys_mb":   float64(memStats.Sys) / 1024 / 1024,
				"num_gc":   memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores satisfy interfaces at compile time.
var (
	_ domain.CatalogStore = (*store.CatalogStore)(nil)
	_ domain.CatalogStore = (*store.FileCatalogStore)(nil)
	_ domain.SessionStore = (*store.SessionStore)(nil)
	_ domain.SessionStore = (*store.MemorySessionStore)(nil)
)
