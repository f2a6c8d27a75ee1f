package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/veracity-ai/veracity/internal/api/handlers"
	mw "github.com/veracity-ai/veracity/internal/api/middleware"
	"github.com/veracity-ai/veracity/internal/config"
	"github.com/veracity-ai/veracity/internal/domain"
	"github.com/veracity-ai/veracity/internal/service"
	"github.com/veracity-ai/veracity/internal/store"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router   *chi.Mux
	Sessions *service.SessionService
	Reaper   *service.ReaperService

	db           *pgxpool.Pool
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// NewApp wires stores, services, and handlers into a router. db may be
// nil; then closed sessions are not archived and /health reports the
// audit store as disabled.
func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	var ledgerStore domain.LedgerStore
	if db != nil {
		ledgerStore = store.NewLedgerStore(db)
	}

	// Services
	sessionSvc := service.NewSessionService(ledgerStore, logger)
	reaperSvc := service.NewReaperService(sessionSvc, logger)
	reaperSvc.SetIdleTTL(config.SessionIdleTTL())
	extractor := service.NewClaimExtractor()
	generator := service.NewGroundedGenerator(logger)
	gate := service.NewStrategyGate()
	policy := service.NewMinimalCommitmentPolicy()

	// Handlers
	sessionHandler := handlers.NewSessionHandler(sessionSvc)
	observationHandler := handlers.NewObservationHandler(sessionSvc)
	claimHandler := handlers.NewClaimHandler(sessionSvc, extractor)
	answerHandler := handlers.NewAnswerHandler(sessionSvc, extractor, generator)
	strategyHandler := handlers.NewStrategyHandler(sessionSvc, gate, policy)
	cognitiveHandler := handlers.NewCognitiveHandler(sessionSvc, gate)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Sessions:  sessionSvc,
		Reaper:    reaperSvc,
		db:        db,
		startTime: time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", app.healthHandler())
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Close)

				// Evidence ledger
				r.Route("/observations", func(r chi.Router) {
					r.Post("/", observationHandler.Add)
					r.Get("/context", observationHandler.Context)
					r.Get("/expired", observationHandler.Expired)
				})

				// Claims
				r.Route("/claims", func(r chi.Router) {
					r.Post("/extract", claimHandler.Extract)
					r.Get("/{claimID}/audit", claimHandler.Audit)
				})

				// Grounded generation
				r.Post("/answer", answerHandler.Generate)

				// Strategy gate and tool policy
				r.Post("/strategy", strategyHandler.Evaluate)
				r.Post("/tools/rank", strategyHandler.RankTools)

				// Cognitive state
				r.Route("/cognitive", func(r chi.Router) {
					r.Get("/", cognitiveHandler.GetState)
					r.Post("/events", cognitiveHandler.RecordEvent)
				})
			})
		})
	})

	return app
}

// NewRouter returns just the chi.Mux.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func (app *App) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"status":      "ok",
			"sessions":    app.Sessions.Count(),
			"audit_store": "disabled",
		}

		if app.db != nil {
			resp["audit_store"] = "ok"
			if err := app.db.Ping(r.Context()); err != nil {
				// Sessions still work without the archive; degraded, not dead.
				resp["status"] = "degraded"
				resp["audit_store"] = "error: " + err.Error()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds":  uptime.Seconds(),
			"uptime_human":    uptime.Round(time.Second).String(),
			"request_count":   app.requestCount.Load(),
			"error_count":     app.errorCount.Load(),
			"active_sessions": app.Sessions.Count(),
			"goroutines":      runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}
