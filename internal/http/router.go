// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-food-backend/internal/config"
	"github.com/tbourn/go-food-backend/internal/domain"
	"github.com/tbourn/go-food-backend/internal/http/handlers"
	"github.com/tbourn/go-food-backend/internal/http/middleware"
	"github.com/tbourn/go-food-backend/internal/repo"
	"github.com/tbourn/go-food-backend/internal/services"
	"github.com/tbourn/go-food-backend/internal/slots"
)

// promoRepoShim adapts the repository free functions to the services.PromoRepo
// interface expected by the PromoService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type promoRepoShim struct{}

// GetActivePromo proxies repo.GetActivePromo.
func (promoRepoShim) GetActivePromo(ctx context.Context, db *gorm.DB, code string) (*domain.PromoCode, error) {
	return repo.GetActivePromo(ctx, db, code)
}

// IncrementUsage proxies repo.IncrementUsage.
func (promoRepoShim) IncrementUsage(ctx context.Context, db *gorm.DB, id string) error {
	return repo.IncrementUsage(ctx, db, id)
}

// CreatePromoCode proxies repo.CreatePromoCode.
func (promoRepoShim) CreatePromoCode(ctx context.Context, db *gorm.DB, p *domain.PromoCode) (*domain.PromoCode, error) {
	return repo.CreatePromoCode(ctx, db, p)
}

// mealRepoShim adapts the meal repository free functions for both the
// availability job (services.MealRepo) and the meal service (services.MealStore).
type mealRepoShim struct{}

// ListActiveTemplates proxies repo.ListActiveTemplates.
func (mealRepoShim) ListActiveTemplates(ctx context.Context, db *gorm.DB) ([]domain.Meal, error) {
	return repo.ListActiveTemplates(ctx, db)
}

// InstanceExists proxies repo.InstanceExists.
func (mealRepoShim) InstanceExists(ctx context.Context, db *gorm.DB, vendorID, nameKey string, day time.Time) (bool, error) {
	return repo.InstanceExists(ctx, db, vendorID, nameKey, day)
}

// CreateInstance proxies repo.CreateInstance.
func (mealRepoShim) CreateInstance(ctx context.Context, db *gorm.DB, inst *domain.Meal) (bool, error) {
	return repo.CreateInstance(ctx, db, inst)
}

// CreateMeal proxies repo.CreateMeal.
func (mealRepoShim) CreateMeal(ctx context.Context, db *gorm.DB, m *domain.Meal) (*domain.Meal, error) {
	return repo.CreateMeal(ctx, db, m)
}

// CountMealsForDay proxies repo.CountMealsForDay.
func (mealRepoShim) CountMealsForDay(ctx context.Context, db *gorm.DB, day time.Time) (int64, error) {
	return repo.CountMealsForDay(ctx, db, day)
}

// ListMealsForDay proxies repo.ListMealsForDay.
func (mealRepoShim) ListMealsForDay(ctx context.Context, db *gorm.DB, day time.Time, offset, limit int) ([]domain.Meal, error) {
	return repo.ListMealsForDay(ctx, db, day, offset, limit)
}

// runRepoShim adapts the generation-run repository free functions to
// services.RunRepo.
type runRepoShim struct{}

// RecordRun proxies repo.RecordRun.
func (runRepoShim) RecordRun(ctx context.Context, db *gorm.DB, day time.Time, weekday, generated, failed int, triggerKey string) (*domain.GenerationRun, error) {
	return repo.RecordRun(ctx, db, day, weekday, generated, failed, triggerKey)
}

// LatestRun proxies repo.LatestRun.
func (runRepoShim) LatestRun(ctx context.Context, db *gorm.DB) (*domain.GenerationRun, error) {
	return repo.LatestRun(ctx, db)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key", // project-specific sensitive header example
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting). A replayed
	// Idempotency-Key is one that already tagged a generation run today.
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, _ string, key string, now time.Time) (bool, error) {
			rec, err := repo.GetRunByTriggerKey(ctx, db, key, services.DayOf(now))
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (off by default)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	promoSvc := &services.PromoService{DB: db, Repo: promoRepoShim{}}
	mealSvc := &services.MealService{DB: db, Repo: mealRepoShim{}, SearchLimit: cfg.SearchLimit}
	orderSvc := &services.OrderService{
		DB:     db,
		Promos: promoSvc,
		SlotOpts: []slots.Option{
			slots.WithDayBoundary(cfg.DayBoundaryHour, cfg.DayBoundaryMinute),
		},
	}
	availSvc := &services.AvailabilityService{DB: db, Meals: mealRepoShim{}, Runs: runRepoShim{}}

	h := handlers.New(mealSvc, promoSvc, orderSvc, availSvc,
		slots.WithDayBoundary(cfg.DayBoundaryHour, cfg.DayBoundaryMinute))

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Slots
		api.GET("/slots", h.ListSlots)

		// Meals
		api.POST("/vendors/:id/meals", h.CreateMeal)
		api.GET("/meals", h.ListMeals)
		api.GET("/meals/search", h.SearchMeals)

		// Promos
		api.POST("/promos", h.CreatePromo)
		api.POST("/promos/validate", h.ValidatePromo)

		// Orders
		api.POST("/orders", h.CreateOrder)

		// Daily availability job
		api.POST("/jobs/daily-availability", h.RunDailyAvailability)
		api.GET("/jobs/daily-availability/latest", h.LatestRun)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
