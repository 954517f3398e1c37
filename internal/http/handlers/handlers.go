// Handler wiring shared by all endpoint files.
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Service dependencies are injected
// as narrow interfaces so transport concerns stay separate from business logic.
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-food-backend/internal/domain"
	"github.com/tbourn/go-food-backend/internal/search"
	"github.com/tbourn/go-food-backend/internal/services"
	"github.com/tbourn/go-food-backend/internal/slots"
	"github.com/tbourn/go-food-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// MealService defines meal listing operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type MealService interface {
	// Create validates and persists a vendor-submitted meal.
	Create(ctx context.Context, m *domain.Meal) (*domain.Meal, error)
	// ListDay returns a page of a day's live listings and the total count.
	ListDay(ctx context.Context, day time.Time, page, pageSize int) ([]domain.Meal, int64, error)
	// Search ranks the day's listings against a free-text query.
	Search(ctx context.Context, day time.Time, query string) ([]search.Result, error)
}

// PromoService defines promo validation operations consumed by HTTP handlers.
// Redemption is not exposed over HTTP; it happens only inside order commit.
type PromoService interface {
	// Validate checks a raw code against an order subtotal.
	Validate(ctx context.Context, rawCode string, subtotal decimal.Decimal) (*domain.PromoCode, error)
	// ComputeDiscount returns the monetary discount a promo grants.
	ComputeDiscount(p *domain.PromoCode, subtotal decimal.Decimal) decimal.Decimal
	// Create registers a new promo code (back-office).
	Create(ctx context.Context, p *domain.PromoCode) (*domain.PromoCode, error)
}

// OrderService defines order creation consumed by HTTP handlers.
type OrderService interface {
	// Create validates and commits an order atomically.
	Create(ctx context.Context, in services.CreateOrderInput) (*domain.Order, error)
}

// AvailabilityService defines the daily generation job trigger.
type AvailabilityService interface {
	// Run materializes today's listings from recurring templates.
	Run(ctx context.Context, today time.Time, triggerKey string) (*services.RunResult, error)
	// LatestRun reports the most recently recorded execution.
	LatestRun(ctx context.Context) (*domain.GenerationRun, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for meals, promos, slots, orders, and the
// availability job.
type Handlers struct {
	mealSvc  MealService
	promoSvc PromoService
	orderSvc OrderService
	availSvc AvailabilityService

	// slotOpts configure slot generation (e.g. a non-default day boundary).
	slotOpts []slots.Option
}

// New constructs and returns a Handlers instance bound to the given services.
// Optional slot options override the defaults used by GET /slots.
func New(mealSvc MealService, promoSvc PromoService, orderSvc OrderService, availSvc AvailabilityService, slotOpts ...slots.Option) *Handlers {
	return &Handlers{mealSvc: mealSvc, promoSvc: promoSvc, orderSvc: orderSvc, availSvc: availSvc, slotOpts: slotOpts}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// Shared DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
