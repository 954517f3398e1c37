// Meal HTTP handlers.
//
// This file exposes REST endpoints for meal listings:
//   - POST /vendors/{id}/meals   (vendor creates a template or one-off listing)
//   - GET  /meals                (today's menu, paginated, ETag support)
//   - GET  /meals/search         (free-text search over today's menu)
package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-food-backend/internal/domain"
	"github.com/tbourn/go-food-backend/internal/repo"
	"github.com/tbourn/go-food-backend/internal/services"
)

//
// DTOs
//

// CreateMealRequest is the JSON payload a vendor submits for a new listing.
// A non-empty recurring_days set makes the row a template that the daily
// availability job materializes on matching weekdays.
type CreateMealRequest struct {
	Name            string  `json:"name" binding:"required,min=1,max=120" example:"Pad Thai"`
	Description     string  `json:"description" example:"Rice noodles, peanuts, lime"`
	Price           string  `json:"price" binding:"required" example:"11.50"`
	ImageURL        string  `json:"image_url,omitempty" example:"https://cdn.example.com/padthai.jpg"`
	FulfilmentType  string  `json:"fulfilment_type,omitempty" example:"pickup"`
	PrepTimeMinutes int     `json:"prep_time_minutes,omitempty" example:"30"`
	RecurringDays   []int   `json:"recurring_days,omitempty" example:"1,3,5"`
	AvailableDate   *string `json:"available_date,omitempty" example:"2025-03-10"`
	MaxStock        int     `json:"max_stock" example:"25"`
}

// ListMealsResponse wraps a page of meals and pagination information.
type ListMealsResponse struct {
	Meals      []domain.Meal `json:"meals"`
	Pagination Pagination    `json:"pagination"`
}

//
// Handlers
//

// CreateMeal godoc
// @ID          createMeal
// @Summary     Create a meal listing or template
// @Description Creates a meal for the vendor. With recurring_days set, the row is a weekly template picked up by the daily availability job.
// @Tags        Meals
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Vendor ID"  example(vendor-42)
// @Param       body  body  handlers.CreateMealRequest true "Meal payload"
//
// @Success     201  {object}  domain.Meal
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse "Duplicate listing for this day"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /vendors/{id}/meals [post]
func (h *Handlers) CreateMeal(c *gin.Context) {
	vendorID := strings.TrimSpace(c.Param("id"))
	if vendorID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "vendor id required")
		return
	}

	var req CreateMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "price must be a decimal string")
		return
	}

	day := time.Now()
	if req.AvailableDate != nil {
		day, err = time.Parse("2006-01-02", *req.AvailableDate)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "available_date must be YYYY-MM-DD")
			return
		}
	}

	meal := &domain.Meal{
		VendorID:        vendorID,
		Name:            req.Name,
		Description:     req.Description,
		Price:           price,
		ImageURL:        req.ImageURL,
		FulfilmentType:  req.FulfilmentType,
		PrepTimeMinutes: req.PrepTimeMinutes,
		RecurringDays:   domain.WeekdaySet(req.RecurringDays),
		AvailableDate:   day,
		MaxStock:        req.MaxStock,
	}

	created, err := h.mealSvc.Create(c.Request.Context(), meal)
	if err != nil {
		switch err {
		case services.ErrInvalidMeal:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case services.ErrDuplicateMeal:
			fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, created)
}

// ListMeals godoc
// @ID          listMeals
// @Summary     List a day's live meals (paginated)
// @Description Returns a page of live listings for the given day (default today). Supports weak ETag via If-None-Match and may return 304.
// @Tags        Meals
// @Produce     json
//
// @Param       date           query   string  false "Day (YYYY-MM-DD), default today" example(2025-03-10)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"      example(W/\"abc123\")
// @Param       page           query   int     false "Page number"    minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListMealsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /meals [get]
func (h *Handlers) ListMeals(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	day := time.Now()
	if q := c.Query("date"); q != "" {
		var err error
		day, err = time.Parse("2006-01-02", q)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}
	day = services.DayOf(day)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, isConcrete := h.mealSvc.(*services.MealService); isConcrete {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.MealsStats(ctx, db, day)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"meals:%s:%d:%d"`, day.Format("2006-01-02"), count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.mealSvc.ListDay(ctx, day, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	resp := ListMealsResponse{
		Meals: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
	ok(c, http.StatusOK, resp)
}

// SearchMeals godoc
// @ID          searchMeals
// @Summary     Search today's menu
// @Description Ranks today's live listings against a free-text query.
// @Tags        Meals
// @Produce     json
//
// @Param       q  query  string  true  "Search query"  example(noodles)
//
// @Success     200  {array}   search.Result
// @Failure     400  {object}  handlers.ErrorResponse "Missing query"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /meals/search [get]
func (h *Handlers) SearchMeals(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query parameter q required")
		return
	}

	results, err := h.mealSvc.Search(c.Request.Context(), time.Now(), q)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, results)
}
