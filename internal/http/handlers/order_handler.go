// Order HTTP handler.
//
// This file exposes the order creation endpoint:
//   - POST /orders
//
// Order creation is the single write path that consumes stock and promo
// uses; both happen atomically inside the service-level transaction. A promo
// that validated moments earlier can still lose the commit race — that case
// surfaces as 409 usage_limit_reached and the client re-prompts.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-food-backend/internal/services"
)

// CreateOrderRequest is the JSON payload for committing an order.
type CreateOrderRequest struct {
	MealID   string `json:"meal_id" binding:"required" example:"fa4dfbe0-c3bf-47bd-b32f-d7de221cf43b"`
	Quantity int    `json:"quantity" binding:"required,min=1" example:"2"`
	// SlotAt is the chosen fulfillment slot in RFC 3339 form; it must be one
	// of the slots currently offered for the meal's preparation time.
	SlotAt    time.Time `json:"slot_at" binding:"required" example:"2025-03-10T15:00:00Z"`
	PromoCode string    `json:"promo_code,omitempty" example:"WELCOME10"`
}

// CreateOrder godoc
// @ID          createOrder
// @Summary     Create an order
// @Description Commits an order: reserves stock, applies and consumes the promo code, and records the fulfillment slot — all in one transaction.
// @Tags        Orders
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.CreateOrderRequest true "Order payload"
//
// @Success     201  {object}  domain.Order
// @Failure     400  {object}  handlers.ErrorResponse "Bad payload, bad slot, or below_minimum promo"
// @Failure     404  {object}  handlers.ErrorResponse "Meal or promo code not found"
// @Failure     409  {object}  handlers.ErrorResponse "Out of stock or promo usage limit reached"
// @Failure     410  {object}  handlers.ErrorResponse "Promo expired"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /orders [post]
func (h *Handlers) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "meal_id, quantity and slot_at required")
		return
	}

	order, err := h.orderSvc.Create(c.Request.Context(), services.CreateOrderInput{
		UserID:    userID(c),
		MealID:    req.MealID,
		Quantity:  req.Quantity,
		SlotAt:    req.SlotAt,
		PromoCode: req.PromoCode,
	})
	if err != nil {
		var below *services.BelowMinimumError
		switch {
		case errors.Is(err, services.ErrInvalidQuantity):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrMealNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "meal not found")
		case errors.Is(err, services.ErrMealUnavailable):
			fail(c, http.StatusConflict, ErrCodeMealUnavailable, err.Error())
		case errors.Is(err, services.ErrSlotUnavailable):
			fail(c, http.StatusBadRequest, ErrCodeSlotUnavailable, err.Error())
		case errors.Is(err, services.ErrOutOfStock):
			fail(c, http.StatusConflict, ErrCodeOutOfStock, err.Error())
		case errors.Is(err, services.ErrInvalidCode):
			fail(c, http.StatusNotFound, ErrCodeInvalidCode, "promo code not found")
		case errors.Is(err, services.ErrPromoExpired):
			fail(c, http.StatusGone, ErrCodePromoExpired, "promo code expired")
		case errors.Is(err, services.ErrUsageLimitReached):
			fail(c, http.StatusConflict, ErrCodeUsageLimitReached, "promo code usage limit reached")
		case errors.As(err, &below):
			failWith(c, http.StatusBadRequest, ErrorResponse{
				Code:     ErrCodeBelowMinimum,
				Message:  below.Error(),
				MinOrder: below.MinOrder.StringFixed(2),
			})
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	ok(c, http.StatusCreated, order)
}
