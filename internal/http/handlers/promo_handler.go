// Promo code HTTP handlers.
//
// This file exposes the promo endpoints:
//   - POST /promos           (create a code; back-office use)
//   - POST /promos/validate  (validate a code against a subtotal)
//
// Validation is read-only; the code's usage count is only consumed inside
// the order-commit transaction. Business rejections are surfaced verbatim
// with stable codes so the client can prompt for a different code or a
// larger order.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-food-backend/internal/domain"
	"github.com/tbourn/go-food-backend/internal/services"
)

// CreatePromoRequest is the JSON payload for registering a promo code.
type CreatePromoRequest struct {
	Code string `json:"code" binding:"required,min=1,max=64" example:"WELCOME10"`
	// DiscountType is either "percentage" or "fixed".
	DiscountType string `json:"discount_type" binding:"required" example:"percentage"`
	// DiscountValue is a percent for percentage codes and a money amount for
	// fixed codes, as a decimal string.
	DiscountValue string `json:"discount_value" binding:"required" example:"10"`
	// MinOrder is the minimum subtotal the code applies to. Defaults to 0.
	MinOrder string `json:"min_order,omitempty" example:"20.00"`
	// MaxUses caps total redemptions; omit for unlimited.
	MaxUses   *int       `json:"max_uses,omitempty" example:"100"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" example:"2025-12-31T23:59:59Z"`
}

// CreatePromo godoc
// @ID          createPromo
// @Summary     Create a promo code
// @Description Registers a new promo code. Intended for back-office use.
// @Tags        Promos
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreatePromoRequest true "Promo definition"
//
// @Success     201  {object}  domain.PromoCode
// @Failure     400  {object}  handlers.ErrorResponse "Bad payload or invalid definition"
// @Failure     409  {object}  handlers.ErrorResponse "Code already exists"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /promos [post]
func (h *Handlers) CreatePromo(c *gin.Context) {
	var req CreatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "code, discount_type and discount_value required")
		return
	}
	value, err := decimal.NewFromString(req.DiscountValue)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "discount_value must be a decimal string")
		return
	}
	minOrder := decimal.Zero
	if req.MinOrder != "" {
		if minOrder, err = decimal.NewFromString(req.MinOrder); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "min_order must be a decimal string")
			return
		}
	}

	promo, err := h.promoSvc.Create(c.Request.Context(), &domain.PromoCode{
		Code:          req.Code,
		DiscountType:  req.DiscountType,
		DiscountValue: value,
		MinOrder:      minOrder,
		MaxUses:       req.MaxUses,
		ExpiresAt:     req.ExpiresAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPromoDefinition):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid promo definition")
		case errors.Is(err, services.ErrDuplicateCode):
			fail(c, http.StatusConflict, ErrCodeConflict, "promo code already exists")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, promo)
}

// ValidatePromoRequest is the JSON payload for promo validation.
type ValidatePromoRequest struct {
	// Code is the raw voucher code as typed by the customer.
	Code string `json:"code" binding:"required,min=1,max=64" example:"WELCOME10"`
	// Subtotal is the current order subtotal as a decimal string.
	Subtotal string `json:"subtotal" binding:"required" example:"40.00"`
}

// ValidatePromoResponse reports a successful validation together with the
// discount the code would grant on the submitted subtotal.
type ValidatePromoResponse struct {
	Valid    bool              `json:"valid" example:"true"`
	Promo    *domain.PromoCode `json:"promo"`
	Discount string            `json:"discount" example:"4.00"`
}

// ValidatePromo godoc
// @ID          validatePromo
// @Summary     Validate a promo code
// @Description Checks a promo code against the order subtotal and returns the discount it would grant. Does not consume a use.
// @Tags        Promos
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ValidatePromoRequest true "Validation payload"
//
// @Success     200  {object}  handlers.ValidatePromoResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad payload or below_minimum (carries min_order)"
// @Failure     404  {object}  handlers.ErrorResponse "Unknown code"
// @Failure     410  {object}  handlers.ErrorResponse "Expired code"
// @Failure     409  {object}  handlers.ErrorResponse "Usage limit reached"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /promos/validate [post]
func (h *Handlers) ValidatePromo(c *gin.Context) {
	var req ValidatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "code and subtotal required")
		return
	}
	subtotal, err := decimal.NewFromString(req.Subtotal)
	if err != nil || subtotal.Sign() < 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "subtotal must be a non-negative decimal string")
		return
	}

	promo, err := h.promoSvc.Validate(c.Request.Context(), req.Code, subtotal)
	if err != nil {
		var below *services.BelowMinimumError
		switch {
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
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	discount := h.promoSvc.ComputeDiscount(promo, subtotal)
	ok(c, http.StatusOK, ValidatePromoResponse{
		Valid:    true,
		Promo:    promo,
		Discount: discount.StringFixed(2),
	})
}
