// Package services defines the business logic for promo codes, meals,
// availability generation, and order creation. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Promo-related errors.
var (
	// ErrInvalidCode indicates that no active promo code exists for the
	// normalized code the caller supplied.
	ErrInvalidCode = errors.New("invalid promo code")

	// ErrPromoExpired is returned when a promo code's expiry instant lies in
	// the past. It masks any later validation rule.
	ErrPromoExpired = errors.New("promo code expired")

	// ErrUsageLimitReached is returned when a capped promo code has no uses
	// left. It is produced both by the advisory check during validation and
	// by the conditioned update at order commit.
	ErrUsageLimitReached = errors.New("promo code usage limit reached")

	// ErrInvalidPromoDefinition is returned when an operator attempts to
	// create a promo code violating the model invariants (e.g., a
	// non-positive discount value or an unknown discount type).
	ErrInvalidPromoDefinition = errors.New("invalid promo code definition")

	// ErrDuplicateCode is returned when a promo code with the same
	// normalized code already exists.
	ErrDuplicateCode = errors.New("promo code already exists")
)

// BelowMinimumError is returned when an order subtotal does not reach a promo
// code's minimum. It carries the required minimum so callers can render it.
type BelowMinimumError struct {
	MinOrder decimal.Decimal
}

// Error implements the error interface.
func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("order subtotal below promo minimum of %s", e.MinOrder.StringFixed(2))
}

// Meal and order errors.
var (
	// ErrMealNotFound indicates the requested meal listing does not exist.
	ErrMealNotFound = errors.New("meal not found")

	// ErrInvalidMeal is returned when a vendor submits a meal that violates
	// basic shape rules (blank name, non-positive price, bad weekday set).
	ErrInvalidMeal = errors.New("invalid meal definition")

	// ErrDuplicateMeal is returned when a vendor already has a listing for
	// the same normalized name and day.
	ErrDuplicateMeal = errors.New("meal already listed for this day")

	// ErrMealUnavailable is returned when an order targets a listing that is
	// inactive or not live for the requested day.
	ErrMealUnavailable = errors.New("meal not available today")

	// ErrOutOfStock is returned when the conditioned stock decrement at
	// order commit finds fewer units than requested.
	ErrOutOfStock = errors.New("insufficient stock")

	// ErrInvalidQuantity is returned for order quantities < 1.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrSlotUnavailable is returned when the requested fulfillment slot is
	// not one of the valid slots for the meal's preparation time.
	ErrSlotUnavailable = errors.New("requested slot not available")
)
