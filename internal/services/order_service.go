// Package services – OrderService
//
// This file implements order creation, the single write path that ties the
// other core components together. One transaction covers the stock check and
// decrement, discount computation, conditional promo redemption, and the
// order insert, so every invariant holds even under concurrent checkouts:
//
//   - stock can never go negative (conditioned decrement);
//   - used_count can never exceed max_uses (conditioned increment) — a promo
//     that passed validation but lost the race at commit fails the whole
//     transaction with ErrUsageLimitReached, prompting the caller to
//     re-prompt the customer;
//   - the requested fulfillment slot must be one of the slots the generator
//     would offer right now for the meal's preparation time.
//
// Later lifecycle transitions (acceptance, delivery, cancellation) are out
// of scope; orders are created in status "created" and handed off.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-food-backend/internal/domain"
	"github.com/tbourn/go-food-backend/internal/repo"
	"github.com/tbourn/go-food-backend/internal/slots"
)

// OrderService commits customer orders atomically.
type OrderService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Promos validates and redeems promo codes; optional promo-less orders
	// never touch it.
	Promos *PromoService

	// SlotOpts configure the generator used for slot validation, typically a
	// slots.WithDayBoundary built from config. Empty means the generator
	// defaults (21:00 boundary).
	SlotOpts []slots.Option

	// Now returns the current instant; overridable in tests. Nil means time.Now.
	Now func() time.Time
}

// CreateOrderInput carries the order parameters collected at checkout.
type CreateOrderInput struct {
	UserID    string
	MealID    string
	Quantity  int
	SlotAt    time.Time
	PromoCode string // optional, raw user input
}

// Create validates and commits an order.
//
// Validation outside the transaction: quantity ≥ 1, the meal exists, is
// active and live today, and SlotAt matches a currently offered slot for the
// meal's preparation time. Inside the transaction: conditioned stock
// decrement, promo validation against the computed subtotal, conditional
// redemption, and the insert. Any step failing rolls back the whole commit.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("user.id", in.UserID),
			attribute.String("meal.id", in.MealID),
		),
	)
	defer span.End()

	if in.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	now := s.now()
	meal, err := repo.GetMeal(ctx, s.DB, in.MealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMealNotFound
		}
		return nil, err
	}
	if !meal.IsActive || !DayOf(meal.AvailableDate).Equal(DayOf(now)) {
		return nil, ErrMealUnavailable
	}
	if !s.slotOffered(meal.PrepTimeMinutes, now, in.SlotAt) {
		return nil, ErrSlotUnavailable
	}

	subtotal := meal.Price.Mul(decimal.NewFromInt(int64(in.Quantity)))

	var promo *domain.PromoCode
	if in.PromoCode != "" {
		if s.Promos == nil {
			return nil, ErrInvalidCode
		}
		promo, err = s.Promos.Validate(ctx, in.PromoCode, subtotal)
		if err != nil {
			return nil, err
		}
	}

	var order *domain.Order
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) Reserve stock; fails when fewer units remain than requested.
		if err := repo.DecrementStock(ctx, tx, meal.ID, in.Quantity); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOutOfStock
			}
			return err
		}

		// 2) Consume the promo use in the same transaction as the order.
		discount := decimal.Zero
		var promoID *string
		if promo != nil {
			if err := s.Promos.Redeem(ctx, tx, promo.ID); err != nil {
				return err
			}
			discount = s.Promos.ComputeDiscount(promo, subtotal)
			promoID = &promo.ID
		}

		// 3) Insert the order with denormalized money fields.
		o := &domain.Order{
			ID:          uuid.NewString(),
			UserID:      in.UserID,
			MealID:      meal.ID,
			Quantity:    in.Quantity,
			Subtotal:    subtotal,
			Discount:    discount,
			Total:       subtotal.Sub(discount),
			PromoCodeID: promoID,
			SlotAt:      in.SlotAt,
			Status:      "created",
			CreatedAt:   now,
		}
		if err := tx.Create(o).Error; err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// slotOffered reports whether want is one of the slots currently offered for
// the given preparation time.
func (s *OrderService) slotOffered(prepMinutes int, now, want time.Time) bool {
	for _, sl := range slots.Generate(prepMinutes, now, s.SlotOpts...) {
		if sl.Value.Equal(want) {
			return true
		}
	}
	return false
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
