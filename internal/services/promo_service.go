// Package services – PromoService
//
// This file implements the PromoService, the discount engine behind promo
// code entry at checkout. It validates a code against the business rules in
// a fixed, short-circuiting order (existence → expiry → usage cap → minimum
// order) and computes the monetary discount for an order subtotal.
//
// Validation never mutates state: consuming a use of a capped code is a
// separate, atomically-conditioned update (Redeem) that runs inside the
// order-commit transaction. Two concurrent checkouts can both pass the
// advisory usage check for a code with one use left; exactly one of their
// commits will win the conditioned update and the other fails with
// ErrUsageLimitReached.
//
// Observability: public methods are OpenTelemetry-instrumented, and
// validation outcomes feed a Prometheus counter for dashboarding.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-food-backend/internal/domain"
)

// promoValidations counts validation outcomes by result label
// (ok, invalid_code, expired, usage_limit, below_minimum, error).
var promoValidations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "promo_validations_total",
		Help: "Total promo code validations by outcome.",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(promoValidations)
}

// hundred is the percentage divisor, hoisted to avoid re-parsing.
var hundred = decimal.NewFromInt(100)

// upperCaser normalizes promo codes without locale-specific case folding.
var upperCaser = cases.Upper(language.Und)

// PromoRepo defines the repository contract required by PromoService.
type PromoRepo interface {
	// GetActivePromo fetches the active row for a normalized code.
	GetActivePromo(ctx context.Context, db *gorm.DB, code string) (*domain.PromoCode, error)

	// IncrementUsage consumes one use with a conditioned update.
	IncrementUsage(ctx context.Context, db *gorm.DB, id string) error

	// CreatePromoCode inserts a new promo code row.
	CreatePromoCode(ctx context.Context, db *gorm.DB, p *domain.PromoCode) (*domain.PromoCode, error)
}

// PromoService validates promo codes and computes discounts. It is stateless
// apart from its injected dependencies and safe for concurrent use.
type PromoService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the promo repository used by this service.
	Repo PromoRepo

	// Now returns the current instant; overridable in tests. Nil means time.Now.
	Now func() time.Time
}

// NormalizeCode converts raw user input into the stored code form:
// surrounding whitespace trimmed and letters upper-cased.
func NormalizeCode(raw string) string {
	return upperCaser.String(strings.TrimSpace(raw))
}

// Validate checks a raw promo code against an order subtotal.
//
// Rules apply in a fixed, short-circuiting order; each earlier rule masks
// later ones:
//  1. Normalize the code and look up an active row → ErrInvalidCode on miss.
//  2. Expired (expires_at set and in the past) → ErrPromoExpired.
//  3. Usage cap reached (max_uses set, used_count ≥ max_uses) → ErrUsageLimitReached.
//  4. Subtotal below minimum → *BelowMinimumError carrying the threshold.
//
// On success the promo row is returned unmodified; Validate never consumes a
// use (see Redeem).
func (s *PromoService) Validate(ctx context.Context, rawCode string, subtotal decimal.Decimal) (*domain.PromoCode, error) {
	tr := otel.Tracer("services/PromoService")
	ctx, span := tr.Start(ctx, "Validate",
		trace.WithAttributes(attribute.String("promo.code", NormalizeCode(rawCode))),
	)
	defer span.End()

	code := NormalizeCode(rawCode)
	if code == "" {
		promoValidations.WithLabelValues("invalid_code").Inc()
		return nil, ErrInvalidCode
	}

	p, err := s.Repo.GetActivePromo(ctx, s.DB, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			promoValidations.WithLabelValues("invalid_code").Inc()
			return nil, ErrInvalidCode
		}
		promoValidations.WithLabelValues("error").Inc()
		return nil, err
	}

	now := s.now()
	if p.ExpiresAt != nil && p.ExpiresAt.Before(now) {
		promoValidations.WithLabelValues("expired").Inc()
		return nil, ErrPromoExpired
	}
	if p.MaxUses != nil && p.UsedCount >= *p.MaxUses {
		promoValidations.WithLabelValues("usage_limit").Inc()
		return nil, ErrUsageLimitReached
	}
	if subtotal.LessThan(p.MinOrder) {
		promoValidations.WithLabelValues("below_minimum").Inc()
		return nil, &BelowMinimumError{MinOrder: p.MinOrder}
	}

	promoValidations.WithLabelValues("ok").Inc()
	return p, nil
}

// ComputeDiscount returns the monetary discount a promo grants on subtotal.
//
//   - percentage: subtotal * discount_value / 100, rounded to 2 decimal
//     places half-up.
//   - fixed: min(discount_value, subtotal) so the resulting total can never
//     go negative.
//
// The result always satisfies 0 ≤ amount ≤ subtotal.
func (s *PromoService) ComputeDiscount(p *domain.PromoCode, subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.Sign() <= 0 {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch p.DiscountType {
	case domain.DiscountPercentage:
		amount = subtotal.Mul(p.DiscountValue).Div(hundred).Round(2)
	case domain.DiscountFixed:
		amount = p.DiscountValue
	default:
		return decimal.Zero
	}

	if amount.Sign() < 0 {
		return decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		return subtotal
	}
	return amount
}

// Redeem consumes one use of the promo inside the caller's transaction. A
// conditioned update keeps the used_count ≤ max_uses invariant under
// concurrent redemptions; when the cap was consumed between validation and
// commit, Redeem returns ErrUsageLimitReached and the caller must abort the
// whole order commit.
func (s *PromoService) Redeem(ctx context.Context, tx *gorm.DB, promoID string) error {
	if err := s.Repo.IncrementUsage(ctx, tx, promoID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUsageLimitReached
		}
		return err
	}
	return nil
}

// Create registers a new promo code after enforcing model invariants:
// non-blank code, known discount type, discount_value > 0, min_order ≥ 0,
// and a positive cap when one is set.
func (s *PromoService) Create(ctx context.Context, p *domain.PromoCode) (*domain.PromoCode, error) {
	tr := otel.Tracer("services/PromoService")
	ctx, span := tr.Start(ctx, "Create")
	defer span.End()

	p.Code = NormalizeCode(p.Code)
	if p.Code == "" {
		return nil, ErrInvalidPromoDefinition
	}
	switch p.DiscountType {
	case domain.DiscountPercentage, domain.DiscountFixed:
	default:
		return nil, ErrInvalidPromoDefinition
	}
	if p.DiscountValue.Sign() <= 0 || p.MinOrder.Sign() < 0 {
		return nil, ErrInvalidPromoDefinition
	}
	if p.MaxUses != nil && *p.MaxUses <= 0 {
		return nil, ErrInvalidPromoDefinition
	}
	p.IsActive = true
	created, err := s.Repo.CreatePromoCode(ctx, s.DB, p)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}
	return created, nil
}

func (s *PromoService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
