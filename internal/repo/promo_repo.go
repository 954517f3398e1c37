// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the PromoCode
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a code is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Concurrency note: IncrementUsage is the single place used_count is
// mutated. It is a conditioned UPDATE so that concurrent redemptions of a
// capped code race safely at the storage level; callers run it inside the
// order-commit transaction.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-food-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreatePromoCode inserts a new promo code row. The caller is responsible
// for normalizing Code beforehand; the unique index on code is the final
// guard against duplicates.
func CreatePromoCode(ctx context.Context, db *gorm.DB, p *domain.PromoCode) (*domain.PromoCode, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetActivePromo fetches the active promo code row for the given normalized
// code. Inactive rows are invisible to this lookup; a miss returns
// ErrNotFound. Expiry and usage caps are business rules and are checked by
// the service layer, not here.
func GetActivePromo(ctx context.Context, db *gorm.DB, code string) (*domain.PromoCode, error) {
	var p domain.PromoCode
	err := db.WithContext(ctx).
		Where("code = ? AND is_active = ?", code, true).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// IncrementUsage atomically consumes one use of a promo code:
//
//	UPDATE promo_codes SET used_count = used_count + 1
//	WHERE id = ? AND is_active = true
//	  AND (max_uses IS NULL OR used_count < max_uses)
//
// If no row qualifies (cap already reached, code deactivated, or row gone)
// it returns ErrNotFound and the caller must fail its surrounding
// transaction. This is the authoritative guard against the validate/commit
// TOCTOU window; the advisory check in the service layer is only a fast path.
func IncrementUsage(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.PromoCode{}).
		Where("id = ? AND is_active = ? AND (max_uses IS NULL OR used_count < max_uses)", id, true).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
