// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Meal model
// (recurring templates and daily instances share one table).
//
// Functions:
//
//   - CreateMeal(ctx, db, meal) -> *domain.Meal, error
//     Inserts a vendor-authored row (template or one-off listing).
//
//   - ListActiveTemplates(ctx, db) -> []domain.Meal, error
//     Returns all active rows carrying a non-empty recurring-day set.
//
//   - InstanceExists(ctx, db, vendorID, nameKey, day) -> (bool, error)
//     Advisory existence probe on the dedup key.
//
//   - CreateInstance(ctx, db, inst) -> (created bool, err error)
//     Conflict-ignoring insert; the unique index on
//     (vendor_id, name_key, available_date) resolves concurrent duplicates.
//
//   - ListMealsForDay / CountMealsForDay
//     Paginated customer-facing listing of a day's live meals.
//
//   - GetMeal(ctx, db, id) -> *domain.Meal, error
//     Fetches a single row by ID, or ErrNotFound.
//
//   - DecrementStock(ctx, db, id, qty) -> error
//     Conditioned stock decrement used inside the order-commit transaction.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-food-backend/internal/domain"
)

// CreateMeal inserts a vendor-authored meal row. The meal ID is a randomly
// generated UUID (string), and CreatedAt is set to UTC. The caller fills
// NameKey; the composite unique index rejects a duplicate listing for the
// same vendor, normalized name, and day.
func CreateMeal(ctx context.Context, db *gorm.DB, m *domain.Meal) (*domain.Meal, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// ListActiveTemplates returns all active meals that declare at least one
// recurring weekday, ordered by vendor then name for deterministic job
// processing. Weekday membership is evaluated by the caller; the CSV set
// column is not queryable with a portable predicate.
func ListActiveTemplates(ctx context.Context, db *gorm.DB) ([]domain.Meal, error) {
	var out []domain.Meal
	err := db.WithContext(ctx).
		Where("is_active = ? AND recurring_days <> ''", true).
		Order("vendor_id, name_key").
		Find(&out).Error
	return out, err
}

// InstanceExists reports whether a row already occupies the dedup key
// (vendorID, nameKey, day). This probe is advisory: two concurrent job runs
// can both see false before either inserts, which is why CreateInstance
// ignores conflicts instead of trusting this answer.
func InstanceExists(ctx context.Context, db *gorm.DB, vendorID, nameKey string, day time.Time) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Meal{}).
		Where("vendor_id = ? AND name_key = ? AND available_date = ?", vendorID, nameKey, day).
		Count(&n).Error
	return n > 0, err
}

// CreateInstance inserts a generated daily listing with ignore-on-conflict
// semantics against ux_meals_vendor_name_day. It returns created=false when
// another writer (a concurrent or earlier run) already materialized the same
// listing; that outcome is a no-op, not an error.
func CreateInstance(ctx context.Context, db *gorm.DB, inst *domain.Meal) (bool, error) {
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	inst.CreatedAt = time.Now().UTC()
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vendor_id"}, {Name: "name_key"}, {Name: "available_date"}},
			DoNothing: true,
		}).
		Create(inst)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CountMealsForDay returns the number of live listings for the given day.
func CountMealsForDay(ctx context.Context, db *gorm.DB, day time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Meal{}).
		Where("available_date = ? AND is_active = ?", day, true).
		Count(&total).Error
	return total, err
}

// ListMealsForDay returns a paginated slice of the day's live listings,
// ordered by vendor and name. Use CountMealsForDay to obtain the total for
// pagination metadata.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListMealsForDay(ctx context.Context, db *gorm.DB, day time.Time, offset, limit int) ([]domain.Meal, error) {
	var out []domain.Meal
	err := db.WithContext(ctx).
		Where("available_date = ? AND is_active = ?", day, true).
		Order("vendor_id, name_key").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetMeal fetches a single meal by ID, or ErrNotFound if missing.
func GetMeal(ctx context.Context, db *gorm.DB, id string) (*domain.Meal, error) {
	var m domain.Meal
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// DecrementStock atomically reserves qty units of a listing:
//
//	UPDATE meals SET stock = stock - ? WHERE id = ? AND stock >= ?
//
// Zero rows affected means insufficient stock (or a missing row) and is
// reported as ErrNotFound; the caller decides how to surface it.
func DecrementStock(ctx context.Context, db *gorm.DB, id string, qty int) error {
	res := db.WithContext(ctx).
		Model(&domain.Meal{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
