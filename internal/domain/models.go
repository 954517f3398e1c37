// Package domain defines the persistence models for promo codes, meals, and
// orders. These types are mapped with GORM and form the core data layer of
// the food-ordering backend.
package domain

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Discount types accepted for a PromoCode.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Fulfilment types accepted for a Meal.
const (
	FulfilmentPickup   = "pickup"
	FulfilmentDelivery = "delivery"
	FulfilmentBoth     = "both"
)

// PromoCode represents a promotional discount voucher with eligibility rules.
// The code itself is stored normalized (uppercase, trimmed) and is unique.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Code: normalized voucher code; unique lookup key.
//   - DiscountType: "percentage" or "fixed" (enforced by DB constraint).
//   - DiscountValue: percentage points or a fixed monetary amount; always > 0.
//   - MinOrder: minimum order subtotal required to redeem the code.
//   - MaxUses: optional global usage cap; nil means unlimited.
//   - UsedCount: number of committed redemptions; only ever mutated by the
//     order-commit transaction via a conditioned update, never by validation.
//   - ExpiresAt: optional expiry instant; nil means the code never expires.
//   - IsActive: soft on/off switch owned by operators.
type PromoCode struct {
	ID            string          `json:"id"             gorm:"type:char(36);primaryKey"`
	Code          string          `json:"code"           gorm:"type:varchar(64);not null;uniqueIndex:ux_promo_code"`
	DiscountType  string          `json:"discount_type"  gorm:"type:varchar(16);not null;check:discount_type IN ('percentage','fixed')"`
	DiscountValue decimal.Decimal `json:"discount_value" gorm:"type:decimal(10,2);not null"`
	MinOrder      decimal.Decimal `json:"min_order"      gorm:"type:decimal(10,2);not null;default:0"`
	MaxUses       *int            `json:"max_uses,omitempty"`
	UsedCount     int             `json:"used_count"     gorm:"not null;default:0"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	IsActive      bool            `json:"is_active"      gorm:"not null;index"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName returns the database table name for PromoCode.
func (PromoCode) TableName() string { return "promo_codes" }

// WeekdaySet is a set of weekdays (0=Sunday .. 6=Saturday) stored as a
// comma-separated TEXT column, e.g. "1,3,5". The zero value is the empty set.
type WeekdaySet []int

// Contains reports whether the set includes the given weekday.
func (w WeekdaySet) Contains(day int) bool {
	for _, d := range w {
		if d == day {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer, serializing the set as sorted CSV.
func (w WeekdaySet) Value() (driver.Value, error) {
	if len(w) == 0 {
		return "", nil
	}
	days := make([]int, len(w))
	copy(days, w)
	sort.Ints(days)
	parts := make([]string, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("weekday out of range: %d", d)
		}
		parts = append(parts, strconv.Itoa(d))
	}
	return strings.Join(parts, ","), nil
}

// Scan implements sql.Scanner, parsing the CSV column representation.
func (w *WeekdaySet) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*w = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into WeekdaySet", src)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*w = nil
		return nil
	}
	parts := strings.Split(s, ",")
	out := make(WeekdaySet, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || d < 0 || d > 6 {
			return fmt.Errorf("invalid weekday %q in set", p)
		}
		out = append(out, d)
	}
	*w = out
	return nil
}

// GormDataType tells GORM to map WeekdaySet to a TEXT column.
func (WeekdaySet) GormDataType() string { return "text" }

// Meal represents a vendor's meal offering. A single table holds both the
// vendor-managed recurring templates and the per-day instances materialized
// from them; a row is today's listing when AvailableDate equals the day it
// was generated for.
//
// Identity invariant: at most one live row may exist per
// (vendor_id, name_key, available_date). This composite unique index is the
// authoritative dedup guard for the daily generation job; the application
// level existence check is only a fast path.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - VendorID: owning vendor; indexed for vendor-scoped queries.
//   - Name: display name as entered by the vendor.
//   - NameKey: normalized name (lowercased, whitespace collapsed); part of
//     the dedup key so "Pad  Thai" and "pad thai" cannot coexist as separate
//     listings for the same vendor and day.
//   - RecurringDays: weekdays the template recurs on; empty for one-off
//     listings and generated instances.
//   - AvailableDate: the calendar day this row is (or was) live for.
//   - Stock / MaxStock: remaining and full daily stock.
//   - PrepTimeMinutes: minutes needed before an order can be ready; feeds
//     fulfillment slot generation.
type Meal struct {
	ID              string          `json:"id"                gorm:"type:char(36);primaryKey"`
	VendorID        string          `json:"vendor_id"         gorm:"type:varchar(64);not null;index:idx_vendor_meals;uniqueIndex:ux_meals_vendor_name_day,priority:1"`
	Name            string          `json:"name"              gorm:"type:varchar(120);not null"`
	NameKey         string          `json:"-"                 gorm:"type:varchar(120);not null;uniqueIndex:ux_meals_vendor_name_day,priority:2"`
	Description     string          `json:"description"       gorm:"type:text"`
	Price           decimal.Decimal `json:"price"             gorm:"type:decimal(10,2);not null"`
	ImageURL        string          `json:"image_url,omitempty" gorm:"type:varchar(512)"`
	FulfilmentType  string          `json:"fulfilment_type"   gorm:"type:varchar(16);not null;default:'pickup';check:fulfilment_type IN ('pickup','delivery','both')"`
	PrepTimeMinutes int             `json:"prep_time_minutes" gorm:"not null;default:30"`
	RecurringDays   WeekdaySet      `json:"recurring_days"    gorm:"type:text"`
	AvailableDate   time.Time       `json:"available_date"    gorm:"not null;index;uniqueIndex:ux_meals_vendor_name_day,priority:3"`
	Stock           int             `json:"stock"             gorm:"not null;default:0"`
	MaxStock        int             `json:"max_stock"         gorm:"not null;default:0"`
	IsActive        bool            `json:"is_active"         gorm:"not null;index"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `json:"-"                 gorm:"index"`
}

// TableName returns the database table name for Meal.
func (Meal) TableName() string { return "meals" }

// IsTemplate reports whether this row is a recurring template rather than a
// generated (or one-off) daily listing.
func (m *Meal) IsTemplate() bool { return len(m.RecurringDays) > 0 }

// Order represents a committed customer order for a single meal listing.
// Only creation is modeled here; later lifecycle transitions (acceptance,
// delivery, cancellation) belong to an external order service.
//
// Subtotal, Discount, and Total are denormalized at commit time so the order
// stays self-describing even if the promo code or meal price changes later.
type Order struct {
	ID          string          `json:"id"            gorm:"type:char(36);primaryKey"`
	UserID      string          `json:"user_id"       gorm:"type:varchar(64);not null;index:idx_user_orders"`
	MealID      string          `json:"meal_id"       gorm:"type:char(36);not null;index"`
	Quantity    int             `json:"quantity"      gorm:"not null"`
	Subtotal    decimal.Decimal `json:"subtotal"      gorm:"type:decimal(10,2);not null"`
	Discount    decimal.Decimal `json:"discount"      gorm:"type:decimal(10,2);not null;default:0"`
	Total       decimal.Decimal `json:"total"         gorm:"type:decimal(10,2);not null"`
	PromoCodeID *string         `json:"promo_code_id,omitempty" gorm:"type:char(36)"`
	SlotAt      time.Time       `json:"slot_at"       gorm:"not null"`
	Status      string          `json:"status"        gorm:"type:varchar(16);not null;default:'created'"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Meal is the ordered listing. Orders reference, never cascade-delete.
	Meal Meal `json:"-" gorm:"foreignKey:MealID;references:ID"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }
