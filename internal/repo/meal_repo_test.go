package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-food-backend/internal/domain"
)

func newMealRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("meal_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedMeal(t *testing.T, db *gorm.DB, m domain.Meal) *domain.Meal {
	t.Helper()
	if m.Price.IsZero() {
		m.Price = decimal.NewFromInt(10)
	}
	created, err := CreateMeal(context.Background(), db, &m)
	if err != nil {
		t.Fatalf("seed meal %q: %v", m.Name, err)
	}
	return created
}

func TestCreateMeal_SetsIDAndPersists(t *testing.T) {
	db := newMealRepoDB(t, &domain.Meal{})

	m := seedMeal(t, db, domain.Meal{
		VendorID:      "v1",
		Name:          "Pad Thai",
		NameKey:       "pad thai",
		AvailableDate: day(2025, 3, 10),
		Stock:         5,
		MaxStock:      5,
		IsActive:      true,
	})
	if m.ID == "" {
		t.Fatalf("expected generated UUID")
	}

	var got domain.Meal
	if err := db.First(&got, "id = ?", m.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.VendorID != "v1" || got.NameKey != "pad thai" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestCreateMeal_DuplicateDedupKeyRejected(t *testing.T) {
	db := newMealRepoDB(t, &domain.Meal{})

	seedMeal(t, db, domain.Meal{
		VendorID: "v1", Name: "Pad Thai", NameKey: "pad thai",
		AvailableDate: day(2025, 3, 10), IsActive: true,
	})
	_, err := CreateMeal(context.Background(), db, &domain.Meal{
		VendorID: "v1", Name: "Pad  Thai", NameKey: "pad thai",
		Price:         decimal.NewFromInt(12),
		AvailableDate: day(2025, 3, 10), IsActive: true,
	})
	if err == nil {
		t.Fatalf("expected unique violation on (vendor, name_key, day)")
	}

	// same key on another day is fine
	if _, err := CreateMeal(context.Background(), db, &domain.Meal{
		VendorID: "v1", Name: "Pad Thai", NameKey: "pad thai",
		Price:         decimal.NewFromInt(12),
		AvailableDate: day(2025, 3, 11), IsActive: true,
	}); err != nil {
		t.Fatalf("different day must not conflict: %v", err)
	}
}

func TestListActiveTemplates_FiltersAndOrders(t *testing.T) {
	db := newMealRepoDB(t, &domain.Meal{})

	seedMeal(t, db, domain.Meal{
		VendorID: "v2", Name: "Burrito", NameKey: "burrito",
		RecurringDays: domain.WeekdaySet{1, 3},
		AvailableDate: day(2025, 3, 1), IsActive: true,
	})
	seedMeal(t, db, domain.Meal{
		VendorID: "v1", Name: "Arepa", NameKey: "arepa",
		RecurringDays: domain.WeekdaySet{2},
		AvailableDate: day(2025, 3, 1), IsActive: true,
	})
	// not a template: no recurring days
	seedMeal(t, db, domain.Meal{
		VendorID: "v1", Name: "One Off", NameKey: "one off",
		AvailableDate: day(2025, 3, 1), IsActive: true,
	})
	// inactive template is skipped
	seedMeal(t, db, domain.Meal{
		VendorID: "v3", Name: "Gone", NameKey: "gone",
		RecurringDays: domain.WeekdaySet{1},
		AvailableDate: day(2025, 3, 1), IsActive: false,
	})

	got, err := ListActiveTemplates(context.Background(), db)
	if err != nil {
		t.Fatalf("ListActiveTemplates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(got))
	}
	if got[0].VendorID != "v1" || got[1].VendorID != "v2" {
		t.Fatalf("expected vendor order v1,v2: %+v", got)
	}
	if !got[1].RecurringDays.Contains(3) {
		t.Fatalf("recurring day set lost in round trip: %+v", got[1])
	}
}

func TestInstanceExists(t *testing.T) {
	db := newMealRepoDB(t, &domain.Meal{})
	ctx := context.Background()
	d := day(2025, 3, 10)

	seedMeal(t, db, domain.Meal{
		VendorID: "v1", Name: "Pad Thai", NameKey: "pad thai",
		AvailableDate: d, IsActive: true,
	})

	exists, err := InstanceExists(ctx, db, "v1", "pad thai", d)
	if err != nil || !exists {
		t.Fatalf("expected exists=true, got %v err=%v", exists, err)
	}
	exists, err = InstanceExists(ctx, db, "v1", "pad thai", d.AddDate(0, 0, 1))
	if err != nil || exists {
		t.Fatalf("expected exists=false for another day, got %v err=%v", exists, err)
	}
	exists, err = InstanceExists(ctx, db, "v2", "pad thai", d)
	if err != nil || exists {
		t.Fatalf("expected exists=false for another vendor, got %v err=%v", exists, err)
	}
}

func TestCreateInstance_ConflictIsNoOp(t *testing.T) {
	db := newMealRepoDB(t, &domain.Meal{})
	ctx := context.Background()
	d := day(2025, 3, 10)

	mk := func() *domain.Meal {
		return &domain.Meal{
			VendorID: "v1", Name: "Pad Thai", NameKey: "pad thai",
			Price:         decimal.NewFromInt(11),
			AvailableDate: d, Stock: 5, MaxStock: 5, IsActive: true,
		}
	}

	created, err := CreateInstance(ctx, db, mk())
	if err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}
	created, err = CreateInstance(ctx, db, mk())
	if err != nil {
		t.Fatalf("conflicting insert must not error: %v", err)
	}
	if created {
		t.Fatalf("conflicting insert must report created=false")
	}

	var n int64
	if err := db.Model(&domain.Meal{}).Count(&n).Error; err != nil || n != 1 {
		t.Fatalf("expected exactly one row, got %d err=%v", n, err)
	}
}

func TestCountAndListMealsForDay(t *testing.T) {
	db := newMealRepoDB(t, &domain.Meal{})
	ctx := context.Background()
	d := day(2025, 3, 10)

	seedMeal(t, db, domain.Meal{VendorID: "v2", Name: "Burrito", NameKey: "burrito", AvailableDate: d, IsActive: true})
	seedMeal(t, db, domain.Meal{VendorID: "v1", Name: "Arepa", NameKey: "arepa", AvailableDate: d, IsActive: true})
	seedMeal(t, db, domain.Meal{VendorID: "v1", Name: "Solo", NameKey: "solo", AvailableDate: d.AddDate(0, 0, 1), IsActive: true})
	seedMeal(t, db, domain.Meal{VendorID: "v1", Name: "Hidden", NameKey: "hidden", AvailableDate: d, IsActive: false})

	total, err := CountMealsForDay(ctx, db, d)
	if err != nil || total != 2 {
		t.Fatalf("count = %d err=%v, want 2", total, err)
	}

	items, err := ListMealsForDay(ctx, db, d, 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].NameKey != "arepa" || items[1].NameKey != "burrito" {
		t.Fatalf("unexpected page: %+v", items)
	}

	// pagination window
	page, err := ListMealsForDay(ctx, db, d, 1, 1)
	if err != nil || len(page) != 1 || page[0].NameKey != "burrito" {
		t.Fatalf("offset page mismatch: %+v err=%v", page, err)
	}
}

func TestGetMeal(t *testing.T) {
	db := newMealRepoDB(t, &domain.Meal{})
	ctx := context.Background()

	m := seedMeal(t, db, domain.Meal{
		VendorID: "v1", Name: "Arepa", NameKey: "arepa",
		AvailableDate: day(2025, 3, 10), IsActive: true,
	})

	got, err := GetMeal(ctx, db, m.ID)
	if err != nil || got.Name != "Arepa" {
		t.Fatalf("GetMeal: %+v err=%v", got, err)
	}
	if _, err := GetMeal(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDecrementStock(t *testing.T) {
	db := newMealRepoDB(t, &domain.Meal{})
	ctx := context.Background()

	m := seedMeal(t, db, domain.Meal{
		VendorID: "v1", Name: "Arepa", NameKey: "arepa",
		AvailableDate: day(2025, 3, 10), Stock: 3, MaxStock: 3, IsActive: true,
	})

	if err := DecrementStock(ctx, db, m.ID, 2); err != nil {
		t.Fatalf("decrement 2 of 3: %v", err)
	}
	// only 1 left: asking for 2 must fail without going negative
	if err := DecrementStock(ctx, db, m.ID, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on insufficient stock, got %v", err)
	}
	if err := DecrementStock(ctx, db, m.ID, 1); err != nil {
		t.Fatalf("decrement last unit: %v", err)
	}
	if err := DecrementStock(ctx, db, m.ID, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound at zero stock, got %v", err)
	}

	var got domain.Meal
	if err := db.First(&got, "id = ?", m.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Stock != 0 {
		t.Fatalf("stock = %d, want 0", got.Stock)
	}
}
