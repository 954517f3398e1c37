// Package services – MealService
//
// This file implements MealService, which manages vendor meal listings: it
// validates and normalizes vendor submissions (templates and one-off
// listings), serves the paginated customer-facing menu for a day, and backs
// the menu text search with a freshly built in-memory index.
//
// Service-level errors (e.g., ErrInvalidMeal, ErrDuplicateMeal) are returned
// for predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-food-backend/internal/domain"
	"github.com/tbourn/go-food-backend/internal/search"
)

// MealStore is the persistence contract MealService needs beyond the shared
// MealRepo used by the availability job.
type MealStore interface {
	CreateMeal(ctx context.Context, db *gorm.DB, m *domain.Meal) (*domain.Meal, error)
	CountMealsForDay(ctx context.Context, db *gorm.DB, day time.Time) (int64, error)
	ListMealsForDay(ctx context.Context, db *gorm.DB, day time.Time, offset, limit int) ([]domain.Meal, error)
}

// MealService provides vendor listing management and customer menu reads.
type MealService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the meal repository used by this service.
	Repo MealStore

	// SearchLimit caps search results; values <= 0 default to 20.
	SearchLimit int
}

// Create validates and persists a vendor-submitted meal. A non-empty
// RecurringDays set makes the row a template picked up by the daily
// availability job; an empty set makes it a one-off listing for
// AvailableDate. Stock is initialized to MaxStock.
func (s *MealService) Create(ctx context.Context, m *domain.Meal) (*domain.Meal, error) {
	tr := otel.Tracer("services/MealService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("vendor.id", m.VendorID)),
	)
	defer span.End()

	m.Name = strings.TrimSpace(m.Name)
	if m.VendorID == "" || m.Name == "" {
		return nil, ErrInvalidMeal
	}
	if m.Price.Sign() <= 0 || m.MaxStock < 0 || m.PrepTimeMinutes < 0 {
		return nil, ErrInvalidMeal
	}
	switch m.FulfilmentType {
	case "":
		m.FulfilmentType = domain.FulfilmentPickup
	case domain.FulfilmentPickup, domain.FulfilmentDelivery, domain.FulfilmentBoth:
	default:
		return nil, ErrInvalidMeal
	}
	for _, d := range m.RecurringDays {
		if d < 0 || d > 6 {
			return nil, ErrInvalidMeal
		}
	}

	m.NameKey = NormalizeMealName(m.Name)
	m.AvailableDate = DayOf(m.AvailableDate)
	m.Stock = m.MaxStock
	m.IsActive = true

	created, err := s.Repo.CreateMeal(ctx, s.DB, m)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return nil, ErrDuplicateMeal
		}
		return nil, err
	}
	return created, nil
}

// ListDay returns a page of the day's live listings plus the total count.
// It applies defaults for invalid page/pageSize.
func (s *MealService) ListDay(ctx context.Context, day time.Time, page, pageSize int) ([]domain.Meal, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	day = DayOf(day)

	total, err := s.Repo.CountMealsForDay(ctx, s.DB, day)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Meal{}, 0, nil
	}

	items, err := s.Repo.ListMealsForDay(ctx, s.DB, day, offset, pageSize)
	return items, total, err
}

// Search ranks the day's live listings against a free-text query using an
// in-memory index over names and descriptions. The index is rebuilt per call
// from the day's menu, which stays small enough that construction cost is
// negligible next to the DB read.
func (s *MealService) Search(ctx context.Context, day time.Time, query string) ([]search.Result, error) {
	tr := otel.Tracer("services/MealService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(attribute.String("search.query", query)),
	)
	defer span.End()

	limit := s.SearchLimit
	if limit <= 0 {
		limit = 20
	}

	day = DayOf(day)
	total, err := s.Repo.CountMealsForDay(ctx, s.DB, day)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return []search.Result{}, nil
	}
	meals, err := s.Repo.ListMealsForDay(ctx, s.DB, day, 0, int(total))
	if err != nil {
		return nil, err
	}

	idx := search.NewMenuIndex(meals)
	return idx.TopK(query, limit), nil
}

// isUniqueViolation sniffs driver-level unique constraint failures.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
