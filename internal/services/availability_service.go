// Package services – AvailabilityService
//
// This file implements the daily recurring-availability job: for every
// vendor meal template configured to recur on the current weekday, it
// ensures exactly one live listing exists for today. The job is idempotent
// by design — the same day may be processed multiple times (scheduler
// retries, duplicate triggers) without duplicating listings.
//
// Correctness model: the per-template existence check is a fast path only.
// The authoritative guard is the storage-level unique index on
// (vendor_id, name_key, available_date) combined with ignore-on-conflict
// inserts, which makes concurrent duplicate invocations collapse to no-ops.
//
// Failure model: a single bad template never aborts the run. Per-template
// failures are logged, collected, and reported alongside the best-effort
// generated count; only a failed template fetch fails the run as a whole.
package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-food-backend/internal/domain"
	"github.com/tbourn/go-food-backend/internal/repo"
)

var (
	// generatedInstances counts daily listings materialized by the job.
	generatedInstances = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "availability_instances_generated_total",
		Help: "Total daily meal instances created by the availability job.",
	})

	// jobRuns counts job executions by outcome (ok, failed).
	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "availability_job_runs_total",
			Help: "Total availability job runs by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(generatedInstances, jobRuns)
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// NormalizeMealName lowers and whitespace-collapses a meal name, producing
// the NameKey component of the listing dedup key.
func NormalizeMealName(name string) string {
	return strings.ToLower(whitespaceRE.ReplaceAllString(strings.TrimSpace(name), " "))
}

// DayOf truncates an instant to its calendar day in its own location. All
// availability rows store day-resolution dates produced by this helper so
// equality comparisons stay exact.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TemplateFailure pairs a template ID with the error that stopped its
// instance from being generated.
type TemplateFailure struct {
	TemplateID string `json:"template_id"`
	Err        string `json:"error"`
}

// RunResult summarizes one execution of the availability job.
type RunResult struct {
	Day       time.Time         `json:"day"`
	Weekday   int               `json:"day_of_week"`
	Generated int               `json:"generated"`
	Failures  []TemplateFailure `json:"failures,omitempty"`
}

// MealRepo defines the repository contract required by the availability job
// and the meal/order services.
type MealRepo interface {
	ListActiveTemplates(ctx context.Context, db *gorm.DB) ([]domain.Meal, error)
	InstanceExists(ctx context.Context, db *gorm.DB, vendorID, nameKey string, day time.Time) (bool, error)
	CreateInstance(ctx context.Context, db *gorm.DB, inst *domain.Meal) (bool, error)
}

// RunRepo persists job execution records.
type RunRepo interface {
	RecordRun(ctx context.Context, db *gorm.DB, day time.Time, weekday, generated, failed int, triggerKey string) (*domain.GenerationRun, error)
	LatestRun(ctx context.Context, db *gorm.DB) (*domain.GenerationRun, error)
}

// AvailabilityService materializes today's listings from recurring templates.
type AvailabilityService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Meals is the meal repository used by this service.
	Meals MealRepo
	// Runs records executions; optional (nil disables run bookkeeping).
	Runs RunRepo
}

// Run generates today's listings for every active template recurring on
// today's weekday.
//
// Per template:
//   - a template whose own AvailableDate already equals today is skipped
//     (that row is today's listing, not a parent template);
//   - an existing instance on the dedup key skips generation (idempotence);
//   - otherwise an instance is inserted with display and pricing fields
//     copied from the template, Stock reset to MaxStock, and IsActive true.
//
// The error return is non-nil only when the template fetch itself fails;
// per-template errors land in RunResult.Failures and never abort the run.
// triggerKey, when non-empty, is stored with the run record so scheduler
// retries carrying the same Idempotency-Key can be recognized.
func (s *AvailabilityService) Run(ctx context.Context, today time.Time, triggerKey string) (*RunResult, error) {
	day := DayOf(today)
	weekday := int(today.Weekday())

	tr := otel.Tracer("services/AvailabilityService")
	ctx, span := tr.Start(ctx, "Run",
		trace.WithAttributes(
			attribute.String("job.day", day.Format("2006-01-02")),
			attribute.Int("job.weekday", weekday),
		),
	)
	defer span.End()

	res := &RunResult{Day: day, Weekday: weekday}

	templates, err := s.Meals.ListActiveTemplates(ctx, s.DB)
	if err != nil {
		jobRuns.WithLabelValues("failed").Inc()
		return nil, err
	}

	for i := range templates {
		tpl := &templates[i]
		if !tpl.RecurringDays.Contains(weekday) {
			continue
		}
		// This row already is today's listing, not a parent template.
		if DayOf(tpl.AvailableDate).Equal(day) {
			continue
		}

		created, err := s.generateOne(ctx, tpl, day)
		if err != nil {
			log.Warn().
				Str("template_id", tpl.ID).
				Str("vendor_id", tpl.VendorID).
				Err(err).
				Msg("availability generation failed for template")
			res.Failures = append(res.Failures, TemplateFailure{TemplateID: tpl.ID, Err: err.Error()})
			continue
		}
		if created {
			res.Generated++
			generatedInstances.Inc()
		}
	}

	if s.Runs != nil {
		if _, err := s.Runs.RecordRun(ctx, s.DB, day, weekday, res.Generated, len(res.Failures), triggerKey); err != nil {
			// Bookkeeping only; the generation result stands.
			log.Warn().Err(err).Msg("failed to record availability run")
		}
	}

	jobRuns.WithLabelValues("ok").Inc()
	return res, nil
}

// generateOne ensures a single template has today's instance. It returns
// created=false when an instance already exists, whether detected by the
// advisory probe or absorbed by the conflict-ignoring insert.
func (s *AvailabilityService) generateOne(ctx context.Context, tpl *domain.Meal, day time.Time) (bool, error) {
	nameKey := tpl.NameKey
	if nameKey == "" {
		nameKey = NormalizeMealName(tpl.Name)
	}

	// Fast path; the unique index remains the correctness backstop.
	exists, err := s.Meals.InstanceExists(ctx, s.DB, tpl.VendorID, nameKey, day)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	inst := &domain.Meal{
		VendorID:        tpl.VendorID,
		Name:            tpl.Name,
		NameKey:         nameKey,
		Description:     tpl.Description,
		Price:           tpl.Price,
		ImageURL:        tpl.ImageURL,
		FulfilmentType:  tpl.FulfilmentType,
		PrepTimeMinutes: tpl.PrepTimeMinutes,
		RecurringDays:   nil, // instances do not recur themselves
		AvailableDate:   day,
		Stock:           tpl.MaxStock,
		MaxStock:        tpl.MaxStock,
		IsActive:        true,
	}
	return s.Meals.CreateInstance(ctx, s.DB, inst)
}

// LatestRun reports the most recently recorded job execution, or
// repo.ErrNotFound when the job has never run.
func (s *AvailabilityService) LatestRun(ctx context.Context) (*domain.GenerationRun, error) {
	if s.Runs == nil {
		return nil, repo.ErrNotFound
	}
	return s.Runs.LatestRun(ctx, s.DB)
}
