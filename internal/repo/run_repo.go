// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// GenerationRun model used for job reporting and scheduler-trigger replay
// detection.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-food-backend/internal/domain"
)

// RecordRun appends a GenerationRun row describing one job execution.
func RecordRun(ctx context.Context, db *gorm.DB, day time.Time, weekday, generated, failed int, triggerKey string) (*domain.GenerationRun, error) {
	rec := &domain.GenerationRun{
		ID:         uuid.NewString(),
		RunDate:    day,
		Weekday:    weekday,
		Generated:  generated,
		Failed:     failed,
		TriggerKey: triggerKey,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// LatestRun returns the most recently recorded run, or ErrNotFound when the
// job has never executed.
func LatestRun(ctx context.Context, db *gorm.DB) (*domain.GenerationRun, error) {
	var rec domain.GenerationRun
	err := db.WithContext(ctx).
		Order("created_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetRunByTriggerKey returns a run recorded for the given scheduler trigger
// key on the given day, or ErrNotFound. Blank keys never match: runs fired
// without an Idempotency-Key are not replay candidates.
func GetRunByTriggerKey(ctx context.Context, db *gorm.DB, key string, day time.Time) (*domain.GenerationRun, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.GenerationRun
	err := db.WithContext(ctx).
		Where("trigger_key = ? AND run_date = ?", key, day).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
