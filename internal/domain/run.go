// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// GenerationRun records one execution of the daily availability job. Rows are
// append-only and serve two purposes: operational reporting (what did the
// last run generate, how many templates failed) and trigger replay detection
// when the external scheduler retries with the same Idempotency-Key.
type GenerationRun struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	RunDate    time.Time `json:"run_date"    gorm:"not null;index"`
	Weekday    int       `json:"day_of_week" gorm:"not null"`
	Generated  int       `json:"generated"   gorm:"not null"`
	Failed     int       `json:"failed"      gorm:"not null"`
	TriggerKey string    `json:"-"           gorm:"type:varchar(200);index"`
	CreatedAt  time.Time `json:"created_at"  gorm:"autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (GenerationRun) TableName() string { return "generation_runs" }
