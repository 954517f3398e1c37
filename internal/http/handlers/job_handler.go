// Availability job HTTP handlers.
//
// This file exposes the trigger the external scheduler calls once per day,
// plus a reporting endpoint:
//   - POST /jobs/daily-availability         (run the generation job, no body)
//   - GET  /jobs/daily-availability/latest  (last recorded run)
//
// The job is idempotent: re-triggering the same day generates nothing new.
// Per-template failures are included in the 200 response; only a failed
// template fetch produces a 500, and the scheduler retries on its own cadence.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-food-backend/internal/http/middleware"
	"github.com/tbourn/go-food-backend/internal/repo"
	"github.com/tbourn/go-food-backend/internal/services"
)

// RunJobResponse reports one execution of the daily availability job.
type RunJobResponse struct {
	Message   string                     `json:"message" example:"daily availability generated"`
	Generated int                        `json:"generated" example:"12"`
	DayOfWeek int                        `json:"day_of_week" example:"1"`
	Failures  []services.TemplateFailure `json:"failures,omitempty"`
}

// RunDailyAvailability godoc
// @ID          runDailyAvailability
// @Summary     Run the daily availability job
// @Description Materializes today's listings for every template recurring on today's weekday. Idempotent; safe to re-trigger.
// @Tags        Jobs
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Scheduler trigger key for replay detection"
//
// @Success     200  {object}  handlers.RunJobResponse
// @Failure     500  {object}  handlers.ErrorResponse "Template fetch failed"
// @Router      /jobs/daily-availability [post]
func (h *Handlers) RunDailyAvailability(c *gin.Context) {
	triggerKey, _ := middleware.GetIdempotencyKey(c)

	res, err := h.availSvc.Run(c.Request.Context(), time.Now(), triggerKey)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeGenerationFailed, err.Error())
		return
	}

	msg := "daily availability generated"
	if middleware.IsReplay(c) {
		msg = "daily availability trigger replayed"
	}
	ok(c, http.StatusOK, RunJobResponse{
		Message:   msg,
		Generated: res.Generated,
		DayOfWeek: res.Weekday,
		Failures:  res.Failures,
	})
}

// LatestRun godoc
// @ID          latestAvailabilityRun
// @Summary     Last recorded availability run
// @Description Returns the most recent execution record of the daily job.
// @Tags        Jobs
// @Produce     json
//
// @Success     200  {object}  domain.GenerationRun
// @Failure     404  {object}  handlers.ErrorResponse "Job has never run"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /jobs/daily-availability/latest [get]
func (h *Handlers) LatestRun(c *gin.Context) {
	rec, err := h.availSvc.LatestRun(c.Request.Context())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no availability run recorded")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, rec)
}
