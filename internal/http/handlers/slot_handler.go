// Fulfillment slot HTTP handler.
//
// This file exposes the endpoint that lists valid pickup/delivery time slots
// for a preparation time, evaluated at request time:
//   - GET /slots?prep_minutes=45
//
// The computation is pure; an empty list is a normal "no slots left today"
// outcome, never an error.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-food-backend/internal/slots"
	"github.com/tbourn/go-food-backend/internal/utils"
)

// SlotsResponse wraps the generated slots.
type SlotsResponse struct {
	Slots []slots.Slot `json:"slots"`
}

// ListSlots godoc
// @ID          listSlots
// @Summary     List fulfillment slots
// @Description Returns the 30-minute fulfillment slots available from now for the given preparation time. Empty means no slots remain today.
// @Tags        Slots
// @Produce     json
//
// @Param       prep_minutes  query  int  false  "Preparation time in minutes"  minimum(0) default(30)
//
// @Success     200  {object}  handlers.SlotsResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Router      /slots [get]
func (h *Handlers) ListSlots(c *gin.Context) {
	prep := utils.AtoiDefault(c.Query("prep_minutes"), 30)
	if prep < 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prep_minutes must be >= 0")
		return
	}

	ok(c, http.StatusOK, SlotsResponse{Slots: slots.Generate(prep, time.Now(), h.slotOpts...)})
}
