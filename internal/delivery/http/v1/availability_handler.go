package v1

import (
	"fmt"
	"net/http"
	"time"

	"go-recruitment-scheduler/internal/delivery/http/response"
	"go-recruitment-scheduler/internal/domain"
	"go-recruitment-scheduler/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type AvailabilityHandler struct {
	availabilityUC domain.AvailabilityUsecase
}

// NewAvailabilityHandler registers interviewer availability routes
func NewAvailabilityHandler(r *gin.RouterGroup, availabilityUC domain.AvailabilityUsecase, writeLimit gin.HandlerFunc) {
	handler := &AvailabilityHandler{availabilityUC: availabilityUC}

	interviewers := r.Group("/interviewers")
	{
		interviewers.PUT("/me/slots", writeLimit, handler.SetSlots)
		interviewers.GET("/:id/slots", handler.ListSlots)
		interviewers.GET("/:id/availability", handler.Availability)
		interviewers.GET("/:id/free", handler.FreeRanges)
	}
}

// SlotRequest is one availability rule as sent by clients. Dates are YYYY-MM-DD.
type SlotRequest struct {
	DayOfWeek            int     `json:"day_of_week"`
	StartTime            string  `json:"start_time"`
	EndTime              string  `json:"end_time"`
	Timezone             string  `json:"timezone"`
	IsRecurring          bool    `json:"is_recurring"`
	EffectiveFrom        string  `json:"effective_from"`
	EffectiveUntil       *string `json:"effective_until,omitempty"`
	MaxInterviewsPerSlot int     `json:"max_interviews_per_slot"`
}

// SetSlotsRequest replaces the caller's availability rules
type SetSlotsRequest struct {
	Slots []SlotRequest `json:"slots"`
}

// SetSlots godoc
// @Summary      Replace my availability
// @Description  Replace all of the caller's availability rules in one step
// @Tags         availability
// @Accept       json
// @Produce      json
// @Param        body  body      SetSlotsRequest  true  "Availability rules"
// @Success      200   {object}  response.Response{data=[]domain.InterviewSlot}
// @Failure      400   {object}  response.Response
// @Router       /interviewers/me/slots [put]
// @Security     BearerAuth
func (h *AvailabilityHandler) SetSlots(c *gin.Context) {
	var req SetSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}

	slots := make([]domain.InterviewSlot, 0, len(req.Slots))
	for i, s := range req.Slots {
		slot, err := s.toDomain()
		if err != nil {
			c.Error(err.WithDetail("index", i))
			return
		}
		slots = append(slots, slot)
	}

	saved, err := h.availabilityUC.SetAvailability(c.Request.Context(), currentUserID(c), slots)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Availability updated", saved)
}

// ListSlots godoc
// @Summary      List availability rules
// @Tags         availability
// @Produce      json
// @Param        id   path      string  true  "Interviewer ID (or \"me\")"
// @Success      200  {object}  response.Response{data=[]domain.InterviewSlot}
// @Router       /interviewers/{id}/slots [get]
// @Security     BearerAuth
func (h *AvailabilityHandler) ListSlots(c *gin.Context) {
	slots, err := h.availabilityUC.ListSlots(c.Request.Context(), interviewerParam(c))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Availability rules retrieved", slots)
}

// Availability godoc
// @Summary      Compute availability
// @Description  Sub-windows of the interviewer's rules for each date in range, marked available or booked
// @Tags         availability
// @Produce      json
// @Param        id          path      string  true  "Interviewer ID (or \"me\")"
// @Param        start_date  query     string  true  "First date (YYYY-MM-DD)"
// @Param        end_date    query     string  true  "Last date (YYYY-MM-DD)"
// @Success      200         {object}  response.Response{data=[]domain.AvailabilityWindow}
// @Failure      400         {object}  response.Response
// @Router       /interviewers/{id}/availability [get]
// @Security     BearerAuth
func (h *AvailabilityHandler) Availability(c *gin.Context) {
	start, end, err := parseDateRange(c)
	if err != nil {
		c.Error(err)
		return
	}

	windows, err := h.availabilityUC.ComputeAvailability(c.Request.Context(), interviewerParam(c), start, end)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Availability retrieved", windows)
}

// FreeRanges godoc
// @Summary      Compute free ranges
// @Description  Contiguous free time per date: rule windows minus booked interviews
// @Tags         availability
// @Produce      json
// @Param        id          path      string  true  "Interviewer ID (or \"me\")"
// @Param        start_date  query     string  true  "First date (YYYY-MM-DD)"
// @Param        end_date    query     string  true  "Last date (YYYY-MM-DD)"
// @Success      200         {object}  response.Response{data=[]domain.AvailabilityWindow}
// @Failure      400         {object}  response.Response
// @Router       /interviewers/{id}/free [get]
// @Security     BearerAuth
func (h *AvailabilityHandler) FreeRanges(c *gin.Context) {
	start, end, err := parseDateRange(c)
	if err != nil {
		c.Error(err)
		return
	}

	ranges, err := h.availabilityUC.ComputeFreeRanges(c.Request.Context(), interviewerParam(c), start, end)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Free ranges retrieved", ranges)
}

func (r SlotRequest) toDomain() (domain.InterviewSlot, *apperror.AppError) {
	slot := domain.InterviewSlot{
		DayOfWeek:            r.DayOfWeek,
		StartTime:            r.StartTime,
		EndTime:              r.EndTime,
		Timezone:             r.Timezone,
		IsRecurring:          r.IsRecurring,
		MaxInterviewsPerSlot: r.MaxInterviewsPerSlot,
	}
	if r.EffectiveFrom != "" {
		from, err := time.Parse(domain.DateLayout, r.EffectiveFrom)
		if err != nil {
			return slot, apperror.Validation("effective_from", "Effective from must be YYYY-MM-DD")
		}
		slot.EffectiveFrom = from
	}
	if r.EffectiveUntil != nil && *r.EffectiveUntil != "" {
		until, err := time.Parse(domain.DateLayout, *r.EffectiveUntil)
		if err != nil {
			return slot, apperror.Validation("effective_until", "Effective until must be YYYY-MM-DD")
		}
		slot.EffectiveUntil = &until
	}
	return slot, nil
}

func parseDateRange(c *gin.Context) (time.Time, time.Time, error) {
	var out [2]time.Time
	for i, name := range []string{"start_date", "end_date"} {
		v := c.Query(name)
		if v == "" {
			return time.Time{}, time.Time{}, apperror.Validation(name, fmt.Sprintf("%s is required", name))
		}
		t, err := time.Parse(domain.DateLayout, v)
		if err != nil {
			return time.Time{}, time.Time{}, apperror.Validation(name, fmt.Sprintf("%s must be YYYY-MM-DD", name))
		}
		out[i] = t
	}
	return out[0], out[1], nil
}

func interviewerParam(c *gin.Context) string {
	if id := c.Param("id"); id != "me" {
		return id
	}
	return currentUserID(c)
}
