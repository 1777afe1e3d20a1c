package v1

import (
	"net/http"
	"strconv"
	"time"

	"go-recruitment-scheduler/internal/delivery/http/middleware"
	"go-recruitment-scheduler/internal/delivery/http/response"
	"go-recruitment-scheduler/internal/domain"
	"go-recruitment-scheduler/pkg/apperror"

	"github.com/gin-gonic/gin"
)

const (
	RoleCandidate = "candidate"
	RoleEmployer  = "employer"
	RoleAdmin     = "admin"
)

type InterviewHandler struct {
	interviewUC domain.InterviewUsecase
}

// NewInterviewHandler registers interview routes. writeLimit guards the
// booking writes.
func NewInterviewHandler(r *gin.RouterGroup, interviewUC domain.InterviewUsecase, writeLimit gin.HandlerFunc) {
	handler := &InterviewHandler{interviewUC: interviewUC}

	interviews := r.Group("/interviews")
	{
		interviews.POST("", middleware.RequireRole(RoleEmployer, RoleAdmin), writeLimit, handler.Schedule)
		interviews.GET("", handler.List)
		interviews.GET("/export", middleware.RequireRole(RoleEmployer, RoleAdmin), handler.Export)
		interviews.GET("/:id", handler.Get)
		interviews.POST("/:id/confirm", writeLimit, handler.Confirm)
		interviews.POST("/:id/reschedule", middleware.RequireRole(RoleEmployer, RoleAdmin), writeLimit, handler.Reschedule)
		interviews.POST("/:id/cancel", writeLimit, handler.Cancel)
		interviews.POST("/:id/feedback", writeLimit, handler.SubmitFeedback)
	}
}

// CancelInterviewRequest is the request payload for cancelling an interview
type CancelInterviewRequest struct {
	Reason string `json:"reason"`
}

// Schedule godoc
// @Summary      Schedule an interview
// @Description  Book an interview for an application. Fails with 409 when the interviewer is busy or the application already has an active interview.
// @Tags         interviews
// @Accept       json
// @Produce      json
// @Param        body  body      domain.ScheduleInput  true  "Interview data"
// @Success      201   {object}  response.Response{data=domain.Interview}
// @Failure      400   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /interviews [post]
// @Security     BearerAuth
func (h *InterviewHandler) Schedule(c *gin.Context) {
	var req domain.ScheduleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}

	interview, err := h.interviewUC.Schedule(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Interview scheduled", interview)
}

// List godoc
// @Summary      List interviews
// @Description  Paginated interviews ordered by start time. Candidates only see their own.
// @Tags         interviews
// @Produce      json
// @Param        interviewer_id  query     string  false  "Interviewer ID"
// @Param        candidate_id    query     string  false  "Candidate ID"
// @Param        job_id          query     int     false  "Job ID"
// @Param        status          query     string  false  "Status"
// @Param        from            query     string  false  "Earliest start (RFC3339)"
// @Param        to              query     string  false  "Latest start (RFC3339)"
// @Param        page            query     int     false  "Page"
// @Param        limit           query     int     false  "Page size (max 100)"
// @Success      200             {object}  response.Response{data=domain.PaginatedResult[domain.Interview]}
// @Failure      400             {object}  response.Response
// @Router       /interviews [get]
// @Security     BearerAuth
func (h *InterviewHandler) List(c *gin.Context) {
	filter, err := parseInterviewFilter(c)
	if err != nil {
		c.Error(err)
		return
	}
	if currentRole(c) == RoleCandidate {
		filter.CandidateID = currentUserID(c)
	}

	result, err := h.interviewUC.GetInterviews(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Interviews retrieved", result)
}

// Export godoc
// @Summary      Export interviews
// @Description  Download interviews matching the filter as xlsx or csv
// @Tags         interviews
// @Produce      application/octet-stream
// @Param        format          query     string  false  "xlsx (default) or csv"
// @Param        interviewer_id  query     string  false  "Interviewer ID"
// @Param        job_id          query     int     false  "Job ID"
// @Param        status          query     string  false  "Status"
// @Success      200             {file}    file
// @Failure      400             {object}  response.Response
// @Router       /interviews/export [get]
// @Security     BearerAuth
func (h *InterviewHandler) Export(c *gin.Context) {
	filter, err := parseInterviewFilter(c)
	if err != nil {
		c.Error(err)
		return
	}
	format := c.DefaultQuery("format", "xlsx")

	data, filename, err := h.interviewUC.ExportInterviews(c.Request.Context(), filter, format)
	if err != nil {
		c.Error(err)
		return
	}

	contentType := "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	if format == "csv" {
		contentType = "text/csv"
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, data)
}

// Get godoc
// @Summary      Get an interview
// @Tags         interviews
// @Produce      json
// @Param        id   path      string  true  "Interview ID"
// @Success      200  {object}  response.Response{data=domain.Interview}
// @Failure      404  {object}  response.Response
// @Router       /interviews/{id} [get]
// @Security     BearerAuth
func (h *InterviewHandler) Get(c *gin.Context) {
	interview, err := h.interviewUC.GetInterview(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	// Candidates only see their own interviews; hide the rest as missing.
	if currentRole(c) == RoleCandidate && interview.CandidateID != currentUserID(c) {
		c.Error(apperror.NotFound("Interview not found"))
		return
	}
	response.Success(c, http.StatusOK, "Interview retrieved", interview)
}

// Confirm godoc
// @Summary      Confirm an interview
// @Tags         interviews
// @Produce      json
// @Param        id   path      string  true  "Interview ID"
// @Success      200  {object}  response.Response{data=domain.Interview}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /interviews/{id}/confirm [post]
// @Security     BearerAuth
func (h *InterviewHandler) Confirm(c *gin.Context) {
	interview, err := h.interviewUC.Confirm(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Interview confirmed", interview)
}

// Reschedule godoc
// @Summary      Reschedule an interview
// @Description  Move an interview to a new start time, optionally changing its duration
// @Tags         interviews
// @Accept       json
// @Produce      json
// @Param        id    path      string                  true  "Interview ID"
// @Param        body  body      domain.RescheduleInput  true  "New time"
// @Success      200   {object}  response.Response{data=domain.Interview}
// @Failure      400   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /interviews/{id}/reschedule [post]
// @Security     BearerAuth
func (h *InterviewHandler) Reschedule(c *gin.Context) {
	var req domain.RescheduleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}

	interview, err := h.interviewUC.Reschedule(c.Request.Context(), c.Param("id"), currentUserID(c), req)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Interview rescheduled", interview)
}

// Cancel godoc
// @Summary      Cancel an interview
// @Tags         interviews
// @Accept       json
// @Produce      json
// @Param        id    path      string                  true  "Interview ID"
// @Param        body  body      CancelInterviewRequest  true  "Cancellation reason"
// @Success      200   {object}  response.Response{data=domain.Interview}
// @Failure      400   {object}  response.Response
// @Failure      403   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /interviews/{id}/cancel [post]
// @Security     BearerAuth
func (h *InterviewHandler) Cancel(c *gin.Context) {
	var req CancelInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}

	interview, err := h.interviewUC.Cancel(c.Request.Context(), c.Param("id"), req.Reason, currentUserID(c))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Interview cancelled", interview)
}

// SubmitFeedback godoc
// @Summary      Submit interview feedback
// @Description  The assigned interviewer records feedback, completing the interview
// @Tags         interviews
// @Accept       json
// @Produce      json
// @Param        id    path      string                    true  "Interview ID"
// @Param        body  body      domain.InterviewFeedback  true  "Feedback"
// @Success      200   {object}  response.Response{data=domain.Interview}
// @Failure      400   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /interviews/{id}/feedback [post]
// @Security     BearerAuth
func (h *InterviewHandler) SubmitFeedback(c *gin.Context) {
	var req domain.InterviewFeedback
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}

	interview, err := h.interviewUC.SubmitFeedback(c.Request.Context(), c.Param("id"), currentUserID(c), req)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Feedback submitted", interview)
}

func parseInterviewFilter(c *gin.Context) (domain.InterviewFilter, error) {
	filter := domain.InterviewFilter{
		InterviewerID: c.Query("interviewer_id"),
		CandidateID:   c.Query("candidate_id"),
		Status:        domain.InterviewStatus(c.Query("status")),
	}

	if v := c.Query("job_id"); v != "" {
		jobID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, apperror.Validation("job_id", "Invalid job ID")
		}
		filter.JobID = jobID
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, apperror.Validation(p.name, "Use RFC3339, e.g. 2025-01-06T09:00:00Z")
		}
		*p.dst = &t
	}

	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	return filter, nil
}

func currentUserID(c *gin.Context) string {
	return c.GetString(string(domain.KeyUserID))
}

func currentRole(c *gin.Context) string {
	return c.GetString(string(domain.KeyUserRole))
}
