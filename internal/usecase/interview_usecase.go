package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-recruitment-scheduler/internal/domain"
	"go-recruitment-scheduler/pkg/apperror"
	"go-recruitment-scheduler/pkg/audit"
	"go-recruitment-scheduler/pkg/logger"
	"go-recruitment-scheduler/pkg/validation"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type interviewUsecase struct {
	repo           domain.InterviewRepository
	detector       *ConflictDetector
	notifier       domain.Notifier
	validate       *validator.Validate
	audit          *audit.Logger
	contextTimeout time.Duration
}

// NewInterviewUsecase creates the scheduling orchestrator. Every call is
// bounded by timeout.
func NewInterviewUsecase(repo domain.InterviewRepository, notifier domain.Notifier, validate *validator.Validate, auditLog *audit.Logger, timeout time.Duration) domain.InterviewUsecase {
	if validate == nil {
		validate = validation.Default()
	}
	if auditLog == nil {
		auditLog = audit.Nop()
	}
	return &interviewUsecase{
		repo:           repo,
		detector:       NewConflictDetector(),
		notifier:       notifier,
		validate:       validate,
		audit:          auditLog,
		contextTimeout: timeout,
	}
}

func (uc *interviewUsecase) Schedule(ctx context.Context, actorID string, in domain.ScheduleInput) (*domain.Interview, error) {
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()

	if err := uc.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	now := time.Now().UTC()
	if !in.ScheduledAt.After(now) {
		return nil, apperror.Validation("scheduled_at", "Scheduled time must be in the future")
	}
	window := domain.NewWindow(in.ScheduledAt.UTC(), minutes(in.DurationMinutes))

	var created *domain.Interview
	locks := []domain.LockKey{domain.InterviewerLock(in.InterviewerID), domain.ApplicationLock(in.ApplicationID)}
	err := uc.repo.Atomic(ctx, locks, func(tx domain.InterviewTx) error {
		app, err := tx.GetApplication(ctx, in.ApplicationID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return apperror.NotFound("Application not found")
			}
			return err
		}

		existing, err := tx.FindActiveByApplication(ctx, app.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return conflictError("Application already has an active interview", existing)
		}

		clash, err := uc.detector.FindConflict(ctx, tx, in.InterviewerID, window, "")
		if err != nil {
			return err
		}
		if clash != nil {
			return conflictError("Interviewer is not available at the requested time", clash)
		}

		interview := &domain.Interview{
			ID:                        uuid.NewString(),
			ApplicationID:             app.ID,
			JobID:                     app.JobID,
			CandidateID:               app.CandidateUserID,
			InterviewerID:             in.InterviewerID,
			ScheduledAt:               window.Start,
			DurationMinutes:           in.DurationMinutes,
			Type:                      in.Type,
			Status:                    domain.InterviewStatusScheduled,
			Location:                  in.Location,
			MeetingLink:               in.MeetingLink,
			Notes:                     strings.TrimSpace(in.Notes),
			PreviousApplicationStatus: app.Status,
			CreatedAt:                 now,
			UpdatedAt:                 now,
		}
		if err := tx.CreateInterview(ctx, interview); err != nil {
			return err
		}
		if app.Status != domain.ApplicationStatusInterviewScheduled {
			if err := tx.UpdateApplicationStatus(ctx, app.ID, domain.ApplicationStatusInterviewScheduled); err != nil {
				return err
			}
		}
		created = interview
		return nil
	})
	if err != nil {
		uc.auditFailure(ctx, err, actorID, "", "schedule")
		return nil, storageError(err)
	}

	uc.audit.Log(ctx, audit.Event{
		Event:       audit.EventInterviewScheduled,
		ActorID:     actorID,
		InterviewID: created.ID,
		Details:     map[string]interface{}{"application_id": created.ApplicationID, "scheduled_at": created.ScheduledAt},
	})
	uc.notifyParticipants(ctx, created, domain.NotificationInterviewScheduled,
		"Interview scheduled",
		fmt.Sprintf("An interview has been scheduled for %s.", formatInstant(created.ScheduledAt)))
	return created, nil
}

func (uc *interviewUsecase) Confirm(ctx context.Context, interviewID, actorID string) (*domain.Interview, error) {
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()

	current, err := uc.load(ctx, interviewID)
	if err != nil {
		return nil, err
	}

	var updated *domain.Interview
	err = uc.repo.Atomic(ctx, []domain.LockKey{domain.InterviewerLock(current.InterviewerID)}, func(tx domain.InterviewTx) error {
		iv, err := getInTx(ctx, tx, interviewID)
		if err != nil {
			return err
		}
		if !isParticipant(iv, actorID) {
			return apperror.Unauthorized("Only the candidate or the interviewer can confirm this interview")
		}
		next, err := transition(iv, domain.ActionConfirm)
		if err != nil {
			return err
		}
		iv.Status = next
		iv.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateInterview(ctx, iv); err != nil {
			return err
		}
		updated = iv
		return nil
	})
	if err != nil {
		uc.auditFailure(ctx, err, actorID, interviewID, "confirm")
		return nil, storageError(err)
	}

	uc.audit.Log(ctx, audit.Event{Event: audit.EventInterviewConfirmed, ActorID: actorID, InterviewID: updated.ID})
	uc.notifyParticipants(ctx, updated, domain.NotificationInterviewConfirmed,
		"Interview confirmed",
		fmt.Sprintf("The interview on %s is confirmed.", formatInstant(updated.ScheduledAt)))
	return updated, nil
}

func (uc *interviewUsecase) Reschedule(ctx context.Context, interviewID, actorID string, in domain.RescheduleInput) (*domain.Interview, error) {
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()

	if err := uc.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	now := time.Now().UTC()
	if !in.ScheduledAt.After(now) {
		return nil, apperror.Validation("scheduled_at", "Scheduled time must be in the future")
	}

	current, err := uc.load(ctx, interviewID)
	if err != nil {
		return nil, err
	}

	var (
		updated  *domain.Interview
		previous time.Time
	)
	err = uc.repo.Atomic(ctx, []domain.LockKey{domain.InterviewerLock(current.InterviewerID)}, func(tx domain.InterviewTx) error {
		iv, err := getInTx(ctx, tx, interviewID)
		if err != nil {
			return err
		}
		next, err := transition(iv, domain.ActionReschedule)
		if err != nil {
			return err
		}

		duration := iv.DurationMinutes
		if in.DurationMinutes > 0 {
			duration = in.DurationMinutes
		}
		window := domain.NewWindow(in.ScheduledAt.UTC(), minutes(duration))
		clash, err := uc.detector.FindConflict(ctx, tx, iv.InterviewerID, window, iv.ID)
		if err != nil {
			return err
		}
		if clash != nil {
			return conflictError("Interviewer is not available at the requested time", clash)
		}

		previous = iv.ScheduledAt
		note := fmt.Sprintf("Rescheduled from %s to %s", formatInstant(previous), formatInstant(window.Start))
		if reason := strings.TrimSpace(in.Reason); reason != "" {
			note += ": " + reason
		}
		iv.ScheduledAt = window.Start
		iv.DurationMinutes = duration
		iv.Status = next
		iv.Notes = appendNote(iv.Notes, now, note)
		iv.UpdatedAt = now
		if err := tx.UpdateInterview(ctx, iv); err != nil {
			return err
		}
		updated = iv
		return nil
	})
	if err != nil {
		uc.auditFailure(ctx, err, actorID, interviewID, "reschedule")
		return nil, storageError(err)
	}

	uc.audit.Log(ctx, audit.Event{
		Event:       audit.EventInterviewRescheduled,
		ActorID:     actorID,
		InterviewID: updated.ID,
		Details:     map[string]interface{}{"from": previous, "to": updated.ScheduledAt},
	})
	uc.notifyParticipants(ctx, updated, domain.NotificationInterviewRescheduled,
		"Interview rescheduled",
		fmt.Sprintf("The interview has moved from %s to %s.", formatInstant(previous), formatInstant(updated.ScheduledAt)))
	return updated, nil
}

func (uc *interviewUsecase) Cancel(ctx context.Context, interviewID, reason, cancelledBy string) (*domain.Interview, error) {
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.Validation("reason", "Reason is required")
	}
	if len(reason) > 1000 {
		return nil, apperror.Validation("reason", "Reason must be at most 1000 characters")
	}

	current, err := uc.load(ctx, interviewID)
	if err != nil {
		return nil, err
	}

	var updated *domain.Interview
	locks := []domain.LockKey{domain.InterviewerLock(current.InterviewerID), domain.ApplicationLock(current.ApplicationID)}
	err = uc.repo.Atomic(ctx, locks, func(tx domain.InterviewTx) error {
		iv, err := getInTx(ctx, tx, interviewID)
		if err != nil {
			return err
		}
		if !isParticipant(iv, cancelledBy) {
			return apperror.Unauthorized("Only the candidate or the interviewer can cancel this interview")
		}
		next, err := transition(iv, domain.ActionCancel)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		by := cancelledBy
		iv.Status = next
		iv.CancelledBy = &by
		iv.CancellationReason = &reason
		iv.Notes = appendNote(iv.Notes, now, "Cancelled: "+reason)
		iv.UpdatedAt = now
		if err := tx.UpdateInterview(ctx, iv); err != nil {
			return err
		}

		app, err := tx.GetApplication(ctx, iv.ApplicationID)
		if errors.Is(err, domain.ErrNotFound) {
			updated = iv
			return nil
		}
		if err != nil {
			return err
		}
		if app.Status == domain.ApplicationStatusInterviewScheduled && iv.PreviousApplicationStatus != "" &&
			iv.PreviousApplicationStatus != domain.ApplicationStatusInterviewScheduled {
			if err := tx.UpdateApplicationStatus(ctx, app.ID, iv.PreviousApplicationStatus); err != nil {
				return err
			}
		}
		updated = iv
		return nil
	})
	if err != nil {
		uc.auditFailure(ctx, err, cancelledBy, interviewID, "cancel")
		return nil, storageError(err)
	}

	uc.audit.Log(ctx, audit.Event{
		Event:       audit.EventInterviewCancelled,
		ActorID:     cancelledBy,
		InterviewID: updated.ID,
		Details:     map[string]interface{}{"reason": reason},
	})
	uc.notifyParticipants(ctx, updated, domain.NotificationInterviewCancelled,
		"Interview cancelled",
		fmt.Sprintf("The interview on %s was cancelled: %s", formatInstant(updated.ScheduledAt), reason))
	return updated, nil
}

func (uc *interviewUsecase) SubmitFeedback(ctx context.Context, interviewID, interviewerID string, feedback domain.InterviewFeedback) (*domain.Interview, error) {
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()

	if err := uc.validate.Struct(feedback); err != nil {
		return nil, validationError(err)
	}

	// A missing interview and someone else's interview are reported the same way.
	current, err := uc.repo.GetByID(ctx, interviewID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.NotFound("Interview not found")
		}
		return nil, apperror.Internal(err)
	}
	if current.InterviewerID != interviewerID {
		uc.audit.Log(ctx, audit.Event{
			Event:       audit.EventActorMismatch,
			ActorID:     interviewerID,
			InterviewID: interviewID,
			Details:     map[string]interface{}{"operation": "submit_feedback"},
		})
		return nil, apperror.NotFound("Interview not found")
	}

	var updated *domain.Interview
	err = uc.repo.Atomic(ctx, []domain.LockKey{domain.InterviewerLock(current.InterviewerID)}, func(tx domain.InterviewTx) error {
		iv, err := getInTx(ctx, tx, interviewID)
		if err != nil {
			return err
		}
		if iv.InterviewerID != interviewerID {
			return apperror.NotFound("Interview not found")
		}
		next, err := transition(iv, domain.ActionComplete)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		fb := feedback
		fb.SubmittedAt = now
		iv.Feedback = &fb
		iv.Status = next
		iv.UpdatedAt = now
		if err := tx.UpdateInterview(ctx, iv); err != nil {
			return err
		}
		updated = iv
		return nil
	})
	if err != nil {
		uc.auditFailure(ctx, err, interviewerID, interviewID, "submit_feedback")
		return nil, storageError(err)
	}

	uc.audit.Log(ctx, audit.Event{
		Event:       audit.EventInterviewCompleted,
		ActorID:     interviewerID,
		InterviewID: updated.ID,
		Details:     map[string]interface{}{"rating": feedback.Rating, "recommendation": feedback.Recommendation},
	})
	uc.notify(ctx, updated.CandidateID, updated, domain.NotificationInterviewCompleted,
		"Interview completed", "Thank you for attending your interview. The hiring team will be in touch.")
	return updated, nil
}

func (uc *interviewUsecase) GetInterview(ctx context.Context, id string) (*domain.Interview, error) {
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()
	return uc.load(ctx, id)
}

func (uc *interviewUsecase) GetInterviews(ctx context.Context, filter domain.InterviewFilter) (*domain.PaginatedResult[domain.Interview], error) {
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperror.Validation("status", "Invalid interview status")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, apperror.Validation("to", "End of range cannot be before its start")
	}

	interviews, total, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to list interviews: %w", err))
	}

	totalPages := int(total) / filter.Limit
	if int(total)%filter.Limit > 0 {
		totalPages++
	}

	return &domain.PaginatedResult[domain.Interview]{
		Data:       interviews,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.Limit,
		TotalPages: totalPages,
	}, nil
}

func (uc *interviewUsecase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.contextTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, uc.contextTimeout)
}

func (uc *interviewUsecase) load(ctx context.Context, id string) (*domain.Interview, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperror.NotFound("Interview not found")
	}
	iv, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.NotFound("Interview not found")
		}
		return nil, apperror.Internal(err)
	}
	return iv, nil
}

// auditFailure records rejected writes that matter to the audit trail.
func (uc *interviewUsecase) auditFailure(ctx context.Context, err error, actorID, interviewID, op string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return
	}
	event := audit.Event{ActorID: actorID, InterviewID: interviewID, Details: map[string]interface{}{"operation": op}}
	switch appErr.Kind {
	case apperror.KindConflict:
		event.Event = audit.EventBookingConflict
		for k, v := range appErr.Details {
			event.Details[k] = v
		}
	case apperror.KindUnauthorized:
		event.Event = audit.EventActorMismatch
	case apperror.KindInvalidState:
		event.Event = audit.EventInvalidTransition
	default:
		return
	}
	uc.audit.Log(ctx, event)
}

func (uc *interviewUsecase) notifyParticipants(ctx context.Context, iv *domain.Interview, kind domain.NotificationKind, title, body string) {
	uc.notify(ctx, iv.CandidateID, iv, kind, title, body)
	uc.notify(ctx, iv.InterviewerID, iv, kind, title, body)
}

// notify enqueues after commit. A failed enqueue is logged and never undoes
// the committed change.
func (uc *interviewUsecase) notify(ctx context.Context, userID string, iv *domain.Interview, kind domain.NotificationKind, title, body string) {
	if uc.notifier == nil || userID == "" {
		return
	}
	n := domain.Notification{
		UserID: userID,
		Kind:   kind,
		Title:  title,
		Body:   body,
		Data: map[string]interface{}{
			"interview_id":     iv.ID,
			"application_id":   iv.ApplicationID,
			"scheduled_at":     iv.ScheduledAt,
			"duration_minutes": iv.DurationMinutes,
			"status":           iv.Status,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.notifier.Enqueue(context.WithoutCancel(ctx), n); err != nil {
		logger.Log.Warn("failed to enqueue notification",
			"kind", kind, "interview_id", iv.ID, "error", err)
	}
}

func getInTx(ctx context.Context, tx domain.InterviewTx, id string) (*domain.Interview, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperror.NotFound("Interview not found")
	}
	iv, err := tx.GetInterview(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.NotFound("Interview not found")
		}
		return nil, err
	}
	return iv, nil
}

func transition(iv *domain.Interview, action domain.InterviewAction) (domain.InterviewStatus, error) {
	next, ok := domain.NextStatus(iv.Status, action)
	if !ok {
		return "", apperror.InvalidState(fmt.Sprintf("Cannot %s an interview that is %s", action, iv.Status)).
			WithDetail("status", iv.Status).
			WithDetail("action", action)
	}
	return next, nil
}

func isParticipant(iv *domain.Interview, userID string) bool {
	return userID != "" && (userID == iv.InterviewerID || userID == iv.CandidateID)
}

func conflictError(message string, clash *domain.Interview) *apperror.AppError {
	w := clash.Window()
	return apperror.Conflict(message).
		WithDetail("conflicting_interview_id", clash.ID).
		WithDetail("conflicting_start", w.Start).
		WithDetail("conflicting_end", w.End)
}

// storageError passes AppErrors through and maps storage sentinels.
func storageError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		return apperror.Conflict("Application already has an active interview")
	case errors.Is(err, domain.ErrNotFound):
		return apperror.NotFound("Interview not found")
	}
	return apperror.Internal(err)
}

func validationError(err error) *apperror.AppError {
	messages := validation.FormatValidationErrors(err)
	message := err.Error()
	if len(messages) > 0 {
		message = messages[0]
	}
	appErr := apperror.Validation(validation.FirstField(err), message)
	if len(messages) > 1 {
		appErr.WithDetail("errors", messages)
	}
	return appErr
}

func appendNote(notes string, at time.Time, text string) string {
	line := fmt.Sprintf("[%s] %s", at.UTC().Format("2006-01-02 15:04 UTC"), text)
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

func formatInstant(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04 UTC")
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
