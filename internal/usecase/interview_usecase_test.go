package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go-recruitment-scheduler/internal/domain"
	"go-recruitment-scheduler/internal/repository/memory"
	"go-recruitment-scheduler/internal/usecase"
	"go-recruitment-scheduler/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func asAppError(t *testing.T, err error) *apperror.AppError {
	t.Helper()
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr), "expected *apperror.AppError, got %v", err)
	return appErr
}

func TestSchedule(t *testing.T) {
	ctx := context.Background()
	day := nextMonday()

	t.Run("Should create the interview and move the application", func(t *testing.T) {
		f := newFixture(t)
		f.addApplication(1)

		iv := f.schedule(t, 1, "int-1", hoursAfter(day, 10, 0), 60)

		assert.NotEmpty(t, iv.ID)
		assert.Equal(t, domain.InterviewStatusScheduled, iv.Status)
		assert.Equal(t, candidateOf(1), iv.CandidateID)
		assert.Equal(t, int64(100), iv.JobID)

		app, ok := f.store.Application(1)
		require.True(t, ok)
		assert.Equal(t, domain.ApplicationStatusInterviewScheduled, app.Status)

		sent := f.notifier.ofKind(domain.NotificationInterviewScheduled)
		require.Len(t, sent, 2)
		assert.ElementsMatch(t, []string{candidateOf(1), "int-1"}, []string{sent[0].UserID, sent[1].UserID})
	})

	t.Run("Should fail with not found for an unknown application", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.uc.Schedule(ctx, "employer-1", domain.ScheduleInput{
			ApplicationID:   42,
			InterviewerID:   "int-1",
			ScheduledAt:     hoursAfter(day, 10, 0),
			DurationMinutes: 60,
			Type:            domain.InterviewTypePhone,
		})
		assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
		assert.Empty(t, f.notifier.all())
	})

	t.Run("Should reject a second active interview on the same application", func(t *testing.T) {
		f := newFixture(t)
		f.addApplication(1)
		first := f.schedule(t, 1, "int-1", hoursAfter(day, 10, 0), 60)

		_, err := f.uc.Schedule(ctx, "employer-1", domain.ScheduleInput{
			ApplicationID:   1,
			InterviewerID:   "int-2",
			ScheduledAt:     hoursAfter(day, 14, 0),
			DurationMinutes: 30,
			Type:            domain.InterviewTypeOnsite,
		})
		appErr := asAppError(t, err)
		assert.Equal(t, apperror.KindConflict, appErr.Kind)
		assert.Equal(t, first.ID, appErr.Details["conflicting_interview_id"])
	})

	t.Run("Should reject an overlapping interview for the same interviewer", func(t *testing.T) {
		f := newFixture(t)
		f.addApplication(1)
		f.addApplication(2)
		first := f.schedule(t, 1, "int-1", hoursAfter(day, 10, 0), 60)

		_, err := f.uc.Schedule(ctx, "employer-1", domain.ScheduleInput{
			ApplicationID:   2,
			InterviewerID:   "int-1",
			ScheduledAt:     hoursAfter(day, 10, 30),
			DurationMinutes: 60,
			Type:            domain.InterviewTypeVideo,
		})
		appErr := asAppError(t, err)
		assert.Equal(t, apperror.KindConflict, appErr.Kind)
		assert.Equal(t, first.ID, appErr.Details["conflicting_interview_id"])
		assert.Equal(t, first.ScheduledAt, appErr.Details["conflicting_start"])
		assert.Equal(t, first.ScheduledAt.Add(time.Hour), appErr.Details["conflicting_end"])

		app, _ := f.store.Application(2)
		assert.Equal(t, domain.ApplicationStatusReviewed, app.Status)
	})

	t.Run("Should allow back-to-back interviews", func(t *testing.T) {
		f := newFixture(t)
		f.addApplication(1)
		f.addApplication(2)
		f.schedule(t, 1, "int-1", hoursAfter(day, 10, 0), 60)
		iv := f.schedule(t, 2, "int-1", hoursAfter(day, 11, 0), 60)
		assert.Equal(t, domain.InterviewStatusScheduled, iv.Status)
	})

	t.Run("Should reject a time in the past", func(t *testing.T) {
		f := newFixture(t)
		f.addApplication(1)
		_, err := f.uc.Schedule(ctx, "employer-1", domain.ScheduleInput{
			ApplicationID:   1,
			InterviewerID:   "int-1",
			ScheduledAt:     time.Now().Add(-time.Hour),
			DurationMinutes: 60,
			Type:            domain.InterviewTypeVideo,
		})
		appErr := asAppError(t, err)
		assert.Equal(t, apperror.KindValidation, appErr.Kind)
		assert.Equal(t, "scheduled_at", appErr.Details["field"])
	})

	t.Run("Should reject invalid input", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.uc.Schedule(ctx, "employer-1", domain.ScheduleInput{
			ApplicationID:   1,
			InterviewerID:   "int-1",
			ScheduledAt:     hoursAfter(day, 10, 0),
			DurationMinutes: 0,
			Type:            "carrier_pigeon",
		})
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})
}

func TestScheduleConcurrent(t *testing.T) {
	f := newFixture(t)
	const n = 12
	for i := int64(1); i <= n; i++ {
		f.addApplication(i)
	}
	at := hoursAfter(nextMonday(), 15, 0)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := int64(1); i <= n; i++ {
		wg.Add(1)
		go func(appID int64) {
			defer wg.Done()
			_, err := f.uc.Schedule(context.Background(), "employer-1", domain.ScheduleInput{
				ApplicationID:   appID,
				InterviewerID:   "int-busy",
				ScheduledAt:     at,
				DurationMinutes: 45,
				Type:            domain.InterviewTypeVideo,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperror.IsKind(err, apperror.KindConflict):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)

	stored, total, err := f.interviews.List(context.Background(), domain.InterviewFilter{InterviewerID: "int-busy"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, stored, 1)
}

func TestConfirm(t *testing.T) {
	f := newFixture(t)
	f.addApplication(1)
	iv := f.schedule(t, 1, "int-1", hoursAfter(nextMonday(), 9, 0), 30)
	ctx := context.Background()

	t.Run("Should reject someone outside the interview", func(t *testing.T) {
		_, err := f.uc.Confirm(ctx, iv.ID, "stranger")
		assert.True(t, apperror.IsKind(err, apperror.KindUnauthorized))
	})

	t.Run("Should confirm for the candidate", func(t *testing.T) {
		got, err := f.uc.Confirm(ctx, iv.ID, candidateOf(1))
		require.NoError(t, err)
		assert.Equal(t, domain.InterviewStatusConfirmed, got.Status)
		assert.Len(t, f.notifier.ofKind(domain.NotificationInterviewConfirmed), 2)
	})

	t.Run("Should not confirm twice", func(t *testing.T) {
		_, err := f.uc.Confirm(ctx, iv.ID, "int-1")
		appErr := asAppError(t, err)
		assert.Equal(t, apperror.KindInvalidState, appErr.Kind)
		assert.Equal(t, domain.InterviewStatusConfirmed, appErr.Details["status"])
	})

	t.Run("Should fail with not found for an unknown interview", func(t *testing.T) {
		_, err := f.uc.Confirm(ctx, "missing", "int-1")
		assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
	})
}

func TestScheduleRacesReschedule(t *testing.T) {
	day := nextMonday()
	for round := 0; round < 20; round++ {
		f := newFixture(t)
		f.addApplication(1)
		f.addApplication(2)
		existing := f.schedule(t, 1, "int-1", hoursAfter(day, 9, 0), 60)
		target := hoursAfter(day, 14, 0)

		var wg sync.WaitGroup
		var errs [2]error
		start := make(chan struct{})
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, errs[0] = f.uc.Schedule(context.Background(), "employer-1", domain.ScheduleInput{
				ApplicationID:   2,
				InterviewerID:   "int-1",
				ScheduledAt:     target,
				DurationMinutes: 60,
				Type:            domain.InterviewTypeVideo,
			})
		}()
		go func() {
			defer wg.Done()
			<-start
			_, errs[1] = f.uc.Reschedule(context.Background(), existing.ID, "employer-1", domain.RescheduleInput{
				ScheduledAt: target.Add(30 * time.Minute),
			})
		}()
		close(start)
		wg.Wait()

		var successes, conflicts int
		for _, err := range errs {
			switch {
			case err == nil:
				successes++
			case apperror.IsKind(err, apperror.KindConflict):
				conflicts++
			}
		}
		require.Equal(t, 1, successes, "round %d: %v", round, errs)
		require.Equal(t, 1, conflicts, "round %d: %v", round, errs)

		active, err := f.interviews.ListActiveInRange(context.Background(), "int-1", domain.NewWindow(target, 2*time.Hour))
		require.NoError(t, err)
		assert.Len(t, active, 1)
	}
}

func TestReschedule(t *testing.T) {
	ctx := context.Background()
	day := nextMonday()

	t.Run("Should move the interview over its own old window", func(t *testing.T) {
		f := newFixture(t)
		f.addApplication(1)
		iv := f.schedule(t, 1, "int-1", hoursAfter(day, 10, 0), 60)

		got, err := f.uc.Reschedule(ctx, iv.ID, "employer-1", domain.RescheduleInput{
			ScheduledAt: hoursAfter(day, 10, 30),
			Reason:      "Interviewer running late",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.InterviewStatusRescheduled, got.Status)
		assert.Equal(t, hoursAfter(day, 10, 30), got.ScheduledAt)
		assert.Equal(t, 60, got.DurationMinutes)
		assert.Contains(t, got.Notes, "Rescheduled from")
		assert.True(t, strings.HasSuffix(got.Notes, ": Interviewer running late"))
		assert.Len(t, f.notifier.ofKind(domain.NotificationInterviewRescheduled), 2)

		stored, err := f.uc.GetInterview(ctx, iv.ID)
		require.NoError(t, err)
		assert.Equal(t, got.ScheduledAt, stored.ScheduledAt)
	})

	t.Run("Should reject a move onto another interview", func(t *testing.T) {
		f := newFixture(t)
		f.addApplication(1)
		f.addApplication(2)
		iv := f.schedule(t, 1, "int-1", hoursAfter(day, 10, 0), 60)
		other := f.schedule(t, 2, "int-1", hoursAfter(day, 13, 0), 60)

		_, err := f.uc.Reschedule(ctx, iv.ID, "employer-1", domain.RescheduleInput{
			ScheduledAt:     hoursAfter(day, 12, 30),
			DurationMinutes: 45,
		})
		appErr := asAppError(t, err)
		assert.Equal(t, apperror.KindConflict, appErr.Kind)
		assert.Equal(t, other.ID, appErr.Details["conflicting_interview_id"])

		stored, err := f.uc.GetInterview(ctx, iv.ID)
		require.NoError(t, err)
		assert.Equal(t, hoursAfter(day, 10, 0), stored.ScheduledAt)
		assert.Equal(t, domain.InterviewStatusScheduled, stored.Status)
	})

	t.Run("Should move there and back again", func(t *testing.T) {
		f := newFixture(t)
		f.addApplication(1)
		original := hoursAfter(day, 10, 0)
		iv := f.schedule(t, 1, "int-1", original, 60)

		moved, err := f.uc.Reschedule(ctx, iv.ID, "employer-1", domain.RescheduleInput{ScheduledAt: hoursAfter(day, 14, 0)})
		require.NoError(t, err)
		assert.Equal(t, hoursAfter(day, 14, 0), moved.ScheduledAt)

		back, err := f.uc.Reschedule(ctx, iv.ID, "employer-1", domain.RescheduleInput{ScheduledAt: original})
		require.NoError(t, err)
		assert.Equal(t, original, back.ScheduledAt)
		assert.Equal(t, domain.InterviewStatusRescheduled, back.Status)
		assert.Equal(t, 2, strings.Count(back.Notes, "Rescheduled from"))
	})

	t.Run("Should not find a malformed id", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.uc.Reschedule(ctx, "abc", "employer-1", domain.RescheduleInput{ScheduledAt: hoursAfter(day, 9, 0)})
		assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

		_, err = f.uc.GetInterview(ctx, "abc")
		assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
	})

	t.Run("Should reject a cancelled interview", func(t *testing.T) {
		f := newFixture(t)
		f.addApplication(1)
		iv := f.schedule(t, 1, "int-1", hoursAfter(day, 10, 0), 60)
		_, err := f.uc.Cancel(ctx, iv.ID, "Position filled", "int-1")
		require.NoError(t, err)

		_, err = f.uc.Reschedule(ctx, iv.ID, "employer-1", domain.RescheduleInput{ScheduledAt: hoursAfter(day, 15, 0)})
		assert.True(t, apperror.IsKind(err, apperror.KindInvalidState))
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	day := nextMonday()

	t.Run("Should require a reason", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.uc.Cancel(ctx, "any", "   ", "int-1")
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})

	t.Run("Should reject someone outside the interview", func(t *testing.T) {
		f := newFixture(t)
		f.addApplication(1)
		iv := f.schedule(t, 1, "int-1", hoursAfter(day, 10, 0), 60)

		_, err := f.uc.Cancel(ctx, iv.ID, "Not needed", "stranger")
		assert.True(t, apperror.IsKind(err, apperror.KindUnauthorized))

		stored, _ := f.uc.GetInterview(ctx, iv.ID)
		assert.Equal(t, domain.InterviewStatusScheduled, stored.Status)
	})

	t.Run("Should cancel and restore the application status", func(t *testing.T) {
		f := newFixture(t)
		f.addApplication(1)
		iv := f.schedule(t, 1, "int-1", hoursAfter(day, 10, 0), 60)

		got, err := f.uc.Cancel(ctx, iv.ID, "Candidate withdrew", candidateOf(1))
		require.NoError(t, err)
		assert.Equal(t, domain.InterviewStatusCancelled, got.Status)
		require.NotNil(t, got.CancelledBy)
		assert.Equal(t, candidateOf(1), *got.CancelledBy)
		require.NotNil(t, got.CancellationReason)
		assert.Equal(t, "Candidate withdrew", *got.CancellationReason)
		assert.Contains(t, got.Notes, "Cancelled: Candidate withdrew")

		app, _ := f.store.Application(1)
		assert.Equal(t, domain.ApplicationStatusReviewed, app.Status)
		assert.Len(t, f.notifier.ofKind(domain.NotificationInterviewCancelled), 2)
	})

	t.Run("Should leave an application that has moved on", func(t *testing.T) {
		f := newFixture(t)
		f.addApplication(1)
		iv := f.schedule(t, 1, "int-1", hoursAfter(day, 10, 0), 60)
		f.store.PutApplication(domain.Application{ID: 1, JobID: 100, CandidateUserID: candidateOf(1), Status: domain.ApplicationStatusAccepted})

		_, err := f.uc.Cancel(ctx, iv.ID, "Hired already", "int-1")
		require.NoError(t, err)

		app, _ := f.store.Application(1)
		assert.Equal(t, domain.ApplicationStatusAccepted, app.Status)
	})

	t.Run("Should free the interviewer's time", func(t *testing.T) {
		f := newFixture(t)
		f.addApplication(1)
		f.addApplication(2)
		iv := f.schedule(t, 1, "int-1", hoursAfter(day, 10, 0), 60)
		_, err := f.uc.Cancel(ctx, iv.ID, "Rebooking", "int-1")
		require.NoError(t, err)

		f.schedule(t, 2, "int-1", hoursAfter(day, 10, 0), 60)
	})

	t.Run("Should not cancel a completed interview", func(t *testing.T) {
		f := newFixture(t)
		f.addApplication(1)
		iv := f.schedule(t, 1, "int-1", hoursAfter(day, 10, 0), 60)
		_, err := f.uc.SubmitFeedback(ctx, iv.ID, "int-1", domain.InterviewFeedback{Rating: 4, Recommendation: domain.RecommendationYes})
		require.NoError(t, err)

		_, err = f.uc.Cancel(ctx, iv.ID, "Too late", "int-1")
		appErr := asAppError(t, err)
		assert.Equal(t, apperror.KindInvalidState, appErr.Kind)
		assert.Equal(t, domain.InterviewStatusCompleted, appErr.Details["status"])
	})
}

func TestSubmitFeedback(t *testing.T) {
	ctx := context.Background()
	day := nextMonday()

	t.Run("Should complete the interview and notify the candidate", func(t *testing.T) {
		f := newFixture(t)
		f.addApplication(1)
		iv := f.schedule(t, 1, "int-1", hoursAfter(day, 10, 0), 60)
		comments := "Clear communicator"

		got, err := f.uc.SubmitFeedback(ctx, iv.ID, "int-1", domain.InterviewFeedback{
			Rating:         5,
			Recommendation: domain.RecommendationStrongYes,
			Comments:       &comments,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.InterviewStatusCompleted, got.Status)
		require.NotNil(t, got.Feedback)
		assert.Equal(t, 5, got.Feedback.Rating)
		assert.False(t, got.Feedback.SubmittedAt.IsZero())

		completed := f.notifier.ofKind(domain.NotificationInterviewCompleted)
		require.Len(t, completed, 1)
		assert.Equal(t, candidateOf(1), completed[0].UserID)
	})

	t.Run("Should hide interviews of other interviewers", func(t *testing.T) {
		f := newFixture(t)
		f.addApplication(1)
		iv := f.schedule(t, 1, "int-1", hoursAfter(day, 10, 0), 60)
		fb := domain.InterviewFeedback{Rating: 3, Recommendation: domain.RecommendationMaybe}

		_, errMismatch := f.uc.SubmitFeedback(ctx, iv.ID, "int-2", fb)
		_, errMissing := f.uc.SubmitFeedback(ctx, "missing", "int-2", fb)

		assert.True(t, apperror.IsKind(errMismatch, apperror.KindNotFound))
		assert.True(t, apperror.IsKind(errMissing, apperror.KindNotFound))
		assert.Equal(t, errMissing.Error(), errMismatch.Error())

		stored, _ := f.uc.GetInterview(ctx, iv.ID)
		assert.Nil(t, stored.Feedback)
	})

	t.Run("Should validate the feedback", func(t *testing.T) {
		f := newFixture(t)
		f.addApplication(1)
		iv := f.schedule(t, 1, "int-1", hoursAfter(day, 10, 0), 60)

		_, err := f.uc.SubmitFeedback(ctx, iv.ID, "int-1", domain.InterviewFeedback{Rating: 9, Recommendation: "definitely"})
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})
}

func TestNotificationFailureDoesNotUndoCommit(t *testing.T) {
	store := memory.NewStore()
	store.PutApplication(domain.Application{ID: 1, JobID: 100, CandidateUserID: "cand-1", Status: domain.ApplicationStatusApplied})
	repo := memory.NewInterviewRepository(store)

	notifier := new(MockNotifier)
	notifier.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("queue full"))

	uc := usecase.NewInterviewUsecase(repo, notifier, nil, nil, time.Second)
	iv, err := uc.Schedule(context.Background(), "employer-1", domain.ScheduleInput{
		ApplicationID:   1,
		InterviewerID:   "int-1",
		ScheduledAt:     hoursAfter(nextMonday(), 10, 0),
		DurationMinutes: 60,
		Type:            domain.InterviewTypeVideo,
	})
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), iv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InterviewStatusScheduled, stored.Status)
	notifier.AssertNumberOfCalls(t, "Enqueue", 2)
}

func TestGetInterviews(t *testing.T) {
	f := newFixture(t)
	day := nextMonday()
	for i := int64(1); i <= 3; i++ {
		f.addApplication(i)
		f.schedule(t, i, "int-1", hoursAfter(day, 8+int(i), 0), 30)
	}
	ctx := context.Background()

	t.Run("Should paginate in start order", func(t *testing.T) {
		res, err := f.uc.GetInterviews(ctx, domain.InterviewFilter{InterviewerID: "int-1", Page: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), res.Total)
		assert.Equal(t, 2, res.TotalPages)
		require.Len(t, res.Data, 2)
		assert.True(t, res.Data[0].ScheduledAt.Before(res.Data[1].ScheduledAt))

		res, err = f.uc.GetInterviews(ctx, domain.InterviewFilter{InterviewerID: "int-1", Page: 2, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, res.Data, 1)
	})

	t.Run("Should filter by candidate", func(t *testing.T) {
		res, err := f.uc.GetInterviews(ctx, domain.InterviewFilter{CandidateID: candidateOf(2)})
		require.NoError(t, err)
		require.Len(t, res.Data, 1)
		assert.Equal(t, int64(2), res.Data[0].ApplicationID)
		assert.Equal(t, 20, res.PageSize)
	})

	t.Run("Should reject an unknown status", func(t *testing.T) {
		_, err := f.uc.GetInterviews(ctx, domain.InterviewFilter{Status: "pending"})
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})
}

func TestExportInterviews(t *testing.T) {
	f := newFixture(t)
	f.addApplication(1)
	f.schedule(t, 1, "int-1", hoursAfter(nextMonday(), 10, 0), 60)
	ctx := context.Background()

	t.Run("Should export csv with a header row", func(t *testing.T) {
		data, filename, err := f.uc.ExportInterviews(ctx, domain.InterviewFilter{}, "csv")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(filename, ".csv"))
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "id,application_id"))
		assert.Contains(t, lines[1], "int-1")
	})

	t.Run("Should export xlsx by default", func(t *testing.T) {
		data, filename, err := f.uc.ExportInterviews(ctx, domain.InterviewFilter{}, "")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(filename, ".xlsx"))
		assert.True(t, len(data) > 0)
		assert.Equal(t, "PK", string(data[:2]))
	})

	t.Run("Should reject an unknown format", func(t *testing.T) {
		_, _, err := f.uc.ExportInterviews(ctx, domain.InterviewFilter{}, "pdf")
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})
}
