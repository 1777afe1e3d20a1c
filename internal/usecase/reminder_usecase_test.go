package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-recruitment-scheduler/internal/domain"
	"go-recruitment-scheduler/internal/repository/memory"
	"go-recruitment-scheduler/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// pendingReminders lists the interviews still owed a 24 hour reminder.
func pendingReminders(t *testing.T, f *fixture, now time.Time) []string {
	t.Helper()
	due, err := f.interviews.ListDueForReminder(context.Background(), domain.NewWindow(now, 24*time.Hour),
		domain.ActiveInterviewStatuses, domain.ReminderKind24Hour)
	require.NoError(t, err)
	ids := make([]string, 0, len(due))
	for _, iv := range due {
		ids = append(ids, iv.ID)
	}
	return ids
}

func TestSendDueReminders(t *testing.T) {
	ctx := context.Background()

	t.Run("Should remind each due interview exactly once", func(t *testing.T) {
		f := newFixture(t)
		now := time.Now().UTC()
		f.addApplication(1)
		f.addApplication(2)
		due := f.schedule(t, 1, "int-1", now.Add(23*time.Hour), 60)
		f.schedule(t, 2, "int-1", now.Add(48*time.Hour), 60)

		reminders := memory.NewReminderRepository(f.store)
		notifier := &recordingNotifier{}
		uc := usecase.NewReminderUsecase(f.interviews, reminders, notifier, nil, nil, 4)

		sent, err := uc.SendDueReminders(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 1, sent)

		got := notifier.ofKind(domain.NotificationInterviewReminder)
		require.Len(t, got, 2)
		assert.ElementsMatch(t, []string{candidateOf(1), "int-1"}, []string{got[0].UserID, got[1].UserID})
		assert.Equal(t, due.ID, got[0].Data["interview_id"])

		pending := pendingReminders(t, f, now)
		assert.NotContains(t, pending, due.ID)

		sent, err = uc.SendDueReminders(ctx, now.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 0, sent)
		assert.Len(t, notifier.all(), 2)
	})

	t.Run("Should skip cancelled and rescheduled interviews", func(t *testing.T) {
		f := newFixture(t)
		now := time.Now().UTC()
		f.addApplication(1)
		f.addApplication(2)
		cancelled := f.schedule(t, 1, "int-1", now.Add(2*time.Hour), 30)
		moved := f.schedule(t, 2, "int-1", now.Add(5*time.Hour), 30)
		_, err := f.uc.Cancel(ctx, cancelled.ID, "No longer needed", "int-1")
		require.NoError(t, err)
		_, err = f.uc.Reschedule(ctx, moved.ID, "employer-1", domain.RescheduleInput{ScheduledAt: now.Add(6 * time.Hour)})
		require.NoError(t, err)

		uc := usecase.NewReminderUsecase(f.interviews, memory.NewReminderRepository(f.store), &recordingNotifier{}, nil, nil, 1)
		sent, err := uc.SendDueReminders(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 0, sent)
	})

	t.Run("Should leave no marker when the enqueue fails", func(t *testing.T) {
		f := newFixture(t)
		now := time.Now().UTC()
		f.addApplication(1)
		iv := f.schedule(t, 1, "int-1", now.Add(3*time.Hour), 30)
		reminders := memory.NewReminderRepository(f.store)

		failing := new(MockNotifier)
		failing.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("queue full"))
		uc := usecase.NewReminderUsecase(f.interviews, reminders, failing, nil, nil, 2)

		sent, err := uc.SendDueReminders(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 0, sent)

		assert.Equal(t, []string{iv.ID}, pendingReminders(t, f, now))

		retry := usecase.NewReminderUsecase(f.interviews, reminders, &recordingNotifier{}, nil, nil, 2)
		sent, err = retry.SendDueReminders(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
	})

	t.Run("Should track each rule separately", func(t *testing.T) {
		f := newFixture(t)
		now := time.Now().UTC()
		f.addApplication(1)
		f.schedule(t, 1, "int-1", now.Add(30*time.Minute), 30)

		rules := []usecase.ReminderRule{
			{Kind: domain.ReminderKind24Hour, Lead: 24 * time.Hour},
			{Kind: "1_hour", Lead: time.Hour},
		}
		uc := usecase.NewReminderUsecase(f.interviews, memory.NewReminderRepository(f.store), &recordingNotifier{}, nil, rules, 2)

		sent, err := uc.SendDueReminders(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 2, sent)
	})

	t.Run("Should stop on a cancelled context", func(t *testing.T) {
		f := newFixture(t)
		now := time.Now().UTC()
		f.addApplication(1)
		f.schedule(t, 1, "int-1", now.Add(time.Hour), 30)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		uc := usecase.NewReminderUsecase(f.interviews, memory.NewReminderRepository(f.store), &recordingNotifier{}, nil, nil, 1)
		sent, err := uc.SendDueReminders(cctx, now)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, sent)
	})
}
