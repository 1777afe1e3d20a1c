package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"go-recruitment-scheduler/internal/domain"
	"go-recruitment-scheduler/internal/repository/memory"
	"go-recruitment-scheduler/internal/usecase"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotifier lets a test decide what Enqueue returns.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Enqueue(ctx context.Context, n domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}

// recordingNotifier keeps every notification it is handed.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (r *recordingNotifier) Enqueue(ctx context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) all() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.sent...)
}

func (r *recordingNotifier) ofKind(kind domain.NotificationKind) []domain.Notification {
	var out []domain.Notification
	for _, n := range r.all() {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

type fixture struct {
	store      *memory.Store
	interviews domain.InterviewRepository
	notifier   *recordingNotifier
	uc         domain.InterviewUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	repo := memory.NewInterviewRepository(store)
	notifier := &recordingNotifier{}
	return &fixture{
		store:      store,
		interviews: repo,
		notifier:   notifier,
		uc:         usecase.NewInterviewUsecase(repo, notifier, nil, nil, 5*time.Second),
	}
}

// addApplication stores application id for candidate "cand-<id>" in status reviewed.
func (f *fixture) addApplication(id int64) {
	f.store.PutApplication(domain.Application{
		ID:              id,
		JobID:           100,
		CandidateUserID: candidateOf(id),
		Status:          domain.ApplicationStatusReviewed,
	})
}

func (f *fixture) schedule(t *testing.T, appID int64, interviewerID string, at time.Time, minutes int) *domain.Interview {
	t.Helper()
	iv, err := f.uc.Schedule(context.Background(), "employer-1", domain.ScheduleInput{
		ApplicationID:   appID,
		InterviewerID:   interviewerID,
		ScheduledAt:     at,
		DurationMinutes: minutes,
		Type:            domain.InterviewTypeVideo,
	})
	require.NoError(t, err)
	return iv
}

func candidateOf(appID int64) string {
	return fmt.Sprintf("cand-%d", appID)
}

// nextMonday is a Monday at 00:00 UTC at least a week from now.
func nextMonday() time.Time {
	d := domain.DateOf(time.Now().UTC()).AddDate(0, 0, 7)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func hoursAfter(day time.Time, h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}
