package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go-recruitment-scheduler/internal/domain"
	"go-recruitment-scheduler/pkg/audit"
	"go-recruitment-scheduler/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// ReminderRule sends a reminder of Kind once an interview starts within Lead.
type ReminderRule struct {
	Kind domain.ReminderKind
	Lead time.Duration
}

// DefaultReminderRules is the single 24 hour reminder.
var DefaultReminderRules = []ReminderRule{{Kind: domain.ReminderKind24Hour, Lead: 24 * time.Hour}}

// remindableStatuses are the states that get reminders.
var remindableStatuses = []domain.InterviewStatus{
	domain.InterviewStatusScheduled,
	domain.InterviewStatusConfirmed,
}

type reminderUsecase struct {
	interviewRepo domain.InterviewRepository
	reminderRepo  domain.ReminderRepository
	notifier      domain.Notifier
	audit         *audit.Logger
	rules         []ReminderRule
	concurrency   int
}

// NewReminderUsecase creates the reminder sweeper. concurrency bounds how many
// interviews are processed at once.
func NewReminderUsecase(interviewRepo domain.InterviewRepository, reminderRepo domain.ReminderRepository, notifier domain.Notifier, auditLog *audit.Logger, rules []ReminderRule, concurrency int) domain.ReminderUsecase {
	if len(rules) == 0 {
		rules = DefaultReminderRules
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if auditLog == nil {
		auditLog = audit.Nop()
	}
	return &reminderUsecase{
		interviewRepo: interviewRepo,
		reminderRepo:  reminderRepo,
		notifier:      notifier,
		audit:         auditLog,
		rules:         rules,
		concurrency:   concurrency,
	}
}

// SendDueReminders enqueues reminders for every interview due under any rule
// and returns how many markers it wrote. A failure on one interview never
// stops the others.
func (uc *reminderUsecase) SendDueReminders(ctx context.Context, now time.Time) (int, error) {
	var sent atomic.Int64

	for _, rule := range uc.rules {
		window := domain.TimeWindow{Start: now, End: now.Add(rule.Lead)}
		due, err := uc.interviewRepo.ListDueForReminder(ctx, window, remindableStatuses, rule.Kind)
		if err != nil {
			return int(sent.Load()), fmt.Errorf("list interviews due for %s reminder: %w", rule.Kind, err)
		}

		var g errgroup.Group
		g.SetLimit(uc.concurrency)
		for i := range due {
			iv := due[i]
			g.Go(func() error {
				if uc.remind(ctx, iv, rule.Kind, now) {
					sent.Add(1)
				}
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return int(sent.Load()), err
		}
	}
	return int(sent.Load()), nil
}

// remind enqueues then marks. Without a successful enqueue no marker is
// written, so the next sweep retries. A marker failure after enqueue can
// cause a duplicate send but never a missed one.
func (uc *reminderUsecase) remind(ctx context.Context, iv domain.Interview, kind domain.ReminderKind, now time.Time) bool {
	if ctx.Err() != nil {
		return false
	}

	for _, userID := range []string{iv.CandidateID, iv.InterviewerID} {
		if userID == "" {
			continue
		}
		n := domain.Notification{
			UserID: userID,
			Kind:   domain.NotificationInterviewReminder,
			Title:  "Upcoming interview",
			Body:   fmt.Sprintf("Reminder: you have an interview on %s.", formatInstant(iv.ScheduledAt)),
			Data: map[string]interface{}{
				"interview_id":  iv.ID,
				"reminder_type": kind,
				"scheduled_at":  iv.ScheduledAt,
			},
			CreatedAt: now,
		}
		if err := uc.notifier.Enqueue(ctx, n); err != nil {
			logger.Log.Warn("reminder enqueue failed, will retry next sweep",
				"interview_id", iv.ID, "reminder_type", kind, "error", err)
			return false
		}
	}

	inserted, err := uc.reminderRepo.MarkSent(ctx, domain.ReminderMarker{InterviewID: iv.ID, Kind: kind, SentAt: now})
	if err != nil {
		logger.Log.Error("failed to record reminder marker",
			"interview_id", iv.ID, "reminder_type", kind, "error", err)
		return false
	}
	if !inserted {
		return false
	}

	uc.audit.Log(ctx, audit.Event{
		Event:       audit.EventReminderSent,
		InterviewID: iv.ID,
		Details:     map[string]interface{}{"reminder_type": kind},
	})
	return true
}
