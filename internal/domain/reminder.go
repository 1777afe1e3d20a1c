package domain

import (
	"context"
	"time"
)

// ReminderKind identifies one reminder policy, e.g. "24_hour".
type ReminderKind string

const ReminderKind24Hour ReminderKind = "24_hour"

// ReminderMarker records that a reminder of Kind went out for an interview.
// Markers are only ever inserted.
type ReminderMarker struct {
	InterviewID string       `json:"interview_id"`
	Kind        ReminderKind `json:"reminder_type"`
	SentAt      time.Time    `json:"sent_at"`
}

// ReminderRepository defines data access for reminder markers
type ReminderRepository interface {
	// MarkSent inserts the marker unless one already exists for
	// (interview, kind). inserted is false for an existing marker.
	MarkSent(ctx context.Context, marker ReminderMarker) (inserted bool, err error)
}

// ReminderUsecase sends due interview reminders
type ReminderUsecase interface {
	SendDueReminders(ctx context.Context, now time.Time) (int, error)
}
