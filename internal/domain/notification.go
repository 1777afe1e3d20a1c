package domain

import (
	"context"
	"time"
)

// NotificationKind tags what happened so consumers can pick a template.
type NotificationKind string

const (
	NotificationInterviewScheduled   NotificationKind = "interview_scheduled"
	NotificationInterviewConfirmed   NotificationKind = "interview_confirmed"
	NotificationInterviewRescheduled NotificationKind = "interview_rescheduled"
	NotificationInterviewCancelled   NotificationKind = "interview_cancelled"
	NotificationInterviewCompleted   NotificationKind = "interview_completed"
	NotificationInterviewReminder    NotificationKind = "interview_reminder"
)

// Notification is handed to the delivery collaborator.
type Notification struct {
	UserID    string                 `json:"user_id"`
	Kind      NotificationKind       `json:"kind"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Notifier enqueues notifications without waiting for delivery.
type Notifier interface {
	Enqueue(ctx context.Context, n Notification) error
}
