package domain

import (
	"context"
	"strconv"
	"time"
)

// InterviewStatus is the lifecycle state of an interview.
type InterviewStatus string

const (
	InterviewStatusScheduled   InterviewStatus = "scheduled"
	InterviewStatusConfirmed   InterviewStatus = "confirmed"
	InterviewStatusRescheduled InterviewStatus = "rescheduled"
	InterviewStatusCompleted   InterviewStatus = "completed"
	InterviewStatusCancelled   InterviewStatus = "cancelled"
)

// ActiveInterviewStatuses are the non-terminal states. Interviews in these
// states hold their interviewer's time.
var ActiveInterviewStatuses = []InterviewStatus{
	InterviewStatusScheduled,
	InterviewStatusConfirmed,
	InterviewStatusRescheduled,
}

func (s InterviewStatus) IsValid() bool {
	switch s {
	case InterviewStatusScheduled, InterviewStatusConfirmed, InterviewStatusRescheduled,
		InterviewStatusCompleted, InterviewStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is allowed from s.
func (s InterviewStatus) IsTerminal() bool {
	return s == InterviewStatusCompleted || s == InterviewStatusCancelled
}

func (s InterviewStatus) String() string {
	return string(s)
}

// InterviewAction names an operation that moves an interview between states.
type InterviewAction string

const (
	ActionConfirm    InterviewAction = "confirm"
	ActionReschedule InterviewAction = "reschedule"
	ActionCancel     InterviewAction = "cancel"
	ActionComplete   InterviewAction = "complete"
)

// interviewTransitions is the only place allowed moves are declared.
var interviewTransitions = map[InterviewStatus]map[InterviewAction]InterviewStatus{
	InterviewStatusScheduled: {
		ActionConfirm:    InterviewStatusConfirmed,
		ActionReschedule: InterviewStatusRescheduled,
		ActionCancel:     InterviewStatusCancelled,
		ActionComplete:   InterviewStatusCompleted,
	},
	InterviewStatusConfirmed: {
		ActionReschedule: InterviewStatusRescheduled,
		ActionCancel:     InterviewStatusCancelled,
		ActionComplete:   InterviewStatusCompleted,
	},
	InterviewStatusRescheduled: {
		ActionConfirm:    InterviewStatusConfirmed,
		ActionReschedule: InterviewStatusRescheduled,
		ActionCancel:     InterviewStatusCancelled,
		ActionComplete:   InterviewStatusCompleted,
	},
}

// NextStatus looks up the state reached by applying action to from.
// ok is false when the transition is not in the table.
func NextStatus(from InterviewStatus, action InterviewAction) (InterviewStatus, bool) {
	next, ok := interviewTransitions[from][action]
	return next, ok
}

// InterviewType is the medium of the interview.
type InterviewType string

const (
	InterviewTypePhone  InterviewType = "phone"
	InterviewTypeVideo  InterviewType = "video"
	InterviewTypeOnsite InterviewType = "onsite"
)

func (t InterviewType) IsValid() bool {
	switch t {
	case InterviewTypePhone, InterviewTypeVideo, InterviewTypeOnsite:
		return true
	default:
		return false
	}
}

// Recommendation is the interviewer's hiring verdict.
type Recommendation string

const (
	RecommendationStrongYes Recommendation = "strong_yes"
	RecommendationYes       Recommendation = "yes"
	RecommendationMaybe     Recommendation = "maybe"
	RecommendationNo        Recommendation = "no"
	RecommendationStrongNo  Recommendation = "strong_no"
)

// InterviewFeedback is attached when an interview is completed.
type InterviewFeedback struct {
	Rating         int            `json:"rating" validate:"required,min=1,max=5"`
	Recommendation Recommendation `json:"recommendation" validate:"required,oneof=strong_yes yes maybe no strong_no"`
	Strengths      *string        `json:"strengths,omitempty" validate:"omitempty,max=2000"`
	Weaknesses     *string        `json:"weaknesses,omitempty" validate:"omitempty,max=2000"`
	Comments       *string        `json:"comments,omitempty" validate:"omitempty,max=2000"`
	SubmittedAt    time.Time      `json:"submitted_at"`
}

// Interview is one scheduled meeting for exactly one application.
type Interview struct {
	ID              string             `json:"id"`
	ApplicationID   int64              `json:"application_id"`
	JobID           int64              `json:"job_id"`
	CandidateID     string             `json:"candidate_id"`
	InterviewerID   string             `json:"interviewer_id"`
	ScheduledAt     time.Time          `json:"scheduled_at"`
	DurationMinutes int                `json:"duration_minutes"`
	Type            InterviewType      `json:"type"`
	Status          InterviewStatus    `json:"status"`
	Location        *string            `json:"location,omitempty"`
	MeetingLink     *string            `json:"meeting_link,omitempty"`
	Notes           string             `json:"notes"`
	Feedback        *InterviewFeedback `json:"feedback,omitempty"`

	// Application status before this interview moved it to interview_scheduled.
	PreviousApplicationStatus string  `json:"-"`
	CancelledBy               *string `json:"cancelled_by,omitempty"`
	CancellationReason        *string `json:"cancellation_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Window is the time the interview occupies.
func (i *Interview) Window() TimeWindow {
	return NewWindow(i.ScheduledAt, time.Duration(i.DurationMinutes)*time.Minute)
}

// IsActive reports whether the interview still holds its interviewer's time.
func (i *Interview) IsActive() bool {
	return !i.Status.IsTerminal()
}

// InterviewFilter narrows GetInterviews. Zero values mean "any".
type InterviewFilter struct {
	InterviewerID string
	CandidateID   string
	JobID         int64
	Status        InterviewStatus
	From          *time.Time
	To            *time.Time
	Page          int
	Limit         int
}

// ScheduleInput carries the arguments of Schedule.
type ScheduleInput struct {
	ApplicationID   int64         `json:"application_id" validate:"required,gt=0"`
	InterviewerID   string        `json:"interviewer_id" validate:"required"`
	ScheduledAt     time.Time     `json:"scheduled_at" validate:"required"`
	DurationMinutes int           `json:"duration_minutes" validate:"required,gt=0,max=480"`
	Type            InterviewType `json:"type" validate:"required,oneof=phone video onsite"`
	Location        *string       `json:"location,omitempty" validate:"omitempty,max=255"`
	MeetingLink     *string       `json:"meeting_link,omitempty" validate:"omitempty,url"`
	Notes           string        `json:"notes,omitempty" validate:"max=2000"`
}

// RescheduleInput carries the arguments of Reschedule. A zero
// DurationMinutes keeps the current duration.
type RescheduleInput struct {
	ScheduledAt     time.Time `json:"scheduled_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes,omitempty" validate:"omitempty,gt=0,max=480"`
	Reason          string    `json:"reason,omitempty" validate:"max=1000"`
}

// LockKey names a booking lock taken before a scheduling write.
type LockKey string

func InterviewerLock(interviewerID string) LockKey {
	return LockKey("interviewer:" + interviewerID)
}

func ApplicationLock(applicationID int64) LockKey {
	return LockKey("application:" + strconv.FormatInt(applicationID, 10))
}

// InterviewTx is the view of storage available inside an atomic scheduling
// unit. Every read observes the writes made earlier in the same unit.
type InterviewTx interface {
	GetInterview(ctx context.Context, id string) (*Interview, error)
	ListActiveByInterviewer(ctx context.Context, interviewerID string, window TimeWindow) ([]Interview, error)
	FindActiveByApplication(ctx context.Context, applicationID int64) (*Interview, error)
	CreateInterview(ctx context.Context, interview *Interview) error
	UpdateInterview(ctx context.Context, interview *Interview) error

	GetApplication(ctx context.Context, id int64) (*Application, error)
	UpdateApplicationStatus(ctx context.Context, id int64, status string) error
}

// InterviewRepository defines data access for interviews
type InterviewRepository interface {
	// Atomic runs fn as one unit holding the given booking locks. Nothing fn
	// wrote is visible to others unless fn returns nil and the unit commits.
	Atomic(ctx context.Context, locks []LockKey, fn func(tx InterviewTx) error) error

	GetByID(ctx context.Context, id string) (*Interview, error)
	List(ctx context.Context, filter InterviewFilter) ([]Interview, int64, error)
	ListActiveInRange(ctx context.Context, interviewerID string, window TimeWindow) ([]Interview, error)
	// ListDueForReminder returns interviews in statuses whose start lies in
	// (window.Start, window.End] and that have no marker of kind.
	ListDueForReminder(ctx context.Context, window TimeWindow, statuses []InterviewStatus, kind ReminderKind) ([]Interview, error)
}

// InterviewUsecase defines the scheduling operations
type InterviewUsecase interface {
	Schedule(ctx context.Context, actorID string, in ScheduleInput) (*Interview, error)
	Confirm(ctx context.Context, interviewID, actorID string) (*Interview, error)
	Reschedule(ctx context.Context, interviewID, actorID string, in RescheduleInput) (*Interview, error)
	Cancel(ctx context.Context, interviewID, reason, cancelledBy string) (*Interview, error)
	SubmitFeedback(ctx context.Context, interviewID, interviewerID string, feedback InterviewFeedback) (*Interview, error)

	GetInterview(ctx context.Context, id string) (*Interview, error)
	GetInterviews(ctx context.Context, filter InterviewFilter) (*PaginatedResult[Interview], error)
	ExportInterviews(ctx context.Context, filter InterviewFilter, format string) ([]byte, string, error)
}
