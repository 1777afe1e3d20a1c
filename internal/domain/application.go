package domain

import "time"

// Application status constants
const (
	ApplicationStatusApplied            = "applied"
	ApplicationStatusReviewed           = "reviewed"
	ApplicationStatusInterviewScheduled = "interview_scheduled"
	ApplicationStatusAccepted           = "accepted"
	ApplicationStatusRejected           = "rejected"
)

// Application is the slice of a job application the scheduler reads and
// whose status it moves in and out of interview_scheduled.
type Application struct {
	ID              int64     `json:"id"`
	JobID           int64     `json:"job_id"`
	CandidateUserID string    `json:"candidate_user_id"`
	Status          string    `json:"status"` // applied → reviewed → interview_scheduled → accepted / rejected
	UpdatedAt       time.Time `json:"updated_at"`
}
