package usecase

import (
	"context"
	"fmt"

	"go-recruitment-scheduler/internal/domain"
)

// ActiveInterviewLister is the read the conflict check needs. domain.InterviewTx
// satisfies it, so the check runs inside the same unit as the write.
type ActiveInterviewLister interface {
	ListActiveByInterviewer(ctx context.Context, interviewerID string, window domain.TimeWindow) ([]domain.Interview, error)
}

// ConflictDetector decides whether a window collides with an interviewer's
// active interviews.
type ConflictDetector struct{}

func NewConflictDetector() *ConflictDetector {
	return &ConflictDetector{}
}

// FindConflict returns the earliest active interview of interviewerID that
// overlaps window, or nil. The interview with id excludeID is ignored so a
// reschedule never collides with itself.
func (d *ConflictDetector) FindConflict(ctx context.Context, src ActiveInterviewLister, interviewerID string, window domain.TimeWindow, excludeID string) (*domain.Interview, error) {
	existing, err := src.ListActiveByInterviewer(ctx, interviewerID, window)
	if err != nil {
		return nil, fmt.Errorf("list active interviews: %w", err)
	}

	var first *domain.Interview
	for i := range existing {
		iv := &existing[i]
		if iv.ID == excludeID || !iv.IsActive() {
			continue
		}
		if !domain.Overlaps(iv.Window(), window) {
			continue
		}
		if first == nil || iv.ScheduledAt.Before(first.ScheduledAt) {
			first = iv
		}
	}
	return first, nil
}

func (d *ConflictDetector) HasConflict(ctx context.Context, src ActiveInterviewLister, interviewerID string, window domain.TimeWindow, excludeID string) (bool, error) {
	clash, err := d.FindConflict(ctx, src, interviewerID, window, excludeID)
	if err != nil {
		return false, err
	}
	return clash != nil, nil
}
