package usecase

import (
	"context"
	"fmt"
	"time"

	"go-recruitment-scheduler/internal/domain"
	"go-recruitment-scheduler/pkg/apperror"
	"go-recruitment-scheduler/pkg/audit"

	"github.com/google/uuid"
)

const maxSlotsPerUser = 200

// SetAvailability replaces the user's whole rule set. Nothing is written when
// any rule is invalid.
func (uc *availabilityUsecase) SetAvailability(ctx context.Context, userID string, slots []domain.InterviewSlot) ([]domain.InterviewSlot, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("User not authenticated")
	}
	if len(slots) > maxSlotsPerUser {
		return nil, apperror.Validation("slots", fmt.Sprintf("At most %d availability rules are allowed", maxSlotsPerUser))
	}

	now := time.Now().UTC()
	normalized := make([]domain.InterviewSlot, len(slots))
	for i, s := range slots {
		s.ID = uuid.NewString()
		s.UserID = userID
		s.CreatedAt = now
		if s.MaxInterviewsPerSlot == 0 {
			s.MaxInterviewsPerSlot = 1
		}
		if s.EffectiveFrom.IsZero() {
			s.EffectiveFrom = domain.DateOf(now)
		}
		s.EffectiveFrom = domain.DateOf(s.EffectiveFrom)
		if s.EffectiveUntil != nil {
			until := domain.DateOf(*s.EffectiveUntil)
			s.EffectiveUntil = &until
		}
		if !s.IsRecurring {
			s.DayOfWeek = int(s.EffectiveFrom.Weekday())
		}

		if err := uc.validateSlot(&s); err != nil {
			return nil, err.WithDetail("index", i)
		}
		normalized[i] = s
	}

	if err := uc.slotRepo.ReplaceForUser(ctx, userID, normalized); err != nil {
		return nil, apperror.Internal(fmt.Errorf("replace availability: %w", err))
	}

	uc.audit.Log(ctx, audit.Event{
		Event:   audit.EventAvailabilityReplaced,
		ActorID: userID,
		Details: map[string]interface{}{"rules": len(normalized)},
	})
	return normalized, nil
}

func (uc *availabilityUsecase) ListSlots(ctx context.Context, userID string) ([]domain.InterviewSlot, error) {
	slots, err := uc.slotRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("list availability: %w", err))
	}
	if slots == nil {
		slots = []domain.InterviewSlot{}
	}
	return slots, nil
}

func (uc *availabilityUsecase) validateSlot(s *domain.InterviewSlot) *apperror.AppError {
	if err := uc.validate.Struct(s); err != nil {
		return validationError(err)
	}
	start, err := domain.ParseClock(s.StartTime)
	if err != nil {
		return apperror.Validation("start_time", "Start time must be HH:MM")
	}
	end, err := domain.ParseClock(s.EndTime)
	if err != nil {
		return apperror.Validation("end_time", "End time must be HH:MM")
	}
	if end <= start {
		return apperror.Validation("end_time", "End time must be after start time")
	}
	if s.EffectiveUntil != nil && s.EffectiveUntil.Before(s.EffectiveFrom) {
		return apperror.Validation("effective_until", "Effective until cannot be before effective from")
	}
	return nil
}
