package domain

import (
	"context"
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// InterviewSlot is one availability rule declared by an interviewer.
type InterviewSlot struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"user_id"`
	DayOfWeek            int        `json:"day_of_week" validate:"min=0,max=6"` // 0 = Sunday
	StartTime            string     `json:"start_time" validate:"required,clock"`
	EndTime              string     `json:"end_time" validate:"required,clock"`
	Timezone             string     `json:"timezone" validate:"required,timezone"`
	IsRecurring          bool       `json:"is_recurring"`
	EffectiveFrom        time.Time  `json:"effective_from"`
	EffectiveUntil       *time.Time `json:"effective_until,omitempty"`
	MaxInterviewsPerSlot int        `json:"max_interviews_per_slot" validate:"min=1"`
	CreatedAt            time.Time  `json:"created_at"`
}

// AppliesOn reports whether the rule opens availability on the calendar
// date d (only the year, month and day of d are used).
func (s *InterviewSlot) AppliesOn(d time.Time) bool {
	day := DateOf(d)
	from := DateOf(s.EffectiveFrom)
	if !s.IsRecurring {
		return day.Equal(from)
	}
	if int(day.Weekday()) != s.DayOfWeek || day.Before(from) {
		return false
	}
	return s.EffectiveUntil == nil || !day.After(DateOf(*s.EffectiveUntil))
}

// WindowOn returns the rule's [StartTime, EndTime) on date d as instants in
// the rule's timezone.
func (s *InterviewSlot) WindowOn(d time.Time) (TimeWindow, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("slot %s: invalid timezone %q: %w", s.ID, s.Timezone, err)
	}
	start, err := ParseClock(s.StartTime)
	if err != nil {
		return TimeWindow{}, err
	}
	end, err := ParseClock(s.EndTime)
	if err != nil {
		return TimeWindow{}, err
	}
	if end <= start {
		return TimeWindow{}, fmt.Errorf("slot %s: end_time must be after start_time", s.ID)
	}
	day := DateOf(d)
	return TimeWindow{
		Start: WallTime(day.Add(start), loc),
		End:   WallTime(day.Add(end), loc),
	}, nil
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into an offset from midnight.
// Seconds are dropped.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		if t, err = time.Parse(ClockLayout, s); err != nil {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AvailabilityWindow is one bookable (or booked) sub-window of a day, in the
// timezone of the rule that produced it.
type AvailabilityWindow struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Timezone  string `json:"timezone"`
	Available bool   `json:"available"`
}

// SlotRepository defines data access for availability rules
type SlotRepository interface {
	// ReplaceForUser swaps the user's whole rule set in one unit.
	ReplaceForUser(ctx context.Context, userID string, slots []InterviewSlot) error
	ListByUser(ctx context.Context, userID string) ([]InterviewSlot, error)
}

// AvailabilityUsecase defines availability management and queries
type AvailabilityUsecase interface {
	SetAvailability(ctx context.Context, userID string, slots []InterviewSlot) ([]InterviewSlot, error)
	ListSlots(ctx context.Context, userID string) ([]InterviewSlot, error)
	ComputeAvailability(ctx context.Context, interviewerID string, startDate, endDate time.Time) ([]AvailabilityWindow, error)
	ComputeFreeRanges(ctx context.Context, interviewerID string, startDate, endDate time.Time) ([]AvailabilityWindow, error)
}
