package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go-recruitment-scheduler/internal/domain"
	"go-recruitment-scheduler/pkg/apperror"
	"go-recruitment-scheduler/pkg/audit"
	"go-recruitment-scheduler/pkg/logger"
	"go-recruitment-scheduler/pkg/validation"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

// AvailabilityConfig tunes how rule windows are cut.
type AvailabilityConfig struct {
	Granularity  time.Duration
	MaxRangeDays int
	Timeout      time.Duration
}

type availabilityUsecase struct {
	slotRepo      domain.SlotRepository
	interviewRepo domain.InterviewRepository
	validate      *validator.Validate
	audit         *audit.Logger
	cfg           AvailabilityConfig
}

// NewAvailabilityUsecase creates the availability calculator and rule manager.
func NewAvailabilityUsecase(slotRepo domain.SlotRepository, interviewRepo domain.InterviewRepository, validate *validator.Validate, auditLog *audit.Logger, cfg AvailabilityConfig) domain.AvailabilityUsecase {
	if cfg.Granularity <= 0 {
		cfg.Granularity = time.Hour
	}
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = 92
	}
	if validate == nil {
		validate = validation.Default()
	}
	if auditLog == nil {
		auditLog = audit.Nop()
	}
	return &availabilityUsecase{
		slotRepo:      slotRepo,
		interviewRepo: interviewRepo,
		validate:      validate,
		audit:         auditLog,
		cfg:           cfg,
	}
}

// dayRules is the union of every rule window for one date and timezone.
type dayRules struct {
	date     time.Time
	timezone string
	loc      *time.Location
	windows  []domain.TimeWindow
}

// ComputeAvailability cuts each day's rule windows into granularity-sized
// sub-windows of local clock time and marks the ones that overlap an active
// interview.
func (uc *availabilityUsecase) ComputeAvailability(ctx context.Context, interviewerID string, startDate, endDate time.Time) ([]domain.AvailabilityWindow, error) {
	days, busy, err := uc.load(ctx, interviewerID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	out := make([]domain.AvailabilityWindow, 0)
	for _, day := range days {
		for _, w := range day.windows {
			for _, chunk := range domain.SplitLocal(w, uc.cfg.Granularity, day.loc) {
				out = append(out, domain.AvailabilityWindow{
					Date:      day.date.Format(domain.DateLayout),
					StartTime: chunk.StartClock,
					EndTime:   chunk.EndClock,
					Timezone:  day.timezone,
					Available: !overlapsAny(chunk.TimeWindow, busy),
				})
			}
		}
	}
	return out, nil
}

// ComputeFreeRanges returns each day's rule windows minus busy time, as
// contiguous ranges.
func (uc *availabilityUsecase) ComputeFreeRanges(ctx context.Context, interviewerID string, startDate, endDate time.Time) ([]domain.AvailabilityWindow, error) {
	days, busy, err := uc.load(ctx, interviewerID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	out := make([]domain.AvailabilityWindow, 0)
	for _, day := range days {
		for _, free := range domain.SubtractWindows(day.windows, busy) {
			out = append(out, toAvailabilityWindow(day, free, true))
		}
	}
	return out, nil
}

// load reads rules and busy windows concurrently. No booking lock is taken.
func (uc *availabilityUsecase) load(ctx context.Context, interviewerID string, startDate, endDate time.Time) ([]dayRules, []domain.TimeWindow, error) {
	if interviewerID == "" {
		return nil, nil, apperror.Validation("interviewer_id", "Interviewer is required")
	}
	start, end := domain.DateOf(startDate), domain.DateOf(endDate)
	if end.Before(start) {
		return nil, nil, apperror.Validation("end_date", "End date cannot be before start date")
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > uc.cfg.MaxRangeDays {
		return nil, nil, apperror.Validation("end_date", fmt.Sprintf("Date range cannot exceed %d days", uc.cfg.MaxRangeDays))
	}

	if uc.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.cfg.Timeout)
		defer cancel()
	}

	// Local dates can sit up to a day either side of the UTC date.
	search := domain.TimeWindow{Start: start.AddDate(0, 0, -1), End: end.AddDate(0, 0, 2)}

	var (
		slots      []domain.InterviewSlot
		interviews []domain.Interview
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		slots, err = uc.slotRepo.ListByUser(gctx, interviewerID)
		return err
	})
	g.Go(func() error {
		var err error
		interviews, err = uc.interviewRepo.ListActiveInRange(gctx, interviewerID, search)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, apperror.Internal(fmt.Errorf("load availability inputs: %w", err))
	}

	busy := make([]domain.TimeWindow, 0, len(interviews))
	for i := range interviews {
		if interviews[i].IsActive() {
			busy = append(busy, interviews[i].Window())
		}
	}
	return buildDayRules(slots, start, end), domain.MergeWindows(busy), nil
}

// buildDayRules groups applicable rules per date and timezone and unions
// their windows. Dates without rules produce nothing.
func buildDayRules(slots []domain.InterviewSlot, start, end time.Time) []dayRules {
	var out []dayRules
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		byZone := make(map[string][]domain.TimeWindow)
		locs := make(map[string]*time.Location)
		for i := range slots {
			s := &slots[i]
			if !s.AppliesOn(d) {
				continue
			}
			w, err := s.WindowOn(d)
			if err != nil {
				logger.Log.Warn("skipping invalid availability rule", "slot_id", s.ID, "error", err)
				continue
			}
			byZone[s.Timezone] = append(byZone[s.Timezone], w)
			locs[s.Timezone] = w.Start.Location()
		}

		zones := make([]string, 0, len(byZone))
		for tz := range byZone {
			zones = append(zones, tz)
		}
		sort.Strings(zones)
		for _, tz := range zones {
			out = append(out, dayRules{
				date:     d,
				timezone: tz,
				loc:      locs[tz],
				windows:  domain.MergeWindows(byZone[tz]),
			})
		}
	}
	return out
}

func toAvailabilityWindow(day dayRules, w domain.TimeWindow, available bool) domain.AvailabilityWindow {
	return domain.AvailabilityWindow{
		Date:      day.date.Format(domain.DateLayout),
		StartTime: w.Start.In(day.loc).Format(domain.ClockLayout),
		EndTime:   w.End.In(day.loc).Format(domain.ClockLayout),
		Timezone:  day.timezone,
		Available: available,
	}
}

func overlapsAny(w domain.TimeWindow, busy []domain.TimeWindow) bool {
	for _, b := range busy {
		if domain.Overlaps(w, b) {
			return true
		}
	}
	return false
}
