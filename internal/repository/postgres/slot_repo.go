package postgres

import (
	"context"
	"fmt"

	"go-recruitment-scheduler/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type slotRepo struct {
	db *pgxpool.Pool
}

// NewSlotRepository creates a new availability rule repository
func NewSlotRepository(db *pgxpool.Pool) domain.SlotRepository {
	return &slotRepo{db: db}
}

// ReplaceForUser deletes and re-inserts the user's rules in one transaction
func (r *slotRepo) ReplaceForUser(ctx context.Context, userID string, slots []domain.InterviewSlot) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM interview_slots WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear slots: %w", err)
	}

	insertQuery := `
		INSERT INTO interview_slots (
			id, user_id, day_of_week, start_time, end_time, timezone,
			is_recurring, effective_from, effective_until, max_interviews_per_slot, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	for _, s := range slots {
		var until interface{}
		if s.EffectiveUntil != nil {
			until = s.EffectiveUntil.Format(domain.DateLayout)
		}
		_, err := tx.Exec(ctx, insertQuery,
			s.ID, userID, s.DayOfWeek, s.StartTime, s.EndTime, s.Timezone,
			s.IsRecurring, s.EffectiveFrom.Format(domain.DateLayout), until, s.MaxInterviewsPerSlot, s.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert slot: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *slotRepo) ListByUser(ctx context.Context, userID string) ([]domain.InterviewSlot, error) {
	query := `
		SELECT id, user_id, day_of_week, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), timezone,
			is_recurring, effective_from, effective_until, max_interviews_per_slot, created_at
		FROM interview_slots
		WHERE user_id = $1
		ORDER BY day_of_week, start_time`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := []domain.InterviewSlot{}
	for rows.Next() {
		var s domain.InterviewSlot
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.DayOfWeek, &s.StartTime, &s.EndTime, &s.Timezone,
			&s.IsRecurring, &s.EffectiveFrom, &s.EffectiveUntil, &s.MaxInterviewsPerSlot, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}
