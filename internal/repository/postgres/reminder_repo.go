package postgres

import (
	"context"

	"go-recruitment-scheduler/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type reminderRepo struct {
	db *pgxpool.Pool
}

// NewReminderRepository creates a new reminder marker repository
func NewReminderRepository(db *pgxpool.Pool) domain.ReminderRepository {
	return &reminderRepo{db: db}
}

// MarkSent inserts the marker; an existing (interview, kind) row is left alone
func (r *reminderRepo) MarkSent(ctx context.Context, m domain.ReminderMarker) (bool, error) {
	query := `
		INSERT INTO interview_reminders (interview_id, reminder_type, sent_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (interview_id, reminder_type) DO NOTHING`
	tag, err := r.db.Exec(ctx, query, m.InterviewID, string(m.Kind), m.SentAt.UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
