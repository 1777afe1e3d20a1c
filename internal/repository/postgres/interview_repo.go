package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go-recruitment-scheduler/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const interviewColumns = `
	id, application_id, job_id, candidate_id, interviewer_id,
	scheduled_at, duration_minutes, type, status,
	location, meeting_link, notes, feedback,
	previous_application_status, cancelled_by, cancellation_reason,
	created_at, updated_at`

// querier is the subset shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type interviewRepo struct {
	db *pgxpool.Pool
}

// NewInterviewRepository creates a new interview repository
func NewInterviewRepository(db *pgxpool.Pool) domain.InterviewRepository {
	return &interviewRepo{db: db}
}

// Atomic runs fn in one transaction. Advisory locks are taken in sorted key
// order and released by Postgres at commit or rollback.
func (r *interviewRepo) Atomic(ctx context.Context, locks []domain.LockKey, fn func(tx domain.InterviewTx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin scheduling tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, key := range sortedKeys(locks) {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, string(key)); err != nil {
			return fmt.Errorf("acquire lock %s: %w", key, err)
		}
	}

	if err := fn(&interviewTx{q: tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *interviewRepo) GetByID(ctx context.Context, id string) (*domain.Interview, error) {
	return getInterview(ctx, r.db, id, false)
}

// List returns one page of interviews ordered by start time
func (r *interviewRepo) List(ctx context.Context, filter domain.InterviewFilter) ([]domain.Interview, int64, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	if filter.InterviewerID != "" {
		conditions = append(conditions, fmt.Sprintf("interviewer_id = $%d", argIndex))
		args = append(args, filter.InterviewerID)
		argIndex++
	}
	if filter.CandidateID != "" {
		conditions = append(conditions, fmt.Sprintf("candidate_id = $%d", argIndex))
		args = append(args, filter.CandidateID)
		argIndex++
	}
	if filter.JobID > 0 {
		conditions = append(conditions, fmt.Sprintf("job_id = $%d", argIndex))
		args = append(args, filter.JobID)
		argIndex++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, string(filter.Status))
		argIndex++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("scheduled_at >= $%d", argIndex))
		args = append(args, filter.From.UTC())
		argIndex++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("scheduled_at <= $%d", argIndex))
		args = append(args, filter.To.UTC())
		argIndex++
	}
	where := strings.Join(conditions, " AND ")

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM interviews WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count interviews: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	query := fmt.Sprintf(`SELECT %s FROM interviews WHERE %s ORDER BY scheduled_at ASC, id ASC LIMIT $%d OFFSET $%d`,
		interviewColumns, where, argIndex, argIndex+1)
	args = append(args, filter.Limit, offset)

	interviews, err := queryInterviews(ctx, r.db, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return interviews, total, nil
}

func (r *interviewRepo) ListActiveInRange(ctx context.Context, interviewerID string, window domain.TimeWindow) ([]domain.Interview, error) {
	return listActiveByInterviewer(ctx, r.db, interviewerID, window)
}

func (r *interviewRepo) ListDueForReminder(ctx context.Context, window domain.TimeWindow, statuses []domain.InterviewStatus, kind domain.ReminderKind) ([]domain.Interview, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM interviews
		WHERE status = ANY($1::text[])
		  AND scheduled_at > $2 AND scheduled_at <= $3
		  AND NOT EXISTS (
			SELECT 1 FROM interview_reminders r
			WHERE r.interview_id = interviews.id AND r.reminder_type = $4
		  )
		ORDER BY scheduled_at ASC`, interviewColumns)
	return queryInterviews(ctx, r.db, query, pq.Array(statusStrings(statuses)), window.Start.UTC(), window.End.UTC(), string(kind))
}

// interviewTx is the InterviewTx view of one pgx transaction.
type interviewTx struct {
	q querier
}

func (t *interviewTx) GetInterview(ctx context.Context, id string) (*domain.Interview, error) {
	return getInterview(ctx, t.q, id, true)
}

func (t *interviewTx) ListActiveByInterviewer(ctx context.Context, interviewerID string, window domain.TimeWindow) ([]domain.Interview, error) {
	return listActiveByInterviewer(ctx, t.q, interviewerID, window)
}

func (t *interviewTx) FindActiveByApplication(ctx context.Context, applicationID int64) (*domain.Interview, error) {
	query := fmt.Sprintf(`SELECT %s FROM interviews WHERE application_id = $1 AND status = ANY($2::text[]) LIMIT 1`, interviewColumns)
	iv, err := scanInterview(t.q.QueryRow(ctx, query, applicationID, pq.Array(statusStrings(domain.ActiveInterviewStatuses))))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active interview for application %d: %w", applicationID, err)
	}
	return iv, nil
}

func (t *interviewTx) CreateInterview(ctx context.Context, iv *domain.Interview) error {
	feedback, err := marshalFeedback(iv.Feedback)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO interviews (
			id, application_id, job_id, candidate_id, interviewer_id,
			scheduled_at, duration_minutes, type, status,
			location, meeting_link, notes, feedback,
			previous_application_status, cancelled_by, cancellation_reason,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err = t.q.Exec(ctx, query,
		iv.ID, iv.ApplicationID, iv.JobID, iv.CandidateID, iv.InterviewerID,
		iv.ScheduledAt.UTC(), iv.DurationMinutes, string(iv.Type), string(iv.Status),
		iv.Location, iv.MeetingLink, iv.Notes, feedback,
		iv.PreviousApplicationStatus, iv.CancelledBy, iv.CancellationReason,
		iv.CreatedAt, iv.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (t *interviewTx) UpdateInterview(ctx context.Context, iv *domain.Interview) error {
	feedback, err := marshalFeedback(iv.Feedback)
	if err != nil {
		return err
	}
	query := `
		UPDATE interviews SET
			scheduled_at = $1, duration_minutes = $2, status = $3,
			location = $4, meeting_link = $5, notes = $6, feedback = $7,
			cancelled_by = $8, cancellation_reason = $9, updated_at = $10
		WHERE id = $11`
	tag, err := t.q.Exec(ctx, query,
		iv.ScheduledAt.UTC(), iv.DurationMinutes, string(iv.Status),
		iv.Location, iv.MeetingLink, iv.Notes, feedback,
		iv.CancelledBy, iv.CancellationReason, iv.UpdatedAt,
		iv.ID,
	)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *interviewTx) GetApplication(ctx context.Context, id int64) (*domain.Application, error) {
	query := `SELECT id, job_id, candidate_user_id, status, updated_at FROM applications WHERE id = $1 FOR UPDATE`
	var app domain.Application
	err := t.q.QueryRow(ctx, query, id).Scan(&app.ID, &app.JobID, &app.CandidateUserID, &app.Status, &app.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get application %d: %w", id, err)
	}
	return &app, nil
}

func (t *interviewTx) UpdateApplicationStatus(ctx context.Context, id int64, status string) error {
	tag, err := t.q.Exec(ctx, `UPDATE applications SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update application %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func getInterview(ctx context.Context, q querier, id string, forUpdate bool) (*domain.Interview, error) {
	query := fmt.Sprintf(`SELECT %s FROM interviews WHERE id = $1`, interviewColumns)
	if forUpdate {
		query += " FOR UPDATE"
	}
	iv, err := scanInterview(q.QueryRow(ctx, query, id))
	if err != nil {
		if err := mapReadError(err); errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get interview %s: %w", id, err)
	}
	return iv, nil
}

func listActiveByInterviewer(ctx context.Context, q querier, interviewerID string, window domain.TimeWindow) ([]domain.Interview, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM interviews
		WHERE interviewer_id = $1
		  AND status = ANY($2::text[])
		  AND scheduled_at < $4
		  AND scheduled_at + make_interval(mins => duration_minutes) > $3
		ORDER BY scheduled_at ASC`, interviewColumns)
	return queryInterviews(ctx, q, query,
		interviewerID, pq.Array(statusStrings(domain.ActiveInterviewStatuses)), window.Start.UTC(), window.End.UTC())
}

func queryInterviews(ctx context.Context, q querier, query string, args ...interface{}) ([]domain.Interview, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query interviews: %w", err)
	}
	defer rows.Close()

	interviews := []domain.Interview{}
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interview: %w", err)
		}
		interviews = append(interviews, *iv)
	}
	return interviews, rows.Err()
}

func scanInterview(row pgx.Row) (*domain.Interview, error) {
	var (
		iv       domain.Interview
		typ      string
		status   string
		feedback []byte
	)
	err := row.Scan(
		&iv.ID, &iv.ApplicationID, &iv.JobID, &iv.CandidateID, &iv.InterviewerID,
		&iv.ScheduledAt, &iv.DurationMinutes, &typ, &status,
		&iv.Location, &iv.MeetingLink, &iv.Notes, &feedback,
		&iv.PreviousApplicationStatus, &iv.CancelledBy, &iv.CancellationReason,
		&iv.CreatedAt, &iv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	iv.Type = domain.InterviewType(typ)
	iv.Status = domain.InterviewStatus(status)
	iv.ScheduledAt = iv.ScheduledAt.UTC()
	if len(feedback) > 0 {
		var fb domain.InterviewFeedback
		if err := json.Unmarshal(feedback, &fb); err != nil {
			return nil, fmt.Errorf("decode feedback: %w", err)
		}
		iv.Feedback = &fb
	}
	return &iv, nil
}

// marshalFeedback returns the jsonb text, nil for NULL.
func marshalFeedback(fb *domain.InterviewFeedback) (*string, error) {
	if fb == nil {
		return nil, nil
	}
	b, err := json.Marshal(fb)
	if err != nil {
		return nil, fmt.Errorf("encode feedback: %w", err)
	}
	s := string(b)
	return &s, nil
}

// mapWriteError turns the one-active-interview-per-application index
// violation into domain.ErrDuplicate.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// mapReadError reports a missing row, or an id the uuid column cannot hold,
// as domain.ErrNotFound.
func mapReadError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return domain.ErrNotFound
	}
	return err
}

func sortedKeys(keys []domain.LockKey) []domain.LockKey {
	seen := make(map[domain.LockKey]bool, len(keys))
	out := make([]domain.LockKey, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func statusStrings(statuses []domain.InterviewStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
