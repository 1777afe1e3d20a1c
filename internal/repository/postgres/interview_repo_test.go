package postgres

import (
	"errors"
	"fmt"
	"testing"

	"go-recruitment-scheduler/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortedKeys(t *testing.T) {
	got := sortedKeys([]domain.LockKey{
		domain.InterviewerLock("int-2"),
		domain.ApplicationLock(9),
		domain.InterviewerLock("int-2"),
		domain.InterviewerLock("int-1"),
	})
	assert.Equal(t, []domain.LockKey{"application:9", "interviewer:int-1", "interviewer:int-2"}, got)
}

func TestMapWriteError(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "interviews_one_active_per_application"}
	assert.ErrorIs(t, mapWriteError(dup), domain.ErrDuplicate)

	other := errors.New("conn reset")
	assert.Same(t, other, mapWriteError(other))
}

func TestMapReadError(t *testing.T) {
	t.Run("Should treat a missing row as not found", func(t *testing.T) {
		assert.ErrorIs(t, mapReadError(pgx.ErrNoRows), domain.ErrNotFound)
	})

	t.Run("Should treat a malformed uuid as not found", func(t *testing.T) {
		badID := &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}
		assert.ErrorIs(t, mapReadError(fmt.Errorf("scan: %w", badID)), domain.ErrNotFound)
	})

	t.Run("Should pass other errors through", func(t *testing.T) {
		other := &pgconn.PgError{Code: "57014"}
		assert.Same(t, other, mapReadError(other))
	})
}

func TestMarshalFeedback(t *testing.T) {
	s, err := marshalFeedback(nil)
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = marshalFeedback(&domain.InterviewFeedback{Rating: 4, Recommendation: domain.RecommendationYes})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Contains(t, *s, `"recommendation":"yes"`)
}

func TestStatusStrings(t *testing.T) {
	assert.Equal(t, []string{"scheduled", "confirmed"}, statusStrings([]domain.InterviewStatus{
		domain.InterviewStatusScheduled, domain.InterviewStatusConfirmed,
	}))
}
