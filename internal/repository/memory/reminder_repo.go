package memory

import (
	"context"

	"go-recruitment-scheduler/internal/domain"
)

type reminderRepo struct {
	store *Store
}

func NewReminderRepository(store *Store) domain.ReminderRepository {
	return &reminderRepo{store: store}
}

func (r *reminderRepo) MarkSent(ctx context.Context, m domain.ReminderMarker) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key := markerKey{interviewID: m.InterviewID, kind: m.Kind}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.markers[key]; ok {
		return false, nil
	}
	r.store.markers[key] = m
	return true, nil
}
