package memory

import (
	"context"

	"go-recruitment-scheduler/internal/domain"
)

type slotRepo struct {
	store *Store
}

func NewSlotRepository(store *Store) domain.SlotRepository {
	return &slotRepo{store: store}
}

func (r *slotRepo) ReplaceForUser(ctx context.Context, userID string, slots []domain.InterviewSlot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	copied := make([]domain.InterviewSlot, len(slots))
	for i, s := range slots {
		s.UserID = userID
		if s.EffectiveUntil != nil {
			until := *s.EffectiveUntil
			s.EffectiveUntil = &until
		}
		copied[i] = s
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if len(copied) == 0 {
		delete(r.store.slots, userID)
		return nil
	}
	r.store.slots[userID] = copied
	return nil
}

func (r *slotRepo) ListByUser(ctx context.Context, userID string) ([]domain.InterviewSlot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	stored := r.store.slots[userID]
	out := make([]domain.InterviewSlot, len(stored))
	copy(out, stored)
	return out, nil
}
