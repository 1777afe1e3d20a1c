package memory

import (
	"context"
	"sort"
	"time"

	"go-recruitment-scheduler/internal/domain"
)

type interviewRepo struct {
	store *Store
}

// NewInterviewRepository creates an interview repository over store.
func NewInterviewRepository(store *Store) domain.InterviewRepository {
	return &interviewRepo{store: store}
}

// Atomic holds the keyed locks for the whole unit and stages every write.
// Staged writes reach the store only if fn succeeds and ctx is still live.
func (r *interviewRepo) Atomic(ctx context.Context, locks []domain.LockKey, fn func(tx domain.InterviewTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := r.store.locks.lockAll(locks)
	defer unlock()

	tx := &interviewTx{
		store:      r.store,
		interviews: make(map[string]domain.Interview),
		appStatus:  make(map[int64]string),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.commit()
}

func (r *interviewRepo) GetByID(ctx context.Context, id string) (*domain.Interview, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	iv, ok := r.store.interviews[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneInterview(iv)
	return &out, nil
}

func (r *interviewRepo) List(ctx context.Context, filter domain.InterviewFilter) ([]domain.Interview, int64, error) {
	r.store.mu.RLock()
	matched := make([]domain.Interview, 0)
	for _, iv := range r.store.interviews {
		if matchesFilter(iv, filter) {
			matched = append(matched, cloneInterview(iv))
		}
	}
	r.store.mu.RUnlock()

	sortBySchedule(matched)
	total := int64(len(matched))

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		return matched, total, nil
	}
	start := (page - 1) * limit
	if start >= len(matched) {
		return []domain.Interview{}, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *interviewRepo) ListActiveInRange(ctx context.Context, interviewerID string, window domain.TimeWindow) ([]domain.Interview, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := activeOverlapping(r.store.interviews, nil, interviewerID, window)
	return out, nil
}

func (r *interviewRepo) ListDueForReminder(ctx context.Context, window domain.TimeWindow, statuses []domain.InterviewStatus, kind domain.ReminderKind) ([]domain.Interview, error) {
	wanted := make(map[domain.InterviewStatus]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]domain.Interview, 0)
	for _, iv := range r.store.interviews {
		if !wanted[iv.Status] {
			continue
		}
		if !iv.ScheduledAt.After(window.Start) || iv.ScheduledAt.After(window.End) {
			continue
		}
		if _, sent := r.store.markers[markerKey{interviewID: iv.ID, kind: kind}]; sent {
			continue
		}
		out = append(out, cloneInterview(iv))
	}
	sortBySchedule(out)
	return out, nil
}

// interviewTx reads through its staged writes to the store.
type interviewTx struct {
	store      *Store
	interviews map[string]domain.Interview
	appStatus  map[int64]string
}

func (t *interviewTx) GetInterview(ctx context.Context, id string) (*domain.Interview, error) {
	if iv, ok := t.interviews[id]; ok {
		out := cloneInterview(iv)
		return &out, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	iv, ok := t.store.interviews[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneInterview(iv)
	return &out, nil
}

func (t *interviewTx) ListActiveByInterviewer(ctx context.Context, interviewerID string, window domain.TimeWindow) ([]domain.Interview, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return activeOverlapping(t.store.interviews, t.interviews, interviewerID, window), nil
}

func (t *interviewTx) FindActiveByApplication(ctx context.Context, applicationID int64) (*domain.Interview, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if iv := t.activeForApplication(applicationID, ""); iv != nil {
		out := cloneInterview(*iv)
		return &out, nil
	}
	return nil, nil
}

func (t *interviewTx) CreateInterview(ctx context.Context, iv *domain.Interview) error {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if _, ok := t.store.interviews[iv.ID]; ok {
		return domain.ErrDuplicate
	}
	if _, ok := t.interviews[iv.ID]; ok {
		return domain.ErrDuplicate
	}
	if iv.IsActive() && t.activeForApplication(iv.ApplicationID, iv.ID) != nil {
		return domain.ErrDuplicate
	}
	t.interviews[iv.ID] = cloneInterview(*iv)
	return nil
}

func (t *interviewTx) UpdateInterview(ctx context.Context, iv *domain.Interview) error {
	if _, ok := t.interviews[iv.ID]; !ok {
		t.store.mu.RLock()
		_, exists := t.store.interviews[iv.ID]
		t.store.mu.RUnlock()
		if !exists {
			return domain.ErrNotFound
		}
	}
	t.interviews[iv.ID] = cloneInterview(*iv)
	return nil
}

func (t *interviewTx) GetApplication(ctx context.Context, id int64) (*domain.Application, error) {
	t.store.mu.RLock()
	app, ok := t.store.applications[id]
	t.store.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	if status, staged := t.appStatus[id]; staged {
		app.Status = status
	}
	return &app, nil
}

func (t *interviewTx) UpdateApplicationStatus(ctx context.Context, id int64, status string) error {
	t.store.mu.RLock()
	_, ok := t.store.applications[id]
	t.store.mu.RUnlock()
	if !ok {
		return domain.ErrNotFound
	}
	t.appStatus[id] = status
	return nil
}

// activeForApplication finds a non-terminal interview on the application
// other than excludeID. Callers hold store.mu.
func (t *interviewTx) activeForApplication(applicationID int64, excludeID string) *domain.Interview {
	for id, iv := range t.interviews {
		if id != excludeID && iv.ApplicationID == applicationID && iv.IsActive() {
			return &iv
		}
	}
	for id, iv := range t.store.interviews {
		if id == excludeID || iv.ApplicationID != applicationID || !iv.IsActive() {
			continue
		}
		if _, staged := t.interviews[id]; staged {
			continue
		}
		return &iv
	}
	return nil
}

func (t *interviewTx) commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for id, iv := range t.interviews {
		t.store.interviews[id] = iv
	}
	for id, status := range t.appStatus {
		app := t.store.applications[id]
		app.Status = status
		app.UpdatedAt = time.Now().UTC()
		t.store.applications[id] = app
	}
	return nil
}

// activeOverlapping lists active interviews of interviewerID overlapping
// window, with staged taking precedence over stored.
func activeOverlapping(stored, staged map[string]domain.Interview, interviewerID string, window domain.TimeWindow) []domain.Interview {
	out := make([]domain.Interview, 0)
	consider := func(iv domain.Interview) {
		if iv.InterviewerID == interviewerID && iv.IsActive() && domain.Overlaps(iv.Window(), window) {
			out = append(out, cloneInterview(iv))
		}
	}
	for id, iv := range stored {
		if _, ok := staged[id]; ok {
			continue
		}
		consider(iv)
	}
	for _, iv := range staged {
		consider(iv)
	}
	sortBySchedule(out)
	return out
}

func matchesFilter(iv domain.Interview, f domain.InterviewFilter) bool {
	if f.InterviewerID != "" && iv.InterviewerID != f.InterviewerID {
		return false
	}
	if f.CandidateID != "" && iv.CandidateID != f.CandidateID {
		return false
	}
	if f.JobID > 0 && iv.JobID != f.JobID {
		return false
	}
	if f.Status != "" && iv.Status != f.Status {
		return false
	}
	if f.From != nil && iv.ScheduledAt.Before(*f.From) {
		return false
	}
	if f.To != nil && iv.ScheduledAt.After(*f.To) {
		return false
	}
	return true
}

func sortBySchedule(ivs []domain.Interview) {
	sort.Slice(ivs, func(i, j int) bool {
		if ivs[i].ScheduledAt.Equal(ivs[j].ScheduledAt) {
			return ivs[i].ID < ivs[j].ID
		}
		return ivs[i].ScheduledAt.Before(ivs[j].ScheduledAt)
	})
}
