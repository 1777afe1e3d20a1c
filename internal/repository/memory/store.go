// Package memory is an in-process implementation of the scheduling
// repositories, used for local runs and tests.
package memory

import (
	"sort"
	"sync"
	"time"

	"go-recruitment-scheduler/internal/domain"
)

type markerKey struct {
	interviewID string
	kind        domain.ReminderKind
}

// Store holds all state shared by the memory repositories.
type Store struct {
	mu           sync.RWMutex
	interviews   map[string]domain.Interview
	applications map[int64]domain.Application
	slots        map[string][]domain.InterviewSlot
	markers      map[markerKey]domain.ReminderMarker

	locks *keyedMutex
}

func NewStore() *Store {
	return &Store{
		interviews:   make(map[string]domain.Interview),
		applications: make(map[int64]domain.Application),
		slots:        make(map[string][]domain.InterviewSlot),
		markers:      make(map[markerKey]domain.ReminderMarker),
		locks:        newKeyedMutex(),
	}
}

// PutApplication inserts or replaces an application.
func (s *Store) PutApplication(app domain.Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if app.UpdatedAt.IsZero() {
		app.UpdatedAt = time.Now().UTC()
	}
	s.applications[app.ID] = app
}

// Application returns a copy of the stored application.
func (s *Store) Application(id int64) (domain.Application, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.applications[id]
	return app, ok
}

// keyedMutex hands out one mutex per key. Entries are dropped when unused.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[domain.LockKey]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[domain.LockKey]*lockEntry)}
}

// lockAll locks every distinct key in sorted order and returns the unlock func.
func (k *keyedMutex) lockAll(keys []domain.LockKey) func() {
	sorted := make([]domain.LockKey, 0, len(keys))
	seen := make(map[domain.LockKey]bool, len(keys))
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			sorted = append(sorted, key)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	held := make([]*lockEntry, 0, len(sorted))
	for _, key := range sorted {
		k.mu.Lock()
		e, ok := k.entries[key]
		if !ok {
			e = &lockEntry{}
			k.entries[key] = e
		}
		e.refs++
		k.mu.Unlock()

		e.mu.Lock()
		held = append(held, e)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			e := held[i]
			e.mu.Unlock()
			k.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(k.entries, sorted[i])
			}
			k.mu.Unlock()
		}
	}
}

func cloneInterview(iv domain.Interview) domain.Interview {
	out := iv
	out.Location = cloneString(iv.Location)
	out.MeetingLink = cloneString(iv.MeetingLink)
	out.CancelledBy = cloneString(iv.CancelledBy)
	out.CancellationReason = cloneString(iv.CancellationReason)
	if iv.Feedback != nil {
		fb := *iv.Feedback
		fb.Strengths = cloneString(iv.Feedback.Strengths)
		fb.Weaknesses = cloneString(iv.Feedback.Weaknesses)
		fb.Comments = cloneString(iv.Feedback.Comments)
		out.Feedback = &fb
	}
	return out
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
