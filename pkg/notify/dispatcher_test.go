package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-recruitment-scheduler/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectSink struct {
	mu   sync.Mutex
	got  []domain.Notification
	fail bool
	gate chan struct{}
}

func (s *collectSink) Send(ctx context.Context, n domain.Notification) error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	if s.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (s *collectSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	sink := &collectSink{}
	d := NewDispatcher(sink, 8, nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Enqueue(context.Background(), domain.Notification{UserID: "u", Kind: domain.NotificationInterviewReminder}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	assert.Equal(t, 5, sink.count())
	assert.False(t, sink.got[0].CreatedAt.IsZero())

	assert.ErrorIs(t, d.Enqueue(context.Background(), domain.Notification{UserID: "u"}), ErrClosed)
}

func TestDispatcherQueueFull(t *testing.T) {
	gate := make(chan struct{})
	sink := &collectSink{gate: gate}
	d := NewDispatcher(sink, 1, nil)

	var full bool
	for i := 0; i < 5; i++ {
		if errors.Is(d.Enqueue(context.Background(), domain.Notification{UserID: "u"}), ErrQueueFull) {
			full = true
			break
		}
	}
	assert.True(t, full)

	close(gate)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcherSurvivesSinkErrors(t *testing.T) {
	sink := &collectSink{fail: true}
	d := NewDispatcher(sink, 4, nil)
	require.NoError(t, d.Enqueue(context.Background(), domain.Notification{UserID: "a"}))
	require.NoError(t, d.Enqueue(context.Background(), domain.Notification{UserID: "b"}))
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 2, sink.count())
}
