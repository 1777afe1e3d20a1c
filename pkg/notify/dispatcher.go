package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go-recruitment-scheduler/internal/domain"
)

// ErrQueueFull is returned by Enqueue when the buffer has no room.
var ErrQueueFull = errors.New("notify: queue full")

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("notify: dispatcher closed")

// Sink delivers one notification to the outside world.
type Sink interface {
	Send(ctx context.Context, n domain.Notification) error
}

// Dispatcher buffers notifications and drains them into a Sink on its own
// goroutine, so Enqueue never waits on the network.
type Dispatcher struct {
	sink        Sink
	queue       chan domain.Notification
	logger      *slog.Logger
	sendTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher starts the drain goroutine. Call Close to stop it.
func NewDispatcher(sink Sink, buffer int, logger *slog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		sink:        sink,
		queue:       make(chan domain.Notification, buffer),
		logger:      logger,
		sendTimeout: 3 * time.Second,
		done:        make(chan struct{}),
	}
	go d.run()
	return d
}

// Enqueue implements domain.Notifier.
func (d *Dispatcher) Enqueue(ctx context.Context, n domain.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for n := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
		if err := d.sink.Send(ctx, n); err != nil {
			d.logger.Error("Notification delivery failed",
				"error", err,
				"user_id", n.UserID,
				"kind", n.Kind,
			)
		}
		cancel()
	}
}

// Close stops accepting notifications and waits until the buffer is
// drained or ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
