package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	out "github.com/matchcore/core/pkg/domain/notification/ports/out"
)

type enqueued struct {
	userID uuid.UUID
	n      out.Notification
}

// WorkerPoolTrigger is an in-process NotificationTrigger: CreateNotification
// enqueues onto a buffered channel and returns immediately; a small pool of
// workers drains it and hands each notification to Deliver. It guarantees
// the enqueue, not delivery — exactly the contract NotificationTrigger
// promises.
type WorkerPoolTrigger struct {
	queue   chan enqueued
	deliver func(ctx context.Context, userID uuid.UUID, n out.Notification) error
}

// NewWorkerPoolTrigger starts workerCount goroutines draining a queue of
// size queueSize. deliver is the actual sink (push/email/in-app fanout);
// tests can pass a no-op.
func NewWorkerPoolTrigger(ctx context.Context, workerCount, queueSize int, deliver func(ctx context.Context, userID uuid.UUID, n out.Notification) error) *WorkerPoolTrigger {
	t := &WorkerPoolTrigger{
		queue:   make(chan enqueued, queueSize),
		deliver: deliver,
	}
	for i := 0; i < workerCount; i++ {
		go t.worker(ctx)
	}
	return t
}

func (t *WorkerPoolTrigger) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-t.queue:
			if err := t.deliver(ctx, item.userID, item.n); err != nil {
				slog.ErrorContext(ctx, "notification delivery failed", "user_id", item.userID, "type", item.n.Type, "error", err)
			}
		}
	}
}

func (t *WorkerPoolTrigger) CreateNotification(ctx context.Context, userID uuid.UUID, n out.Notification) error {
	select {
	case t.queue <- enqueued{userID: userID, n: n}:
		return nil
	default:
		slog.WarnContext(ctx, "notification queue full, dropping", "user_id", userID, "type", n.Type)
		return nil
	}
}
