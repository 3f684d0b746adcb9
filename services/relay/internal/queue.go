package internal

import (
	"context"
	"fmt"

	"github.com/forge-ai/promptforge/shared/errs"
)

// Queue is a bounded FIFO. It never holds more than Cap items; producers
// either wait for a slot (Push) or are refused (TryPush).
type Queue[T any] struct {
	items chan T
}

func NewQueue[T any](capacity int) *Queue[T] {
	return &Queue[T]{items: make(chan T, max(capacity, 1))}
}

// Push blocks until there is room or ctx is done.
func (q *Queue[T]) Push(ctx context.Context, v T) error {
	select {
	case q.items <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPush enqueues without waiting and fails with errs.ErrQueueFull.
func (q *Queue[T]) TryPush(v T) error {
	select {
	case q.items <- v:
		return nil
	default:
		return errs.Msg("relay.enqueue", errs.ErrQueueFull, fmt.Sprintf("%d requests already waiting", cap(q.items)))
	}
}

// Pop blocks until an item is available or ctx is done.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	select {
	case v := <-q.items:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (q *Queue[T]) Len() int { return len(q.items) }
func (q *Queue[T]) Cap() int { return cap(q.items) }
