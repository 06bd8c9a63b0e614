package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"cityconnect-be/backend"
	"cityconnect-be/metrics"
)

// Subscription is a live query. Updates delivers the current snapshot first
// and then a fresh snapshot after every change on the watched topic, in the
// order the changes were signalled. Callers must call Stop when done.
type Subscription[T any] struct {
	updates  chan T
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Updates is closed once the subscription ends.
func (s *Subscription[T]) Updates() <-chan T {
	return s.updates
}

// Stop ends the subscription and waits for its goroutine to exit. Safe to
// call more than once.
func (s *Subscription[T]) Stop() {
	s.stopOnce.Do(s.cancel)
	<-s.done
}

// watch subscribes to topic before taking the first snapshot so that no
// change between the two can be missed. The subscription also ends when ctx
// is cancelled.
func watch[T any](ctx context.Context, feed backend.ChangeFeed, topic string, logger *zap.Logger, load func(context.Context) (T, error)) (*Subscription[T], error) {
	listener, err := feed.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	first, err := load(ctx)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{
		updates: make(chan T, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	metrics.SubscriptionOpened()
	go func() {
		defer metrics.SubscriptionClosed()
		defer close(s.done)
		defer close(s.updates)
		defer listener.Close()

		pending, hasPending := first, true
		for {
			if hasPending {
				select {
				case s.updates <- pending:
					hasPending = false
				case <-ctx.Done():
					return
				}
				continue
			}

			select {
			case <-ctx.Done():
				return
			case _, open := <-listener.C():
				if !open {
					return
				}
				snapshot, err := load(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.Warn("subscription reload failed", zap.String("topic", topic), zap.Error(err))
					continue
				}
				pending, hasPending = snapshot, true
			}
		}
	}()

	return s, nil
}
