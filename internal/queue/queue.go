// Package queue moves background work (outgoing email today) off the request
// path. InMemoryQueue serves single-instance deployments and tests; AMQPQueue
// is used when a RabbitMQ URL is configured.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler processes one message body. Returning an error triggers a retry.
type Handler func(ctx context.Context, body []byte) error

// Queue is a topic based publish/subscribe queue.
type Queue interface {
	Publish(ctx context.Context, topic string, body []byte) error
	Subscribe(topic string, handler Handler) error
	Close() error
}

var (
	ErrNoSubscribers = errors.New("no subscribers for topic")
	ErrClosed        = errors.New("queue is closed")
)

// InMemoryQueue delivers each published message to every subscriber of the
// topic in its own goroutine, retrying failures with linear backoff.
type InMemoryQueue struct {
	MaxRetries int
	Backoff    time.Duration

	mu       sync.Mutex
	handlers map[string][]Handler
	closed   bool
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	log      *zap.Logger
}

// NewInMemoryQueue creates a queue with 3 retries and 500ms backoff steps.
func NewInMemoryQueue(log *zap.Logger) *InMemoryQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &InMemoryQueue{
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
		handlers:   make(map[string][]Handler),
		ctx:        ctx,
		cancel:     cancel,
		log:        log,
	}
}

// Publish hands body to every subscriber of topic. It does not wait for delivery.
func (q *InMemoryQueue) Publish(_ context.Context, topic string, body []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	handlers := q.handlers[topic]
	if len(handlers) == 0 {
		return fmt.Errorf("%w %s", ErrNoSubscribers, topic)
	}

	// Copy so a caller reusing its buffer cannot race the consumer.
	msg := append([]byte(nil), body...)
	for _, h := range handlers {
		q.wg.Add(1)
		go q.process(topic, h, msg)
	}
	return nil
}

func (q *InMemoryQueue) process(topic string, h Handler, body []byte) {
	defer q.wg.Done()

	for attempt := 0; ; attempt++ {
		err := h(q.ctx, body)
		if err == nil {
			return
		}
		if attempt >= q.MaxRetries {
			q.log.Error("message permanently failed",
				zap.String("topic", topic), zap.Int("attempts", attempt+1), zap.Error(err))
			return
		}
		q.log.Warn("message failed, retrying",
			zap.String("topic", topic), zap.Int("attempt", attempt+1), zap.Error(err))

		select {
		case <-time.After(time.Duration(attempt+1) * q.Backoff):
		case <-q.ctx.Done():
			return
		}
	}
}

// Subscribe registers handler for topic.
func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Close stops accepting messages, cancels pending retries and waits for
// in-flight handlers to return.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
	return nil
}

// Drain waits until every published message has been handled or dropped.
func (q *InMemoryQueue) Drain() {
	q.wg.Wait()
}
