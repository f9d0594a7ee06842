package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"multiagent-mcp/internal/domain"
)

// DefaultQueueSize is the per-subscriber buffer used when New is given zero.
const DefaultQueueSize = 256

type envelope struct {
	ctx   context.Context
	event domain.Event
}

type subscription struct {
	id      uint64
	all     bool
	typ     domain.EventType
	handler domain.EventHandler
	queue   chan envelope
}

// Bus is an in-process, goroutine-safe event bus. Every subscriber has its
// own queue drained by one goroutine, so a subscriber sees events in publish
// order. Publish never blocks: when a subscriber's queue is full the event is
// dropped for that subscriber.
type Bus struct {
	mu        sync.RWMutex
	subs      map[uint64]*subscription
	nextID    atomic.Uint64
	queueSize int
	dropped   atomic.Uint64
	logger    *slog.Logger
	wg        sync.WaitGroup
	closed    bool
}

// New creates an event bus with the given per-subscriber queue size.
func New(logger *slog.Logger, queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Bus{
		subs:      make(map[uint64]*subscription),
		queueSize: queueSize,
		logger:    logger,
	}
}

// Publish enqueues event for every matching subscriber.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	// Handlers run after the publisher's request may have finished.
	ctx = context.WithoutCancel(ctx)
	for _, sub := range b.subs {
		if !sub.all && sub.typ != event.Type {
			continue
		}
		select {
		case sub.queue <- envelope{ctx: ctx, event: event}:
		default:
			b.dropped.Add(1)
			b.logger.Warn("event dropped, subscriber queue full",
				"event", string(event.Type),
				"subscription", sub.id,
			)
		}
	}
}

// Subscribe registers a handler for a specific event type.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	return b.add(&subscription{typ: eventType, handler: handler})
}

// SubscribeAll registers a handler that receives every event.
// Returns an unsubscribe function.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	return b.add(&subscription{all: true, handler: handler})
}

// Dropped reports how many deliveries were skipped because a queue was full.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Close prevents new publishes and waits for every queued event to be
// handled. Close is idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.queue)
		delete(b.subs, id)
	}
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *Bus) add(sub *subscription) func() {
	sub.id = b.nextID.Add(1)
	sub.queue = make(chan envelope, b.queueSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	b.subs[sub.id] = sub
	b.wg.Add(1)
	b.mu.Unlock()

	go b.drain(sub)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[sub.id]; ok {
			close(sub.queue)
			delete(b.subs, sub.id)
		}
	}
}

func (b *Bus) drain(sub *subscription) {
	defer b.wg.Done()
	for env := range sub.queue {
		b.deliver(sub, env)
	}
}

func (b *Bus) deliver(sub *subscription, env envelope) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", string(env.event.Type),
				"panic", r,
			)
		}
	}()
	sub.handler(env.ctx, env.event)
}

var _ domain.EventBus = (*Bus)(nil)
