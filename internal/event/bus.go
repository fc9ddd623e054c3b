package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Bus errors.
var (
	ErrBusNotRunning     = errors.New("event bus is not running")
	ErrBusAlreadyRunning = errors.New("event bus is already running")
	ErrInvalidTopic      = errors.New("invalid topic")
	ErrNilHandler        = errors.New("handler must not be nil")
	ErrQueueFull         = errors.New("event queue is full")
)

// Envelope is a published event as seen by a handler.
type Envelope struct {
	// Topic is the event topic.
	Topic Topic

	// Payload is the event payload.
	Payload any

	// Timestamp is when the event was published.
	Timestamp time.Time
}

// Handler processes a delivered event.
type Handler func(ctx context.Context, env Envelope)

// Subscription identifies a registered handler.
type Subscription struct {
	id      uint64
	topic   Topic
	handler Handler
}

// Topic returns the topic the subscription listens on.
func (s *Subscription) Topic() Topic { return s.topic }

// Stats reports bus counters.
type Stats struct {
	Published  uint64
	Delivered  uint64
	Dropped    uint64
	Panics     uint64
	QueueDepth int
}

// Bus is an asynchronous, ordered message channel between the trigger
// origin and the overlay. Delivery runs on a single worker goroutine so
// events arrive in publish order; handlers never share a payload with the
// publisher other than by value.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]*Subscription
	nextID uint64

	queue chan Envelope
	done  chan struct{}
	wg    sync.WaitGroup

	running atomic.Bool

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
	panics    atomic.Uint64
}

// BusOption configures a Bus.
type BusOption func(*busConfig)

type busConfig struct {
	queueSize int
}

// WithQueueSize sets the async delivery queue capacity.
func WithQueueSize(n int) BusOption {
	return func(c *busConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// NewBus creates a new event bus.
func NewBus(opts ...BusOption) *Bus {
	cfg := busConfig{queueSize: 64}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Bus{
		subs:  make(map[Topic][]*Subscription),
		queue: make(chan Envelope, cfg.queueSize),
		done:  make(chan struct{}),
	}
}

// Start starts the delivery worker.
func (b *Bus) Start() error {
	if b.running.Swap(true) {
		return ErrBusAlreadyRunning
	}
	b.wg.Add(1)
	go b.deliverLoop()
	return nil
}

// Stop stops the bus and waits for queued events to drain or the context
// to be cancelled.
func (b *Bus) Stop(ctx context.Context) error {
	if !b.running.Swap(false) {
		return ErrBusNotRunning
	}
	close(b.done)

	drained := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(drained)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-drained:
		return nil
	}
}

// IsRunning returns true if the bus is running.
func (b *Bus) IsRunning() bool {
	return b.running.Load()
}

// Publish queues an event for asynchronous, in-order delivery.
// Returns ErrQueueFull if the queue is saturated; the event is dropped,
// never blocked on.
func (b *Bus) Publish(_ context.Context, topic Topic, payload any) error {
	if !b.running.Load() {
		return ErrBusNotRunning
	}
	if topic == "" {
		return ErrInvalidTopic
	}

	env := Envelope{Topic: topic, Payload: payload, Timestamp: time.Now()}
	select {
	case b.queue <- env:
		b.published.Add(1)
		return nil
	default:
		b.dropped.Add(1)
		return ErrQueueFull
	}
}

// Subscribe registers a handler for the exact topic.
func (b *Bus) Subscribe(topic Topic, handler Handler) (*Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if topic == "" {
		return nil, ErrInvalidTopic
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{id: b.nextID, topic: topic, handler: handler}
	b.subs[topic] = append(b.subs[topic], sub)
	return sub, nil
}

// Unsubscribe removes a subscription.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[sub.topic]
	for i, s := range list {
		if s.id == sub.id {
			b.subs[sub.topic] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Stats returns current bus counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Published:  b.published.Load(),
		Delivered:  b.delivered.Load(),
		Dropped:    b.dropped.Load(),
		Panics:     b.panics.Load(),
		QueueDepth: len(b.queue),
	}
}

// deliverLoop drains the queue on a single goroutine, preserving publish
// order across topics.
func (b *Bus) deliverLoop() {
	defer b.wg.Done()
	for {
		select {
		case env := <-b.queue:
			b.deliver(env)
		case <-b.done:
			// Drain what is already queued before exiting.
			for {
				select {
				case env := <-b.queue:
					b.deliver(env)
				default:
					return
				}
			}
		}
	}
}

// deliver invokes every matching handler with panic recovery.
func (b *Bus) deliver(env Envelope) {
	b.mu.RLock()
	list := make([]*Subscription, len(b.subs[env.Topic]))
	copy(list, b.subs[env.Topic])
	b.mu.RUnlock()

	ctx := context.Background()
	for _, sub := range list {
		b.invoke(ctx, sub.handler, env)
	}
}

func (b *Bus) invoke(ctx context.Context, h Handler, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
		}
	}()
	h(ctx, env)
	b.delivered.Add(1)
}
