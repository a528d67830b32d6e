// Package events moves booking events from request goroutines to Kafka.
package events

import (
	"context"
	"sync"
	"time"

	"booktable/pkg/kafka"
	"booktable/pkg/logger"
	"booktable/pkg/model"
)

const (
	Source = "bookings"

	publishTimeout = 10 * time.Second
)

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Emitter accepts events without blocking the caller.
type Emitter interface {
	Emit(ctx context.Context, event model.BookingEvent)
}

type Dispatcher struct {
	publisher Publisher
	queue     chan queued
	workers   int
	log       *logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type queued struct {
	event         model.BookingEvent
	correlationID string
}

type correlationKey struct{}

// WithCorrelationID tags events emitted under ctx, usually with the HTTP
// request id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func NewDispatcher(publisher Publisher, queueSize, workers int, log *logger.Logger) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		publisher: publisher,
		queue:     make(chan queued, queueSize),
		workers:   workers,
		log:       log.Component("event_dispatcher"),
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

// Emit enqueues the event. When the queue is full or the dispatcher is
// closed the event is dropped and logged.
func (d *Dispatcher) Emit(ctx context.Context, event model.BookingEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn("Dropping event, dispatcher closed", "type", event.Type, "booking_id", event.Booking.ID)
		return
	}

	id, _ := ctx.Value(correlationKey{}).(string)
	select {
	case d.queue <- queued{event: event, correlationID: id}:
	default:
		d.log.Error("Dropping event, queue full",
			"type", event.Type,
			"booking_id", event.Booking.ID,
			"queue_size", cap(d.queue),
		)
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for q := range d.queue {
		d.publish(q)
	}
}

func (d *Dispatcher) publish(q queued) {
	msg, err := kafka.NewMessage().
		WithKey(q.event.Booking.ID).
		WithValue(q.event).
		WithEventType(q.event.Type).
		WithSchemaVersion(model.EventSchemaVersion).
		WithSource(Source).
		WithCorrelationID(q.correlationID).
		Build()
	if err != nil {
		d.log.Error("Failed to encode event", "type", q.event.Type, "booking_id", q.event.Booking.ID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, msg); err != nil {
		d.log.Error("Failed to publish event",
			"type", q.event.Type,
			"booking_id", q.event.Booking.ID,
			"event_id", msg.GetEventID(),
			"error", err,
		)
		return
	}
	d.log.Debug("Event published", "type", q.event.Type, "booking_id", q.event.Booking.ID, "event_id", msg.GetEventID())
}

// Close stops accepting events and waits until queued ones are published
// or ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.log.Warn("Event dispatcher shutdown timed out", "pending", len(d.queue))
		return ctx.Err()
	}
}
