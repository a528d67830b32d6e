package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"booktable/pkg/kafka"
	"booktable/pkg/logger"
	"booktable/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	block    chan struct{}
}

func (p *recordingPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) published() []kafka.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kafka.Message(nil), p.messages...)
}

func confirmed(id string) model.BookingEvent {
	return model.BookingEvent{
		Type:           model.EventBookingConfirmed,
		Booking:        model.Booking{ID: id, Status: model.BookingStatusConfirmed},
		RestaurantName: "Bistro",
		OccurredAt:     time.Now(),
	}
}

func TestDispatcher_PublishesQueuedEvents(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, 8, 2, logger.Discard())
	d.Start()

	ctx := WithCorrelationID(context.Background(), "req-1")
	d.Emit(ctx, confirmed("b1"))
	d.Emit(ctx, confirmed("b2"))
	require.NoError(t, d.Close(context.Background()))

	msgs := pub.published()
	require.Len(t, msgs, 2)
	keys := []string{msgs[0].Key, msgs[1].Key}
	assert.ElementsMatch(t, []string{"b1", "b2"}, keys)
	assert.Equal(t, model.EventBookingConfirmed, msgs[0].GetEventType())
	assert.Equal(t, "req-1", msgs[0].GetCorrelationID())
	assert.Equal(t, Source, msgs[0].Headers[kafka.HeaderSource])

	var decoded model.BookingEvent
	require.NoError(t, msgs[0].DecodeValue(&decoded))
	assert.Equal(t, "Bistro", decoded.RestaurantName)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	pub := &recordingPublisher{block: make(chan struct{})}
	d := NewDispatcher(pub, 1, 1, logger.Discard())
	d.Start()

	// The worker takes the first event and blocks; the second fills the
	// queue; the third is dropped without blocking the caller.
	d.Emit(context.Background(), confirmed("b1"))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	d.Emit(context.Background(), confirmed("b2"))

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), confirmed("b3"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full queue")
	}

	close(pub.block)
	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, pub.published(), 2)
}

func TestDispatcher_PublishFailureIsContained(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	d := NewDispatcher(pub, 4, 1, logger.Discard())
	d.Start()

	d.Emit(context.Background(), confirmed("b1"))
	require.NoError(t, d.Close(context.Background()))
	assert.Empty(t, pub.published())
}

func TestDispatcher_EmitAfterClose(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, 4, 1, logger.Discard())
	d.Start()
	require.NoError(t, d.Close(context.Background()))

	assert.NotPanics(t, func() { d.Emit(context.Background(), confirmed("late")) })
	assert.Empty(t, pub.published())
}
