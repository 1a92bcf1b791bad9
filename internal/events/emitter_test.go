package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

// MockEventHandler records the events it receives
type MockEventHandler struct {
	mu           sync.Mutex
	HandledCount int
	LastEvent    *TaskEvent
	HandlerError error
}

func (m *MockEventHandler) HandleEvent(_ context.Context, event *TaskEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HandledCount++
	m.LastEvent = event
	return m.HandlerError
}

func testEvent() *TaskEvent {
	return NewTaskEvent(TaskCreated, domain.NewTask("t1", "p", nil, domain.ViewCreate, "", time.Now()))
}

func TestInMemoryEventEmitter(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("emit event with no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		assert.NoError(t, emitter.EmitEvent(context.Background(), testEvent()))
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		handler1 := &MockEventHandler{}
		handler2 := &MockEventHandler{}
		emitter.RegisterHandler("first", handler1)
		emitter.RegisterHandler("second", handler2)

		event := testEvent()
		assert.NoError(t, emitter.EmitEvent(context.Background(), event))

		assert.Equal(t, 1, handler1.HandledCount)
		assert.Equal(t, 1, handler2.HandledCount)
		assert.Equal(t, event, handler1.LastEvent)
		assert.Equal(t, event, handler2.LastEvent)
	})

	t.Run("emit event with failing handler", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		successHandler := &MockEventHandler{}
		failingHandler := &MockEventHandler{HandlerError: errors.New("handler error")}
		emitter.RegisterHandler("redis", failingHandler)
		emitter.RegisterHandler("broker", successHandler)

		err := emitter.EmitEvent(context.Background(), testEvent())
		assert.EqualError(t, err, "redis: handler error")
		assert.ErrorIs(t, err, failingHandler.HandlerError)

		// every handler still receives the event
		assert.Equal(t, 1, successHandler.HandledCount)
		assert.Equal(t, 1, failingHandler.HandledCount)
	})
}

func TestBroker(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("delivers to every subscriber", func(t *testing.T) {
		broker := NewBroker(4, logger)
		ch1, cancel1 := broker.Subscribe()
		ch2, cancel2 := broker.Subscribe()
		defer cancel1()
		defer cancel2()
		assert.Equal(t, 2, broker.Subscribers())

		event := testEvent()
		assert.NoError(t, broker.HandleEvent(context.Background(), event))

		assert.Equal(t, event.ID, (<-ch1).ID)
		assert.Equal(t, event.ID, (<-ch2).ID)
	})

	t.Run("drops events for full subscribers", func(t *testing.T) {
		broker := NewBroker(1, logger)
		ch, cancel := broker.Subscribe()
		defer cancel()

		first := testEvent()
		assert.NoError(t, broker.HandleEvent(context.Background(), first))
		assert.NoError(t, broker.HandleEvent(context.Background(), testEvent()))

		assert.Equal(t, first.ID, (<-ch).ID)
		select {
		case <-ch:
			t.Fatal("expected the second event to be dropped")
		default:
		}
	})

	t.Run("cancel closes the channel once", func(t *testing.T) {
		broker := NewBroker(1, logger)
		ch, cancel := broker.Subscribe()
		cancel()
		cancel()

		_, open := <-ch
		assert.False(t, open)
		assert.Equal(t, 0, broker.Subscribers())
	})
}
