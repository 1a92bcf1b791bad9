package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

type namedHandler struct {
	name    string
	handler EventHandler
}

// InMemoryEventEmitter delivers each event synchronously to every registered
// handler, in registration order.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []namedHandler
	logger   *slog.Logger
}

// NewInMemoryEventEmitter creates an emitter with no handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: logger.With("component", "event_emitter"),
	}
}

// RegisterHandler adds a handler. The name identifies it in logs and errors.
func (e *InMemoryEventEmitter) RegisterHandler(name string, handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, namedHandler{name: name, handler: handler})
	e.logger.Debug("registered event handler", "handler", name, "handler_count", len(e.handlers))
}

// EmitEvent implements EventEmitter. A failing handler does not stop delivery
// to the others; all failures are returned joined.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *TaskEvent) error {
	e.mu.RLock()
	handlers := append([]namedHandler(nil), e.handlers...)
	e.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h.handler.HandleEvent(ctx, event); err != nil {
			e.logger.Warn("event handler failed",
				"handler", h.name,
				"event_type", event.Type,
				"task_id", event.TaskID,
				"error", err)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	return errors.Join(errs...)
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)
