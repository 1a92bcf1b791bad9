package events

import (
	"context"
	"log/slog"
	"sync"
)

// Broker fans task events out to in-process subscribers, such as open
// server-sent event streams. A subscriber that falls behind loses events
// rather than blocking the scheduler; it can always re-read the store.
type Broker struct {
	mu     sync.Mutex
	subs   map[int]chan TaskEvent
	nextID int
	buffer int
	logger *slog.Logger
}

// NewBroker creates a Broker whose subscriber channels hold buffer events.
func NewBroker(buffer int, logger *slog.Logger) *Broker {
	if buffer <= 0 {
		buffer = 1
	}
	return &Broker{
		subs:   make(map[int]chan TaskEvent),
		buffer: buffer,
		logger: logger.With("component", "event_broker"),
	}
}

// Subscribe registers a new subscriber. The returned cancel function
// unsubscribes and closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe() (<-chan TaskEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan TaskEvent, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// HandleEvent delivers the event to every subscriber without blocking.
func (b *Broker) HandleEvent(_ context.Context, event *TaskEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- *event:
		default:
			b.logger.Warn("dropping event for slow subscriber",
				"subscriber_id", id,
				"event_id", event.ID,
				"task_id", event.TaskID)
		}
	}
	return nil
}

// Subscribers returns the number of active subscribers.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

var _ EventHandler = (*Broker)(nil)
