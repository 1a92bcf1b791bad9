package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/phrazzld/studio-api/internal/api/shared"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/events"
	"github.com/phrazzld/studio-api/internal/platform/logger"
)

// DefaultHeartbeat is how often an idle event stream sends a comment line to
// keep proxies from closing it.
const DefaultHeartbeat = 15 * time.Second

// EventSource is where the events handler subscribes to task events.
type EventSource interface {
	Subscribe() (<-chan events.TaskEvent, func())
}

// EventsHandler streams task events to clients as server-sent events.
type EventsHandler struct {
	source    EventSource
	heartbeat time.Duration
	logger    *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewEventsHandler creates an EventsHandler. A zero heartbeat uses
// DefaultHeartbeat.
func NewEventsHandler(source EventSource, heartbeat time.Duration, logger *slog.Logger) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{
		source:    source,
		heartbeat: heartbeat,
		logger:    logger.With("component", "events_handler"),
		done:      make(chan struct{}),
	}
}

// Close ends every open stream and makes new streams return immediately.
// Shutdown of the http.Server does not cancel request contexts; register
// Close with its RegisterOnShutdown.
func (h *EventsHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Stream handles GET /api/events, optionally filtered by ?view=. It runs
// until the client disconnects, the handler is closed or the source closes
// the subscription.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	view := domain.View(r.URL.Query().Get("view"))
	if view != "" && !view.Valid() {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Unknown view")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	log := logger.FromContextOrDefault(r.Context(), h.logger)
	ch, cancel := h.source.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log.Debug("event stream opened", "view", view)
	defer log.Debug("event stream closed", "view", view)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-ch:
			if !ok {
				return
			}
			if view != "" && event.View != view {
				continue
			}
			payload, err := json.Marshal(event)
			if err != nil {
				log.Error("failed to encode task event", "event_id", event.ID, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
