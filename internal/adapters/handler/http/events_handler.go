package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
)

const (
	defaultHeartbeat = 25 * time.Second
	streamBuffer     = 32
)

// EventsHandler forwards bus events to browsers as server-sent events.
// Events are change hints; clients re-fetch the affected resource.
type EventsHandler struct {
	bus       ports.Subscriber
	heartbeat time.Duration
}

func NewEventsHandler(bus ports.Subscriber) *EventsHandler {
	return &EventsHandler{
		bus:       bus,
		heartbeat: defaultHeartbeat,
	}
}

func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	topics := r.URL.Query()["topic"]
	if len(topics) == 0 {
		topics = domain.AllTopics()
	}
	known := domain.AllTopics()
	for _, topic := range topics {
		if !slices.Contains(known, topic) {
			http.Error(w, fmt.Sprintf("unknown topic %q", topic), http.StatusBadRequest)
			return
		}
	}

	ctx := r.Context()
	events := make(chan domain.Event, streamBuffer)
	for _, topic := range topics {
		unsubscribe, err := h.bus.Subscribe(ctx, topic, func(_ context.Context, ev domain.Event) {
			select {
			case events <- ev:
			default:
				// A slow client misses hints and catches up on its next fetch.
			}
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		defer unsubscribe()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			payload, err := json.Marshal(ev)
			if err != nil {
				logger().Warn("failed to encode event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
