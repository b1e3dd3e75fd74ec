package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"
	"event-ticketing/internal/utils"

	"github.com/go-chi/chi/v5"
)

var keepAlive = 20 * time.Second

type EventReader interface {
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
}

// Handler streams an event's ticket activity as Server-Sent Events.
type Handler struct {
	Emitter *TicketEventEmitter
	Events  EventReader
	Logger  *logger.Logger
}

func NewHandler(emitter *TicketEventEmitter, events EventReader, log *logger.Logger) *Handler {
	return &Handler{Emitter: emitter, Events: events, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events/{event_id}/stream", h.StreamEventTickets)
}

func (h *Handler) StreamEventTickets(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")
	if err := utils.ValidateID(eventID); err != nil {
		utils.WriteError(w, err)
		return
	}
	if _, err := h.Events.GetEventByID(r.Context(), eventID); err != nil {
		utils.WriteError(w, err)
		return
	}

	rc := http.NewResponseController(w)
	// streams outlive the server's write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	eventChan := h.Emitter.SubscribeToEvent(ctx, eventID)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"event_id\":\"%s\"}\n\n", eventID)
	if err := rc.Flush(); err != nil {
		h.Logger.Error("SSE", fmt.Sprintf("Streaming unsupported: %v", err))
		return
	}
	h.Logger.Info("SSE", fmt.Sprintf("Client connected to ticket stream for event: %s", eventID))

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			jsonData, err := json.Marshal(event)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize ticket event: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, jsonData)
			_ = rc.Flush()

		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			_ = rc.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from ticket stream for: %s", eventID))
			return
		}
	}
}
