package sse

import (
	"context"
	"sync"

	"event-ticketing/internal/models"
)

// TicketEventEmitter fans ticket lifecycle events out to the stream clients of
// each event.
type TicketEventEmitter struct {
	clients map[string][]chan models.TicketEventDto
	mu      sync.RWMutex
}

func NewTicketEventEmitter() *TicketEventEmitter {
	return &TicketEventEmitter{
		clients: make(map[string][]chan models.TicketEventDto),
	}
}

// SubscribeToEvent registers a client for one event. The channel is closed once
// ctx is done.
func (e *TicketEventEmitter) SubscribeToEvent(ctx context.Context, eventID string) <-chan models.TicketEventDto {
	clientChan := make(chan models.TicketEventDto, 10)

	e.mu.Lock()
	e.clients[eventID] = append(e.clients[eventID], clientChan)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(eventID, clientChan)
	}()

	return clientChan
}

// Emit never blocks: a client whose buffer is full misses the event.
func (e *TicketEventEmitter) Emit(event models.TicketEventDto) {
	// sends happen under the read lock so remove cannot close a channel mid-send
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, clientChan := range e.clients[event.EventID] {
		select {
		case clientChan <- event:
		default:
		}
	}
}

// Publish lets the emitter sit in the services' publisher chain.
func (e *TicketEventEmitter) Publish(_ context.Context, event models.TicketEventDto) error {
	e.Emit(event)
	return nil
}

func (e *TicketEventEmitter) remove(eventID string, clientChan chan models.TicketEventDto) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[eventID]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[eventID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.clients[eventID]) == 0 {
		delete(e.clients, eventID)
	}
}

// ClientCount returns the number of clients currently subscribed to an event
func (e *TicketEventEmitter) ClientCount(eventID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[eventID])
}
