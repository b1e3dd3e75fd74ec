package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventID = "7f1c8a52-4c8e-4f7e-9d55-2f0b7d1e6a10"

func TestEmitterDeliversToEventSubscribersOnly(t *testing.T) {
	e := NewTicketEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	mine := e.SubscribeToEvent(ctx, eventID)
	other := e.SubscribeToEvent(ctx, "another-event")
	assert.Equal(t, 1, e.ClientCount(eventID))

	require.NoError(t, e.Publish(ctx, models.TicketEventDto{Type: models.TicketIssued, EventID: eventID, TicketID: "t-1"}))

	select {
	case got := <-mine:
		assert.Equal(t, "t-1", got.TicketID)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the event")
	}
	assert.Empty(t, other)

	cancel()
	assert.Eventually(t, func() bool { return e.ClientCount(eventID) == 0 }, time.Second, 10*time.Millisecond)
	_, open := <-mine
	assert.False(t, open)
}

func TestEmitDropsWhenClientIsSlow(t *testing.T) {
	e := NewTicketEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := e.SubscribeToEvent(ctx, eventID)
	for i := 0; i < 25; i++ {
		e.Emit(models.TicketEventDto{EventID: eventID})
	}
	assert.Len(t, ch, 10)
}

type knownEvents []string

func (k knownEvents) GetEventByID(_ context.Context, id string) (*models.Event, error) {
	for _, known := range k {
		if known == id {
			return &models.Event{ID: id}, nil
		}
	}
	return nil, models.ErrEventNotFound
}

func TestStreamEventTickets(t *testing.T) {
	e := NewTicketEventEmitter()
	r := chi.NewRouter()
	NewHandler(e, knownEvents{eventID}, logger.NewDiscard()).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events/"+eventID+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	require.Eventually(t, func() bool { return e.ClientCount(eventID) == 1 }, time.Second, 10*time.Millisecond)
	e.Emit(models.TicketEventDto{Type: models.TicketCheckedIn, EventID: eventID, TicketID: "t-9"})

	var lines []string
	for len(lines) < 5 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		lines = append(lines, line)
	}
	stream := strings.Join(lines, "")
	assert.Contains(t, stream, "event: ticket.checked_in\n")
	assert.Contains(t, stream, `"ticket_id":"t-9"`)
}

func TestStreamRejectsBadID(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(NewTicketEventEmitter(), knownEvents{eventID}, logger.NewDiscard()).RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/nope/stream", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamRejectsUnknownEvent(t *testing.T) {
	e := NewTicketEventEmitter()
	r := chi.NewRouter()
	NewHandler(e, knownEvents{eventID}, logger.NewDiscard()).RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/3b0d9f64-1c2a-4e57-8f0e-6a9b2c4d5e71/stream", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "EVENT_NOT_FOUND")
	assert.Zero(t, e.ClientCount("3b0d9f64-1c2a-4e57-8f0e-6a9b2c4d5e71"))
}
