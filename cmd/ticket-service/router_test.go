package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"event-ticketing/internal/analytics"
	analytics_api "event-ticketing/internal/analytics/api"
	"event-ticketing/internal/clock"
	"event-ticketing/internal/database/dbtest"
	eventsdb "event-ticketing/internal/events/db"
	"event-ticketing/internal/events/event_api"
	events "event-ticketing/internal/events/service"
	"event-ticketing/internal/kafka"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/metrics"
	"event-ticketing/internal/sse"
	"event-ticketing/internal/stock"
	"event-ticketing/internal/tickets/codegen"
	ticketsdb "event-ticketing/internal/tickets/db"
	"event-ticketing/internal/tickets/qr"
	tickets "event-ticketing/internal/tickets/service"
	"event-ticketing/internal/tickets/ticket_api"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type app struct {
	t       *testing.T
	handler http.Handler
	reg     *prometheus.Registry
}

var now = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

func newApp(t *testing.T, allowReset bool, ping func(context.Context) error) *app {
	bunDB := dbtest.NewSQLite(t)
	eventDB := &eventsdb.DB{Bun: bunDB}
	ticketDB := &ticketsdb.DB{Bun: bunDB}
	log := logger.NewDiscard()
	clk := clock.NewFixed(now)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	codes, err := codegen.NewGenerator(codegen.DefaultOptions())
	require.NoError(t, err)

	insights := analytics.NewService(eventDB, ticketDB, nil, log)
	emitter := sse.NewTicketEventEmitter()
	ledger := stock.NewLedger(eventDB, ticketDB, clk, log)
	ticketService := tickets.NewTicketService(ticketDB, eventDB, ledger, codes, emitter, m, qr.NewQRGenerator("test-secret"), clk, log)
	eventService := events.NewEventService(eventDB, ticketDB, ledger, kafka.NoopPublisher{}, m, clk, log)

	var reset func(context.Context) error
	if allowReset {
		reset = eventService.ResetDatabase
	}
	if ping == nil {
		ping = eventService.Ping
	}

	return &app{
		t:   t,
		reg: reg,
		handler: newRouter(routerDeps{
			Events:         event_api.NewHandler(eventService, ticketService, log),
			Tickets:        ticket_api.NewHandler(ticketService, log),
			Insights:       analytics_api.NewHandler(insights, log),
			Stream:         sse.NewHandler(emitter, eventDB, log),
			Ping:           ping,
			Reset:          reset,
			Observer:       m,
			MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			Logger:         log,
		}),
	}
}

func (a *app) call(method, target, body string, out interface{}) (int, envelope) {
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))

	var env envelope
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if out != nil && len(env.Data) > 0 {
		require.NoError(a.t, json.Unmarshal(env.Data, out))
	}
	return rec.Code, env
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	a := newApp(t, false, nil)

	var event struct {
		ID          string `json:"id"`
		TicketStock int    `json:"ticket_stock"`
	}
	status, _ := a.call(http.MethodPost, "/api/v1/events", `{
		"name": "Rooftop Jazz",
		"description": "An evening of live jazz",
		"start_date": "2030-06-01T10:00:00Z",
		"end_date": "2030-06-01T23:00:00Z",
		"location": "Chattogram",
		"ticket_base_price": 100,
		"ticket_quota": 1
	}`, &event)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, 1, event.TicketStock)

	var ticket struct {
		ID         string  `json:"id"`
		Code       string  `json:"code"`
		FinalPrice float64 `json:"final_price"`
	}
	status, _ = a.call(http.MethodPost, "/api/v1/events/"+event.ID+"/tickets", `{"payment_method":"online"}`, &ticket)
	require.Equal(t, http.StatusCreated, status)
	assert.Regexp(t, `^MANBD-\d{6}$`, ticket.Code)
	assert.Equal(t, 125.0, ticket.FinalPrice)

	status, env := a.call(http.MethodPost, "/api/v1/events/"+event.ID+"/tickets", `{"payment_method":"cash"}`, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_QUOTA", env.Error.Code)

	status, _ = a.call(http.MethodPost, "/api/v1/tickets/"+ticket.ID+"/check-in", "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, env = a.call(http.MethodPost, "/api/v1/tickets/"+ticket.ID+"/check-in", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "TICKET_ALREADY_USED", env.Error.Code)

	var insights struct {
		TotalRevenue    float64 `json:"total_revenue"`
		TotalAttendees  int     `json:"total_attendees"`
		TicketSoldCount int     `json:"ticket_sold_count"`
	}
	status, _ = a.call(http.MethodGet, "/api/v1/events/"+event.ID+"/insights", "", &insights)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 125.0, insights.TotalRevenue)
	assert.Equal(t, 1, insights.TotalAttendees)
	assert.Equal(t, 1, insights.TicketSoldCount)

	status, _ = a.call(http.MethodDelete, "/api/v1/events/"+event.ID+"/tickets/"+ticket.ID, "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = a.call(http.MethodGet, "/api/v1/events/"+event.ID, "", &event)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, event.TicketStock)

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `tickets_issued_total{payment_method="online"} 1`)
	assert.Contains(t, body, `route="/api/v1/events/{event_id}/tickets"`)
}

func TestHealthAndInfo(t *testing.T) {
	a := newApp(t, false, nil)
	status, env := a.call(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	status, _ = a.call(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)

	down := newApp(t, false, func(context.Context) error { return errors.New("connection refused") })
	status, env = down.call(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Error.Code)
}

func TestResetDatabase(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		a := newApp(t, false, nil)
		status, env := a.call(http.MethodPost, "/api/v1/reset-database", "", nil)
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "RESET_DISABLED", env.Error.Code)
	})

	t.Run("enabled", func(t *testing.T) {
		a := newApp(t, true, nil)
		status, _ := a.call(http.MethodPost, "/api/v1/events", `{
			"name": "Rooftop Jazz",
			"description": "An evening of live jazz",
			"start_date": "2030-06-01T10:00:00Z",
			"end_date": "2030-06-01T23:00:00Z",
			"location": "Chattogram",
			"ticket_base_price": 10,
			"ticket_quota": 5
		}`, nil)
		require.Equal(t, http.StatusCreated, status)

		status, _ = a.call(http.MethodGet, "/api/v1/reset-database", "", nil)
		assert.Equal(t, http.StatusOK, status)

		var list []json.RawMessage
		status, _ = a.call(http.MethodGet, "/api/v1/events", "", &list)
		assert.Equal(t, http.StatusOK, status)
		assert.Empty(t, list)
	})
}

func TestStreamUnknownEvent(t *testing.T) {
	a := newApp(t, false, nil)

	status, env := a.call(http.MethodGet, "/api/v1/events/3b0d9f64-1c2a-4e57-8f0e-6a9b2c4d5e71/stream", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "EVENT_NOT_FOUND", env.Error.Code)
}
