package events_test

import (
	"context"
	"testing"
	"time"

	"event-ticketing/internal/clock"
	"event-ticketing/internal/database/dbtest"
	eventsdb "event-ticketing/internal/events/db"
	events "event-ticketing/internal/events/service"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/metrics"
	"event-ticketing/internal/models"
	"event-ticketing/internal/stock"
	ticketsdb "event-ticketing/internal/tickets/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event models.TicketEventDto) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

var now = time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *events.EventService
	tickets   *ticketsdb.DB
	ledger    *stock.Ledger
	publisher *MockPublisher
}

func newFixture(t *testing.T) *fixture {
	bunDB := dbtest.NewSQLite(t)
	eventDB := &eventsdb.DB{Bun: bunDB}
	ticketDB := &ticketsdb.DB{Bun: bunDB}
	clk := clock.NewFixed(now)
	log := logger.NewDiscard()
	publisher := new(MockPublisher)

	ledger := stock.NewLedger(eventDB, ticketDB, clk, log)
	return &fixture{
		svc:       events.NewEventService(eventDB, ticketDB, ledger, publisher, metrics.Noop{}, clk, log),
		tickets:   ticketDB,
		ledger:    ledger,
		publisher: publisher,
	}
}

func details() models.EventDetails {
	return models.EventDetails{
		Name:            "Book Fair",
		Description:     "National book fair",
		StartDate:       now.Add(24 * time.Hour),
		EndDate:         now.Add(72 * time.Hour),
		Location:        "Dhaka",
		TicketBasePrice: 50,
	}
}

func (f *fixture) sell(t *testing.T, eventID string, n int) {
	for i := 0; i < n; i++ {
		ok, err := f.ledger.ReserveUnit(context.Background(), eventID)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, f.tickets.CreateTicket(context.Background(), &models.Ticket{
			ID: uuid.NewString(), EventID: eventID, Code: uuid.NewString()[:13],
			PaymentMethod: models.PaymentCash, Status: models.TicketUnused, CreatedAt: now,
		}))
	}
}

func TestCreateAndGetEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.svc.CreateEvent(ctx, details(), 100)
	require.NoError(t, err)
	assert.Equal(t, 100, event.TicketQuota)
	assert.Equal(t, 100, event.TicketStock)
	assert.True(t, now.Equal(event.CreatedAt))

	got, err := f.svc.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Book Fair", got.Name)

	list, err := f.svc.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, event.ID, list[0].ID)

	_, err = f.svc.CreateEvent(ctx, details(), 0)
	assert.ErrorIs(t, err, models.ErrInvalidQuota)
}

func TestUpdateEventWithQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event, err := f.svc.CreateEvent(ctx, details(), 10)
	require.NoError(t, err)
	f.sell(t, event.ID, 4)

	f.publisher.On("Publish", ctx, mock.MatchedBy(func(e models.TicketEventDto) bool {
		return e.Type == models.QuotaResized && e.Quota == 12
	})).Return(nil).Once()

	d := details()
	d.Location = "Khulna"
	quota := 12
	updated, err := f.svc.UpdateEvent(ctx, event.ID, d, &quota)
	require.NoError(t, err)
	assert.Equal(t, 12, updated.TicketQuota)
	assert.Equal(t, 8, updated.TicketStock)
	assert.Equal(t, "Khulna", updated.Location)
	f.publisher.AssertExpectations(t)

	quota = 3
	_, err = f.svc.UpdateEvent(ctx, event.ID, d, &quota)
	assert.ErrorIs(t, err, models.ErrInvalidQuota)
}

func TestUpdateEventDetailsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event, err := f.svc.CreateEvent(ctx, details(), 10)
	require.NoError(t, err)

	d := details()
	d.Name = "Book Fair 2030"
	updated, err := f.svc.UpdateEvent(ctx, event.ID, d, nil)
	require.NoError(t, err)
	assert.Equal(t, "Book Fair 2030", updated.Name)
	assert.Equal(t, 10, updated.TicketQuota)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)

	_, err = f.svc.UpdateEvent(ctx, uuid.NewString(), d, nil)
	assert.ErrorIs(t, err, models.ErrEventNotFound)
}

func TestDeleteAndReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.CreateEvent(ctx, details(), 5)
	require.NoError(t, err)
	second, err := f.svc.CreateEvent(ctx, details(), 5)
	require.NoError(t, err)
	f.sell(t, second.ID, 2)

	require.NoError(t, f.svc.DeleteEvent(ctx, first.ID))
	assert.ErrorIs(t, f.svc.DeleteEvent(ctx, first.ID), models.ErrEventNotFound)

	require.NoError(t, f.svc.ResetDatabase(ctx))
	list, err := f.svc.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	count, err := f.tickets.CountByEvent(ctx, second.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.NoError(t, f.svc.Ping(ctx))
}
