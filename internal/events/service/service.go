package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-ticketing/internal/clock"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"

	"github.com/google/uuid"
)

type EventDBLayer interface {
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.EventSummary, error)
	CreateEvent(ctx context.Context, event *models.Event) error
	UpdateEventDetails(ctx context.Context, id string, details models.EventDetails, now time.Time) error
	DeleteEvent(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	Ping(ctx context.Context) error
}

type TicketPurger interface {
	DeleteAll(ctx context.Context) error
}

type QuotaResizer interface {
	AdjustQuota(ctx context.Context, eventID string, newQuota int, details *models.EventDetails) (*models.Event, error)
}

type Publisher interface {
	Publish(ctx context.Context, event models.TicketEventDto) error
}

type Metrics interface {
	QuotaResized(result string)
}

type EventService struct {
	DB        EventDBLayer
	Tickets   TicketPurger
	Resizer   QuotaResizer
	Publisher Publisher
	Metrics   Metrics
	Clock     clock.Clock
	Logger    *logger.Logger
}

func NewEventService(db EventDBLayer, tickets TicketPurger, resizer QuotaResizer, publisher Publisher,
	metrics Metrics, clk clock.Clock, log *logger.Logger) *EventService {
	return &EventService{
		DB:        db,
		Tickets:   tickets,
		Resizer:   resizer,
		Publisher: publisher,
		Metrics:   metrics,
		Clock:     clk,
		Logger:    log,
	}
}

// CreateEvent stores a new event with its whole quota in stock.
func (s *EventService) CreateEvent(ctx context.Context, details models.EventDetails, quota int) (*models.Event, error) {
	if quota <= 0 {
		return nil, models.ErrInvalidQuota
	}

	now := s.Clock.Now()
	event := &models.Event{
		ID:              uuid.New().String(),
		Name:            details.Name,
		Description:     details.Description,
		StartDate:       details.StartDate.UTC(),
		EndDate:         details.EndDate.UTC(),
		Location:        details.Location,
		TicketBasePrice: details.TicketBasePrice,
		TicketQuota:     quota,
		TicketStock:     quota,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.DB.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	s.Logger.Info("EVENT", fmt.Sprintf("Created event %s with quota %d", event.ID, quota))
	return event, nil
}

func (s *EventService) ListEvents(ctx context.Context) ([]models.EventSummary, error) {
	return s.DB.ListEvents(ctx)
}

func (s *EventService) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return s.DB.GetEventByID(ctx, id)
}

// UpdateEvent replaces the descriptive fields. When quota is set the change goes
// through the quota resizer, which writes fields, quota and stock together.
func (s *EventService) UpdateEvent(ctx context.Context, id string, details models.EventDetails, quota *int) (*models.Event, error) {
	details.StartDate = details.StartDate.UTC()
	details.EndDate = details.EndDate.UTC()

	if quota == nil {
		if err := s.DB.UpdateEventDetails(ctx, id, details, s.Clock.Now()); err != nil {
			return nil, err
		}
		return s.DB.GetEventByID(ctx, id)
	}

	before, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}

	event, err := s.Resizer.AdjustQuota(ctx, id, *quota, &details)
	switch {
	case errors.Is(err, models.ErrInvalidQuota):
		s.Metrics.QuotaResized("invalid")
		return nil, err
	case errors.Is(err, models.ErrQuotaConflict):
		s.Metrics.QuotaResized("conflict")
		return nil, err
	case err != nil:
		return nil, err
	}

	s.Metrics.QuotaResized("ok")
	if event.TicketQuota != before.TicketQuota {
		if err := s.Publisher.Publish(ctx, models.NewQuotaResizedDto(event, s.Clock.Now())); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish quota change of %s: %v", id, err))
		}
	}
	return event, nil
}

func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	if err := s.DB.DeleteEvent(ctx, id); err != nil {
		return err
	}
	s.Logger.Info("EVENT", fmt.Sprintf("Deleted event %s and its tickets", id))
	return nil
}

// ResetDatabase wipes every ticket and event. Only wired when explicitly allowed.
func (s *EventService) ResetDatabase(ctx context.Context) error {
	if err := s.Tickets.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.DB.DeleteAll(ctx); err != nil {
		return err
	}
	s.Logger.Warn("DATABASE", "Database reset: all events and tickets deleted")
	return nil
}

func (s *EventService) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}
