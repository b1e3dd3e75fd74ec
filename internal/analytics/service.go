package analytics

import (
	"context"
	"fmt"

	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"
)

type InsightsStore interface {
	Insights(ctx context.Context, eventID string) (*models.EventInsights, error)
}

type EventReader interface {
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
}

// InsightsCache stores computed insights for a short time. Implementations
// report a miss as (nil, nil).
type InsightsCache interface {
	Get(ctx context.Context, eventID string) (*models.EventInsights, error)
	Set(ctx context.Context, eventID string, insights *models.EventInsights) error
	Delete(ctx context.Context, eventID string) error
}

// Service handles analytics operations
type Service struct {
	events  EventReader
	tickets InsightsStore
	cache   InsightsCache
	log     *logger.Logger
}

// NewService creates a new analytics service. cache may be nil.
func NewService(events EventReader, tickets InsightsStore, cache InsightsCache, log *logger.Logger) *Service {
	return &Service{events: events, tickets: tickets, cache: cache, log: log}
}

// GetEventInsights returns revenue, attendance and sales of an event. Cache
// failures fall through to the store.
func (s *Service) GetEventInsights(ctx context.Context, eventID string) (*models.EventInsights, error) {
	if _, err := s.events.GetEventByID(ctx, eventID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, eventID)
		if err != nil {
			s.log.Warn("REDIS", fmt.Sprintf("Insights cache read failed for %s: %v", eventID, err))
		} else if cached != nil {
			return cached, nil
		}
	}

	insights, err := s.tickets.Insights(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, eventID, insights); err != nil {
			s.log.Warn("REDIS", fmt.Sprintf("Insights cache write failed for %s: %v", eventID, err))
		}
	}
	return insights, nil
}

// Invalidate drops the cached insights of an event after its tickets changed.
func (s *Service) Invalidate(ctx context.Context, eventID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, eventID); err != nil {
		s.log.Warn("REDIS", fmt.Sprintf("Insights cache invalidation failed for %s: %v", eventID, err))
	}
}

// HandleTicketEvent invalidates on every lifecycle event consumed from Kafka.
// All instances share one consumer group, so each message reaches a single
// instance; the cache entry it drops lives in Redis and is shared by all.
func (s *Service) HandleTicketEvent(ctx context.Context, event models.TicketEventDto) {
	s.Invalidate(ctx, event.EventID)
}
