package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-ticketing/internal/clock"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"
	"event-ticketing/internal/pricing"
	"event-ticketing/internal/tickets/qr"

	"github.com/google/uuid"
)

type TicketDBLayer interface {
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	ListTickets(ctx context.Context, eventID string) ([]models.Ticket, error)
	MarkUsed(ctx context.Context, id string, at time.Time) (bool, error)
	DeleteTicket(ctx context.Context, id string) error
}

type EventReader interface {
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
}

type StockLedger interface {
	ReserveUnit(ctx context.Context, eventID string) (bool, error)
	ReleaseUnit(ctx context.Context, eventID string) error
}

// CodeGenerator retries persist with fresh codes while the store reports
// models.ErrDuplicateCode.
type CodeGenerator interface {
	Attempt(ctx context.Context, persist func(ctx context.Context, code string) error) (int, error)
}

type Publisher interface {
	Publish(ctx context.Context, event models.TicketEventDto) error
}

type Metrics interface {
	TicketIssued(method models.PaymentMethod)
	IssueFailed(reason string)
	CodeCollisions(n int)
	CheckIn(result string)
	StockReleased()
}

type TicketService struct {
	DB        TicketDBLayer
	Events    EventReader
	Stock     StockLedger
	Codes     CodeGenerator
	Publisher Publisher
	Metrics   Metrics
	QR        *qr.QRGenerator
	Clock     clock.Clock
	Logger    *logger.Logger
}

func NewTicketService(db TicketDBLayer, events EventReader, stock StockLedger, codes CodeGenerator,
	publisher Publisher, metrics Metrics, qrGen *qr.QRGenerator, clk clock.Clock, log *logger.Logger) *TicketService {
	return &TicketService{
		DB:        db,
		Events:    events,
		Stock:     stock,
		Codes:     codes,
		Publisher: publisher,
		Metrics:   metrics,
		QR:        qrGen,
		Clock:     clk,
		Logger:    log,
	}
}

// IssueTicket reserves one unit of the event's stock and persists a ticket with a
// fresh unique code. A reserved unit is not returned when code generation gives up;
// the stock reconciler recovers it.
func (s *TicketService) IssueTicket(ctx context.Context, eventID string, method models.PaymentMethod) (*models.Ticket, error) {
	if !method.Valid() {
		return nil, models.ErrInvalidPaymentMethod
	}

	event, err := s.Events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	basePrice := event.TicketBasePrice

	reserved, err := s.Stock.ReserveUnit(ctx, eventID)
	if err != nil {
		s.Metrics.IssueFailed("store")
		return nil, fmt.Errorf("reserve stock: %w", err)
	}
	if !reserved {
		s.Metrics.IssueFailed("quota_exhausted")
		return nil, models.ErrQuotaExhausted
	}

	ticket := &models.Ticket{
		ID:            uuid.New().String(),
		EventID:       eventID,
		PaymentMethod: method,
		BasePrice:     basePrice,
		FinalPrice:    pricing.FinalPrice(basePrice, method),
		Status:        models.TicketUnused,
		CreatedAt:     s.Clock.Now(),
	}

	collisions, err := s.Codes.Attempt(ctx, func(ctx context.Context, code string) error {
		ticket.Code = code
		return s.DB.CreateTicket(ctx, ticket)
	})
	s.Metrics.CodeCollisions(collisions)
	if errors.Is(err, models.ErrGenerationFailed) {
		s.Metrics.IssueFailed("generation_failed")
		s.Logger.Error("TICKET", fmt.Sprintf("No free code after %d collisions, one unit of event %s stranded", collisions, eventID))
		return nil, err
	}
	if err != nil {
		s.Metrics.IssueFailed("store")
		s.Logger.Error("TICKET", fmt.Sprintf("Failed to persist ticket for event %s, one unit stranded: %v", eventID, err))
		return nil, fmt.Errorf("persist ticket: %w", err)
	}

	s.Metrics.TicketIssued(method)
	s.Logger.LogTicket("ISSUE", ticket.ID, fmt.Sprintf("code %s for event %s (%s, %.2f)", ticket.Code, eventID, method, ticket.FinalPrice))
	s.publish(ctx, models.NewTicketEventDto(models.TicketIssued, ticket, ticket.CreatedAt))
	return ticket, nil
}

// CheckIn consumes an unused ticket while its event is running. The conditional
// status update is the only guard against two concurrent check-ins.
func (s *TicketService) CheckIn(ctx context.Context, ticketID string) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	event, err := s.Events.GetEventByID(ctx, ticket.EventID)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	if now.Before(event.StartDate) {
		s.Metrics.CheckIn("not_started")
		return nil, models.ErrEventNotStarted
	}
	if !now.Before(event.EndDate) {
		s.Metrics.CheckIn("ended")
		return nil, models.ErrEventEnded
	}

	ok, err := s.DB.MarkUsed(ctx, ticketID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.Metrics.CheckIn("already_used")
		return nil, models.ErrTicketAlreadyUsed
	}

	ticket.Status = models.TicketUsed
	ticket.UsedAt = &now

	s.Metrics.CheckIn("ok")
	s.Logger.LogTicket("CHECK-IN", ticket.ID, fmt.Sprintf("event %s", ticket.EventID))
	s.publish(ctx, models.NewTicketEventDto(models.TicketCheckedIn, ticket, now))
	return ticket, nil
}

// CheckInWithToken opens a scanned QR token and checks the ticket in. The token
// must match the stored ticket's event and code.
func (s *TicketService) CheckInWithToken(ctx context.Context, token string) (*models.Ticket, error) {
	payload, err := s.QR.Open(token)
	if err != nil {
		return nil, err
	}

	ticket, err := s.DB.GetTicketByID(ctx, payload.TicketID)
	if err != nil {
		return nil, err
	}
	if ticket.EventID != payload.EventID || ticket.Code != payload.Code {
		return nil, models.ErrInvalidTicketToken
	}

	return s.CheckIn(ctx, ticket.ID)
}

// DeleteTicket removes a ticket of the given event and gives its unit back to stock.
// The two steps are not atomic; a failure between them leaves the unit stranded.
func (s *TicketService) DeleteTicket(ctx context.Context, eventID, ticketID string) error {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.EventID != eventID {
		return models.ErrTicketNotFound
	}

	if err := s.DB.DeleteTicket(ctx, ticketID); err != nil {
		return err
	}
	if err := s.Stock.ReleaseUnit(ctx, eventID); err != nil {
		s.Logger.Error("STOCK", fmt.Sprintf("Ticket %s deleted but release for event %s failed: %v", ticketID, eventID, err))
		return fmt.Errorf("release stock: %w", err)
	}

	s.Metrics.StockReleased()
	s.Logger.LogTicket("DELETE", ticketID, fmt.Sprintf("event %s", eventID))
	s.publish(ctx, models.NewTicketEventDto(models.TicketDeleted, ticket, s.Clock.Now()))
	return nil
}

func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	return s.DB.GetTicketByID(ctx, ticketID)
}

// ListTickets returns all tickets, or those of one event when eventID is set.
func (s *TicketService) ListTickets(ctx context.Context, eventID string) ([]models.Ticket, error) {
	if eventID != "" {
		if _, err := s.Events.GetEventByID(ctx, eventID); err != nil {
			return nil, err
		}
	}
	return s.DB.ListTickets(ctx, eventID)
}

// TicketQR renders the ticket's sealed payload as a PNG.
func (s *TicketService) TicketQR(ctx context.Context, ticketID string) ([]byte, error) {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	png, err := s.QR.GenerateEncryptedQR(ticket)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR: %w", err)
	}
	return png, nil
}

func (s *TicketService) publish(ctx context.Context, event models.TicketEventDto) {
	if err := s.Publisher.Publish(ctx, event); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish %s for event %s: %v", event.Type, event.EventID, err))
	}
}
