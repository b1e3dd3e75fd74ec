package event_api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"
	"event-ticketing/internal/utils"

	"github.com/go-chi/chi/v5"
)

type EventService interface {
	CreateEvent(ctx context.Context, details models.EventDetails, quota int) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.EventSummary, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	UpdateEvent(ctx context.Context, id string, details models.EventDetails, quota *int) (*models.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

type TicketService interface {
	IssueTicket(ctx context.Context, eventID string, method models.PaymentMethod) (*models.Ticket, error)
	ListTickets(ctx context.Context, eventID string) ([]models.Ticket, error)
	DeleteTicket(ctx context.Context, eventID, ticketID string) error
}

type Handler struct {
	Events  EventService
	Tickets TicketService
	Logger  *logger.Logger
}

func NewHandler(events EventService, tickets TicketService, log *logger.Logger) *Handler {
	return &Handler{Events: events, Tickets: tickets, Logger: log}
}

// eventFields are the descriptive fields shared by create and update bodies.
type eventFields struct {
	Name            string    `json:"name" validate:"required,min=3,max=100"`
	Description     string    `json:"description" validate:"required,min=10"`
	StartDate       time.Time `json:"start_date" validate:"required"`
	EndDate         time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	Location        string    `json:"location" validate:"required,min=3"`
	TicketBasePrice *float64  `json:"ticket_base_price" validate:"required,gte=0"`
}

func (f eventFields) details() models.EventDetails {
	return models.EventDetails{
		Name:            f.Name,
		Description:     f.Description,
		StartDate:       f.StartDate,
		EndDate:         f.EndDate,
		Location:        f.Location,
		TicketBasePrice: *f.TicketBasePrice,
	}
}

type CreateEventRequest struct {
	eventFields
	TicketQuota int `json:"ticket_quota" validate:"required,gt=0"`
}

// UpdateEventRequest replaces the descriptive fields. A missing ticket_quota
// leaves quota and stock untouched.
type UpdateEventRequest struct {
	eventFields
	TicketQuota *int `json:"ticket_quota" validate:"omitempty,gt=0"`
}

type IssueTicketRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash online"`
}

// RegisterRoutes registers the event routes and the event scoped ticket routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.ListEvents)
	r.Post("/events", h.CreateEvent)
	r.Get("/events/{event_id}", h.GetEvent)
	r.Put("/events/{event_id}", h.UpdateEvent)
	r.Delete("/events/{event_id}", h.DeleteEvent)

	r.Get("/events/{event_id}/tickets", h.ListEventTickets)
	r.Post("/events/{event_id}/tickets", h.IssueTicket)
	r.Delete("/events/{event_id}/tickets/{ticket_id}", h.DeleteTicket)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.Logger.Debug("API", fmt.Sprintf("%s %s failed: %v", r.Method, r.URL.Path, err))
	utils.WriteError(w, err)
}

// pathID reads a UUID path parameter.
func pathID(r *http.Request, name string) (string, error) {
	id := chi.URLParam(r, name)
	if err := utils.ValidateID(id); err != nil {
		return "", err
	}
	return id, nil
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Events.ListEvents(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "events retrieved", events)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	event, err := h.Events.CreateEvent(r.Context(), req.details(), req.TicketQuota)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "event created", event)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "event_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	event, err := h.Events.GetEvent(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "event retrieved", event)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "event_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req UpdateEventRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	event, err := h.Events.UpdateEvent(r.Context(), id, req.details(), req.TicketQuota)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "event updated", event)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "event_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Events.DeleteEvent(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "event deleted", nil)
}

func (h *Handler) ListEventTickets(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "event_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	tickets, err := h.Tickets.ListTickets(r.Context(), eventID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "tickets retrieved", tickets)
}

func (h *Handler) IssueTicket(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "event_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req IssueTicketRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ticket, err := h.Tickets.IssueTicket(r.Context(), eventID, models.PaymentMethod(req.PaymentMethod))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "ticket issued", ticket)
}

func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "event_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ticketID, err := pathID(r, "ticket_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Tickets.DeleteTicket(r.Context(), eventID, ticketID); err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "ticket deleted", nil)
}
