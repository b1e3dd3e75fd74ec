package ticket_api

import (
	"context"
	"fmt"
	"net/http"

	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"
	"event-ticketing/internal/utils"

	"github.com/go-chi/chi/v5"
)

type TicketService interface {
	ListTickets(ctx context.Context, eventID string) ([]models.Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (*models.Ticket, error)
	CheckIn(ctx context.Context, ticketID string) (*models.Ticket, error)
	CheckInWithToken(ctx context.Context, token string) (*models.Ticket, error)
	TicketQR(ctx context.Context, ticketID string) ([]byte, error)
}

type Handler struct {
	TicketService TicketService
	Logger        *logger.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(ticketService TicketService, log *logger.Logger) *Handler {
	return &Handler{
		TicketService: ticketService,
		Logger:        log,
	}
}

// QRCheckinRequest carries the token read from a ticket's QR code.
type QRCheckinRequest struct {
	Token string `json:"token" validate:"required"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/tickets", h.ListTickets)
	r.Post("/tickets/check-in/qr", h.CheckinWithQR)
	r.Get("/tickets/{ticket_id}", h.GetTicket)
	r.Post("/tickets/{ticket_id}/check-in", h.CheckinTicket)
	r.Get("/tickets/{ticket_id}/qr", h.GetTicketQR)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.Logger.Debug("API", fmt.Sprintf("%s %s failed: %v", r.Method, r.URL.Path, err))
	utils.WriteError(w, err)
}

// ListTickets returns every ticket, or only those of ?event_id= when given.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("event_id")
	if eventID != "" {
		if err := utils.ValidateID(eventID); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	tickets, err := h.TicketService.ListTickets(r.Context(), eventID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "tickets retrieved", tickets)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticket_id")
	if err := utils.ValidateID(ticketID); err != nil {
		h.fail(w, r, err)
		return
	}

	ticket, err := h.TicketService.GetTicket(r.Context(), ticketID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "ticket retrieved", ticket)
}

// CheckinTicket marks a ticket used by id.
func (h *Handler) CheckinTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticket_id")
	if err := utils.ValidateID(ticketID); err != nil {
		h.fail(w, r, err)
		return
	}

	ticket, err := h.TicketService.CheckIn(r.Context(), ticketID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "ticket checked in", ticket)
}

// CheckinWithQR checks a ticket in from a scanned QR token.
// Expected POST request body: {"token": "<sealed token>"}
func (h *Handler) CheckinWithQR(w http.ResponseWriter, r *http.Request) {
	var req QRCheckinRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ticket, err := h.TicketService.CheckInWithToken(r.Context(), req.Token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "ticket checked in", ticket)
}

func (h *Handler) GetTicketQR(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticket_id")
	if err := utils.ValidateID(ticketID); err != nil {
		h.fail(w, r, err)
		return
	}

	png, err := h.TicketService.TicketQR(r.Context(), ticketID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
