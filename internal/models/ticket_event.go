package models

import "time"

const (
	TicketIssued    = "ticket.issued"
	TicketCheckedIn = "ticket.checked_in"
	TicketDeleted   = "ticket.deleted"
	QuotaResized    = "event.quota_resized"
)

// TicketEventDto is the payload published for ticket lifecycle and quota changes.
type TicketEventDto struct {
	Type       string    `json:"type"`
	EventID    string    `json:"event_id"`
	TicketID   string    `json:"ticket_id,omitempty"`
	Code       string    `json:"code,omitempty"`
	FinalPrice float64   `json:"final_price,omitempty"`
	Quota      int       `json:"ticket_quota,omitempty"`
	Stock      int       `json:"ticket_stock,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewTicketEventDto(kind string, ticket *Ticket, at time.Time) TicketEventDto {
	return TicketEventDto{
		Type:       kind,
		EventID:    ticket.EventID,
		TicketID:   ticket.ID,
		Code:       ticket.Code,
		FinalPrice: ticket.FinalPrice,
		OccurredAt: at,
	}
}

func NewQuotaResizedDto(event *Event, at time.Time) TicketEventDto {
	return TicketEventDto{
		Type:       QuotaResized,
		EventID:    event.ID,
		Quota:      event.TicketQuota,
		Stock:      event.TicketStock,
		OccurredAt: at,
	}
}
