package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Event is a sellable occurrence. TicketStock is only ever changed through conditional
// updates issued by the stock ledger.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID              string    `bun:"id,pk" json:"id"`
	Name            string    `bun:"name,notnull" json:"name"`
	Description     string    `bun:"description,notnull" json:"description"`
	StartDate       time.Time `bun:"start_date,notnull" json:"start_date"`
	EndDate         time.Time `bun:"end_date,notnull" json:"end_date"`
	Location        string    `bun:"location,notnull" json:"location"`
	TicketBasePrice float64   `bun:"ticket_base_price,notnull" json:"ticket_base_price"`
	TicketQuota     int       `bun:"ticket_quota,notnull" json:"ticket_quota"`
	TicketStock     int       `bun:"ticket_stock,notnull" json:"ticket_stock"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// EventDetails are the descriptive fields an update may replace.
type EventDetails struct {
	Name            string
	Description     string
	StartDate       time.Time
	EndDate         time.Time
	Location        string
	TicketBasePrice float64
}

// Sold counts the units taken from stock. Reservations whose ticket is not
// stored yet are included.
func (e *Event) Sold() int {
	return e.TicketQuota - e.TicketStock
}

// EventSummary is the list projection of an event.
type EventSummary struct {
	ID          string    `bun:"id" json:"id"`
	Name        string    `bun:"name" json:"name"`
	Description string    `bun:"description" json:"description"`
	StartDate   time.Time `bun:"start_date" json:"start_date"`
	EndDate     time.Time `bun:"end_date" json:"end_date"`
}

// EventInsights summarizes sales and attendance for one event.
type EventInsights struct {
	TotalRevenue    float64 `bun:"total_revenue" json:"total_revenue"`
	TotalAttendees  int     `bun:"total_attendees" json:"total_attendees"`
	TicketSoldCount int     `bun:"ticket_sold_count" json:"ticket_sold_count"`
}
