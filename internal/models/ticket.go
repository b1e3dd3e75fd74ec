package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentOnline PaymentMethod = "online"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentOnline
}

type TicketStatus string

const (
	TicketUnused TicketStatus = "unused"
	TicketUsed   TicketStatus = "used"
)

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID            string        `bun:"id,pk" json:"id"`
	EventID       string        `bun:"event_id,notnull" json:"event_id"`
	Code          string        `bun:"code,notnull,unique" json:"code"`
	PaymentMethod PaymentMethod `bun:"payment_method,notnull" json:"payment_method"`
	BasePrice     float64       `bun:"base_price,notnull" json:"base_price"`
	FinalPrice    float64       `bun:"final_price,notnull" json:"final_price"`
	Status        TicketStatus  `bun:"status,notnull" json:"status"`
	UsedAt        *time.Time    `bun:"used_at" json:"used_at"`
	CreatedAt     time.Time     `bun:"created_at,notnull" json:"created_at"`
}
