package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"event-ticketing/internal/database"
	"event-ticketing/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// CreateTicket inserts the ticket. A clash on the code column is reported as
// models.ErrDuplicateCode so the issuer can retry with a fresh code.
func (d *DB) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	_, err := d.Bun.NewInsert().Model(ticket).Exec(ctx)
	if database.IsUniqueViolation(err) {
		return models.ErrDuplicateCode
	}
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

func (d *DB) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket %s: %w", id, err)
	}
	return &ticket, nil
}

// ListTickets returns tickets newest first, restricted to one event when eventID is set.
func (d *DB) ListTickets(ctx context.Context, eventID string) ([]models.Ticket, error) {
	tickets := []models.Ticket{}
	q := d.Bun.NewSelect().Model(&tickets)
	if eventID != "" {
		q = q.Where("event_id = ?", eventID)
	}
	if err := q.Order("created_at DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

// MarkUsed flips an unused ticket to used. It reports false when the ticket
// is missing or already used.
func (d *DB) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("status = ?", models.TicketUsed).
		Set("used_at = ?", at).
		Where("id = ?", id).
		Where("status = ?", models.TicketUnused).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("mark ticket %s used: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark ticket %s used: %w", id, err)
	}
	return n == 1, nil
}

func (d *DB) DeleteTicket(ctx context.Context, id string) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Ticket)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete ticket %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrTicketNotFound
	}
	return nil
}

func (d *DB) CountByEvent(ctx context.Context, eventID string) (int, error) {
	count, err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("event_id = ?", eventID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count tickets of %s: %w", eventID, err)
	}
	return count, nil
}

// Insights aggregates revenue, attendance and sales for one event. An event
// without tickets yields zero values.
func (d *DB) Insights(ctx context.Context, eventID string) (*models.EventInsights, error) {
	var insights models.EventInsights
	err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		ColumnExpr("COALESCE(SUM(final_price), 0) AS total_revenue").
		ColumnExpr("COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS total_attendees", models.TicketUsed).
		ColumnExpr("COUNT(*) AS ticket_sold_count").
		Where("event_id = ?", eventID).
		Scan(ctx, &insights)
	if err != nil {
		return nil, fmt.Errorf("ticket insights of %s: %w", eventID, err)
	}
	return &insights, nil
}

func (d *DB) DeleteAll(ctx context.Context) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Ticket)(nil)).
		Where("1 = 1").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete all tickets: %w", err)
	}
	return nil
}
