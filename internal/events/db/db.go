package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"event-ticketing/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	return &event, nil
}

func (d *DB) ListEvents(ctx context.Context) ([]models.EventSummary, error) {
	events := []models.EventSummary{}
	err := d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Column("id", "name", "description", "start_date", "end_date").
		Order("start_date ASC").
		Scan(ctx, &events)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	if _, err := d.Bun.NewInsert().Model(event).Exec(ctx); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// UpdateEventDetails replaces the descriptive fields only; quota and stock are untouched.
func (d *DB) UpdateEventDetails(ctx context.Context, id string, details models.EventDetails, now time.Time) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("name = ?", details.Name).
		Set("description = ?", details.Description).
		Set("start_date = ?", details.StartDate).
		Set("end_date = ?", details.EndDate).
		Set("location = ?", details.Location).
		Set("ticket_base_price = ?", details.TicketBasePrice).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update event %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrEventNotFound
	}
	return nil
}

// DeleteEvent removes the event together with its tickets.
func (d *DB) DeleteEvent(ctx context.Context, id string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*models.Event)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete event %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return models.ErrEventNotFound
		}

		_, err = tx.NewDelete().
			Model((*models.Ticket)(nil)).
			Where("event_id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete tickets of event %s: %w", id, err)
		}
		return nil
	})
}

// DecrementStockIfAvailable takes one unit in a single conditional update.
// It reports false when the event is missing or sold out.
func (d *DB) DecrementStockIfAvailable(ctx context.Context, id string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("ticket_stock = ticket_stock - 1").
		Where("id = ?", id).
		Where("ticket_stock > 0").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("decrement stock of %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement stock of %s: %w", id, err)
	}
	return n == 1, nil
}

func (d *DB) IncrementStock(ctx context.Context, id string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("ticket_stock = ticket_stock + 1").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("increment stock of %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("increment stock of %s: %w", id, err)
	}
	return n == 1, nil
}

// ApplyQuota sets the new quota, shifts stock by delta and replaces the details in one
// statement. It matches nothing when the quota moved away from expected or when the
// stock would drop below zero.
func (d *DB) ApplyQuota(ctx context.Context, id string, expected, quota int, details models.EventDetails, now time.Time) (bool, error) {
	delta := quota - expected
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("ticket_quota = ?", quota).
		Set("ticket_stock = ticket_stock + ?", delta).
		Set("name = ?", details.Name).
		Set("description = ?", details.Description).
		Set("start_date = ?", details.StartDate).
		Set("end_date = ?", details.EndDate).
		Set("location = ?", details.Location).
		Set("ticket_base_price = ?", details.TicketBasePrice).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("ticket_quota = ?", expected).
		Where("ticket_stock + ? >= 0", delta).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("apply quota to %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("apply quota to %s: %w", id, err)
	}
	return n == 1, nil
}

// RecomputeStock rewrites stock as quota minus the live ticket count of the event
// in one statement, provided stock still equals observed. It reports false when
// the event does not exist or its stock moved since it was read.
func (d *DB) RecomputeStock(ctx context.Context, id string, observed int) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("ticket_stock = ticket_quota - (SELECT COUNT(*) FROM tickets WHERE tickets.event_id = ?)", id).
		Where("id = ?", id).
		Where("ticket_stock = ?", observed).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("recompute stock of %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("recompute stock of %s: %w", id, err)
	}
	return n == 1, nil
}

func (d *DB) ListEventIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Column("id").
		Order("id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("list event ids: %w", err)
	}
	return ids, nil
}

func (d *DB) DeleteAll(ctx context.Context) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("1 = 1").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete all events: %w", err)
	}
	return nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.Bun.PingContext(ctx)
}
