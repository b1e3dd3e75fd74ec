package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-ticketing/internal/clock"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"
)

// EventStore is the slice of the event adapter the ledger mutates through.
// Every method is a single conditional statement against the store.
type EventStore interface {
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	DecrementStockIfAvailable(ctx context.Context, id string) (bool, error)
	IncrementStock(ctx context.Context, id string) (bool, error)
	ApplyQuota(ctx context.Context, id string, expected, quota int, details models.EventDetails, now time.Time) (bool, error)
	RecomputeStock(ctx context.Context, id string, observed int) (bool, error)
	ListEventIDs(ctx context.Context) ([]string, error)
}

type TicketCounter interface {
	CountByEvent(ctx context.Context, eventID string) (int, error)
}

// Ledger owns the ticket_stock counter of every event. It holds no locks;
// concurrent callers are serialized by the store per event row.
type Ledger struct {
	events  EventStore
	tickets TicketCounter
	clock   clock.Clock
	log     *logger.Logger
}

func NewLedger(events EventStore, tickets TicketCounter, clk clock.Clock, log *logger.Logger) *Ledger {
	return &Ledger{events: events, tickets: tickets, clock: clk, log: log}
}

// ReserveUnit takes one unit of stock. It reports false when nothing is left.
func (l *Ledger) ReserveUnit(ctx context.Context, eventID string) (bool, error) {
	ok, err := l.events.DecrementStockIfAvailable(ctx, eventID)
	if err != nil {
		return false, err
	}
	if ok {
		l.log.LogStock("RESERVE", eventID, "reserved one unit")
	}
	return ok, nil
}

// ReleaseUnit gives one unit back. A missing event is logged and ignored.
func (l *Ledger) ReleaseUnit(ctx context.Context, eventID string) error {
	ok, err := l.events.IncrementStock(ctx, eventID)
	if err != nil {
		return err
	}
	if !ok {
		l.log.Warn("STOCK", fmt.Sprintf("release for missing event %s ignored", eventID))
		return nil
	}
	l.log.LogStock("RELEASE", eventID, "released one unit")
	return nil
}

// AdjustQuota sets a new quota and shifts stock by the same delta, replacing the
// descriptive fields with details when given. The sold count is read before the
// write; the write itself only lands if the quota is still the one read and the
// stock stays non-negative.
func (l *Ledger) AdjustQuota(ctx context.Context, eventID string, newQuota int, details *models.EventDetails) (*models.Event, error) {
	event, err := l.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	sold, err := l.tickets.CountByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if newQuota < sold {
		return nil, models.ErrInvalidQuota
	}

	d := models.EventDetails{
		Name:            event.Name,
		Description:     event.Description,
		StartDate:       event.StartDate,
		EndDate:         event.EndDate,
		Location:        event.Location,
		TicketBasePrice: event.TicketBasePrice,
	}
	if details != nil {
		d = *details
	}

	ok, err := l.events.ApplyQuota(ctx, eventID, event.TicketQuota, newQuota, d, l.clock.Now())
	if err != nil {
		return nil, err
	}

	updated, err := l.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if updated.TicketQuota != event.TicketQuota {
			return nil, models.ErrQuotaConflict
		}
		return nil, models.ErrInvalidQuota
	}

	l.log.LogStock("RESIZE", eventID, fmt.Sprintf("quota %d -> %d, stock now %d", event.TicketQuota, newQuota, updated.TicketStock))
	return updated, nil
}

// DefaultSettle is how long a drift must hold still before it is reclaimed.
// It has to exceed the longest issuance, from reserving a unit to storing its ticket.
const DefaultSettle = time.Minute

// Report describes the stock drift of one event. Drift is stock - (quota - sold);
// a negative drift means units were leaked. Skipped says why a drift was left alone.
type Report struct {
	EventID string `json:"event_id"`
	Quota   int    `json:"ticket_quota"`
	Stock   int    `json:"ticket_stock"`
	Sold    int    `json:"sold"`
	Drift   int    `json:"drift"`
	Fixed   bool   `json:"fixed"`
	Skipped string `json:"skipped,omitempty"`
}

func (r Report) sameAs(o Report) bool {
	return r.Quota == o.Quota && r.Stock == o.Stock && r.Sold == o.Sold
}

// Reconciler repairs stock units leaked by failed issuances or by deletions
// interrupted between the delete and the release.
//
// An issuance in flight looks exactly like a leak: its unit is reserved but its
// ticket is not stored yet. A drift is therefore observed twice, settle apart,
// and rewritten only if nothing moved in between and stock still holds the
// observed value at write time.
type Reconciler struct {
	events  EventStore
	tickets TicketCounter
	settle  time.Duration
	wait    func(ctx context.Context, d time.Duration) error
	log     *logger.Logger
}

func NewReconciler(events EventStore, tickets TicketCounter, settle time.Duration, log *logger.Logger) *Reconciler {
	return &Reconciler{events: events, tickets: tickets, settle: settle, wait: sleep, log: log}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Reconciler) observe(ctx context.Context, eventID string) (*Report, error) {
	event, err := r.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	sold, err := r.tickets.CountByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &Report{
		EventID: eventID,
		Quota:   event.TicketQuota,
		Stock:   event.TicketStock,
		Sold:    sold,
		Drift:   sold - event.Sold(),
	}, nil
}

// Reconcile measures the drift of one event and, unless dryRun, rewrites its stock
// from the live ticket count once the drift has held for the settle period.
func (r *Reconciler) Reconcile(ctx context.Context, eventID string, dryRun bool) (*Report, error) {
	first, err := r.observe(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if first.Drift == 0 || dryRun {
		return first, nil
	}

	if err := r.wait(ctx, r.settle); err != nil {
		return nil, err
	}
	report, err := r.observe(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if report.Drift == 0 {
		return report, nil
	}
	if !report.sameAs(*first) {
		report.Skipped = "stock or tickets changed while settling"
		r.log.LogStock("RECONCILE", eventID, report.Skipped)
		return report, nil
	}

	ok, err := r.events.RecomputeStock(ctx, eventID, report.Stock)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, err := r.events.GetEventByID(ctx, eventID); err != nil {
			return nil, err
		}
		report.Skipped = "stock changed before the write"
		r.log.LogStock("RECONCILE", eventID, report.Skipped)
		return report, nil
	}
	report.Fixed = true
	r.log.LogStock("RECONCILE", eventID, fmt.Sprintf("corrected drift of %d", report.Drift))
	return report, nil
}

// ReconcileAll runs Reconcile over every event. Events deleted mid-run are skipped.
func (r *Reconciler) ReconcileAll(ctx context.Context, dryRun bool) ([]Report, error) {
	ids, err := r.events.ListEventIDs(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(ids))
	for _, id := range ids {
		report, err := r.Reconcile(ctx, id, dryRun)
		if errors.Is(err, models.ErrEventNotFound) {
			continue
		}
		if err != nil {
			return reports, fmt.Errorf("reconcile %s: %w", id, err)
		}
		reports = append(reports, *report)
	}
	return reports, nil
}
