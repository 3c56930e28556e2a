package refill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	"github.com/tanpawarit/agentic-pharmacy/agent/policy"
)

const statusPending = "pending"

// Result summarises one scan pass.
type Result struct {
	CustomersScanned int                        `json:"customers_scanned"`
	Created          []contractx.RefillAlertRow `json:"created"`
	Skipped          int                        `json:"skipped_pending"`
	Notified         bool                       `json:"notified"`
}

// Scanner runs the autonomous refill pass over every customer. It reads
// purchase history only and never touches stock.
type Scanner struct {
	store    contractx.RefillStore
	notifier contractx.Notifier
	policy   policy.Config

	now func() time.Time
}

func NewScanner(store contractx.RefillStore, notifier contractx.Notifier, cfg policy.Config) (*Scanner, error) {
	if store == nil {
		return nil, errors.New("refill store is required")
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Scanner{
		store:    store,
		notifier: notifier,
		policy:   cfg.Normalize(),
		now:      time.Now,
	}, nil
}

// Scan inserts alerts for medicines without a pending alert and publishes
// them. A failed publish is logged; the alerts stay stored.
func (s *Scanner) Scan(ctx context.Context) (Result, error) {
	now := s.now().UTC()

	ids, err := s.store.ListCustomerIDs(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("refill scan: %w", err)
	}

	res := Result{Created: []contractx.RefillAlertRow{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		history, err := s.store.RecentHistory(ctx, id, s.policy.ScanLimit)
		if err != nil {
			return res, fmt.Errorf("refill scan customer %d: %w", id, err)
		}
		res.CustomersScanned++

		pending := make([]contractx.RefillAlertRow, 0)
		for _, alert := range policy.RefillAlerts(history, now, s.policy) {
			exists, err := s.store.HasPendingRefillAlert(ctx, id, alert.Medicine)
			if err != nil {
				return res, fmt.Errorf("refill scan customer %d: %w", id, err)
			}
			if exists {
				res.Skipped++
				continue
			}
			pending = append(pending, contractx.RefillAlertRow{
				CustomerID:    id,
				MedicineName:  alert.Medicine,
				DaysRemaining: alert.DaysRemaining,
				Urgency:       string(alert.Urgency),
				Status:        statusPending,
				CreatedAt:     now,
			})
		}
		if len(pending) == 0 {
			continue
		}

		if err := s.store.InsertRefillAlerts(ctx, pending); err != nil {
			return res, fmt.Errorf("refill scan customer %d: %w", id, err)
		}
		for _, a := range pending {
			log.Info().
				Int64("customer_id", a.CustomerID).
				Str("medicine", a.MedicineName).
				Int("days_remaining", a.DaysRemaining).
				Str("urgency", a.Urgency).
				Msg("refill alert created")
		}
		res.Created = append(res.Created, pending...)
	}

	if len(res.Created) == 0 {
		return res, nil
	}
	if err := s.notifier.NotifyRefillAlerts(ctx, res.Created); err != nil {
		log.Warn().Err(err).Int("alerts", len(res.Created)).Msg("refill notification failed")
		return res, nil
	}
	res.Notified = true
	return res, nil
}

type noopNotifier struct{}

func (noopNotifier) NotifyRefillAlerts(context.Context, []contractx.RefillAlertRow) error {
	return nil
}
