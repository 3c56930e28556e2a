package store

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Migrate creates missing tables. Existing tables are left untouched.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range tables {
			if _, err := tx.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("create table %T: %w", model, err)
			}
		}

		indexes := []struct {
			model  any
			name   string
			column string
		}{
			{(*historyModel)(nil), "idx_customer_history_customer", "customer_id"},
			{(*decisionTraceModel)(nil), "idx_decision_traces_run", "run_id"},
			{(*refillAlertModel)(nil), "idx_refill_alerts_customer", "customer_id"},
			{(*prescriptionModel)(nil), "idx_prescriptions_customer", "customer_id"},
		}
		for _, idx := range indexes {
			if _, err := tx.NewCreateIndex().
				Model(idx.model).
				Index(idx.name).
				Column(idx.column).
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("create index %s: %w", idx.name, err)
			}
		}
		return nil
	})
}
