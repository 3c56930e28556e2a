package store

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
)

const orderStatusCreated = "created"

type orderTx struct {
	tx bun.Tx
}

// LockMedicine resolves name and holds an exclusive row lock until the
// transaction ends. On SQLite the single connection already serialises writers.
func (t *orderTx) LockMedicine(ctx context.Context, name string) (*contractx.Medicine, error) {
	return findMedicine(ctx, t.tx, name, true)
}

func (t *orderTx) DecrementStock(ctx context.Context, medicineID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be > 0", contractx.ErrValidation)
	}

	res, err := t.tx.NewUpdate().
		Model((*medicineModel)(nil)).
		Set("stock_quantity = stock_quantity - ?", quantity).
		Where("id = ?", medicineID).
		Where("stock_quantity >= ?", quantity).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("decrement stock %d: %w", medicineID, mapLockError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement stock %d: %w", medicineID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: medicine id=%d requested %d", contractx.ErrInsufficientStock, medicineID, quantity)
	}
	return nil
}

func (t *orderTx) CreateOrder(ctx context.Context, customerID int64, lines []contractx.OrderLine, now time.Time) (*contractx.Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: order has no lines", contractx.ErrValidation)
	}

	order := orderModel{
		CustomerID: customerID,
		Status:     orderStatusCreated,
		CreatedAt:  now.UTC(),
	}
	if _, err := t.tx.NewInsert().Model(&order).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	items := make([]orderItemModel, 0, len(lines))
	for _, l := range lines {
		items = append(items, orderItemModel{
			OrderID:    order.ID,
			MedicineID: l.MedicineID,
			Quantity:   l.Quantity,
			Dosage:     l.Dosage,
		})
	}
	if _, err := t.tx.NewInsert().Model(&items).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert order items: %w", err)
	}

	out := make([]contractx.OrderLine, len(lines))
	copy(out, lines)
	return &contractx.Order{
		ID:         order.ID,
		CustomerID: customerID,
		Status:     order.Status,
		Lines:      out,
		CreatedAt:  order.CreatedAt,
	}, nil
}

func (t *orderTx) AppendHistory(ctx context.Context, rows []contractx.HistoryRow) error {
	if len(rows) == 0 {
		return nil
	}

	models := make([]historyModel, 0, len(rows))
	for _, r := range rows {
		models = append(models, historyModel{
			CustomerID:   r.CustomerID,
			MedicineID:   r.MedicineID,
			MedicineName: r.MedicineName,
			Quantity:     r.Quantity,
			Dosage:       r.Dosage,
			CreatedAt:    r.CreatedAt.UTC(),
		})
	}
	if _, err := t.tx.NewInsert().Model(&models).Exec(ctx); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}
