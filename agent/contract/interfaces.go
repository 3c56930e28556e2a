package contract

import (
	"context"
	"time"

	statex "github.com/tanpawarit/agentic-pharmacy/agent/state"
)

// Extractor turns a free-text message into intent and requested items.
// Implementations never fail; degraded results carry low confidence.
type Extractor interface {
	Extract(ctx context.Context, message string) statex.Extraction
}

// Completer is the narrow model backend used by the model-based extractor.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, userMessage string) (string, error)
}

// Inventory is the read-only lookup used by the safety gate.
type Inventory interface {
	FindMedicine(ctx context.Context, name string) (*Medicine, error)
	HasValidPrescription(ctx context.Context, customerID, medicineID int64, now time.Time) (bool, error)
}

type HistoryReader interface {
	RecentHistory(ctx context.Context, customerID int64, limit int) ([]HistoryRow, error)
}

// OrderTx is the transactional surface of the execution stage.
// All calls share one transaction; returning an error from RunInTx rolls it back.
type OrderTx interface {
	LockMedicine(ctx context.Context, name string) (*Medicine, error)
	DecrementStock(ctx context.Context, medicineID int64, quantity int) error
	CreateOrder(ctx context.Context, customerID int64, lines []OrderLine, now time.Time) (*Order, error)
	AppendHistory(ctx context.Context, rows []HistoryRow) error
}

type AuditWriter interface {
	AppendAuditRows(ctx context.Context, runID string, entries []statex.TraceEntry, now time.Time) error
}

// Store is the persistence contract used by the orchestrator.
type Store interface {
	Inventory
	HistoryReader
	AuditWriter

	GetCustomer(ctx context.Context, customerID int64) (*Customer, error)
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx OrderTx) error) error
}

// RefillStore is used by the autonomous refill scan.
type RefillStore interface {
	HistoryReader

	ListCustomerIDs(ctx context.Context) ([]int64, error)
	HasPendingRefillAlert(ctx context.Context, customerID int64, medicineName string) (bool, error)
	InsertRefillAlerts(ctx context.Context, alerts []RefillAlertRow) error
}

// Notifier publishes refill alerts to an external channel.
type Notifier interface {
	NotifyRefillAlerts(ctx context.Context, alerts []RefillAlertRow) error
}
