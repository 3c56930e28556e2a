package contract

import (
	"time"
)

type AgentName string

// Pipeline stage names in execution order.
const (
	AgentMemory       AgentName = "memory_agent"
	AgentConversation AgentName = "conversation_agent"
	AgentSafety       AgentName = "safety_agent"
	AgentAction       AgentName = "action_agent"
	AgentPredictive   AgentName = "predictive_refill_agent"
)

type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type Medicine struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	GenericName          string `json:"generic_name,omitempty"`
	UnitType             string `json:"unit_type,omitempty"`
	StockQuantity        int    `json:"stock_quantity"`
	PrescriptionRequired bool   `json:"prescription_required"`
	ReorderLevel         int    `json:"reorder_level,omitempty"`
}

type Prescription struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	MedicineID int64     `json:"medicine_id"`
	ValidUntil time.Time `json:"valid_until"`
}

// Valid reports whether the prescription is active at now.
func (p Prescription) Valid(now time.Time) bool {
	return !p.ValidUntil.Before(now)
}

type OrderLine struct {
	MedicineID   int64  `json:"medicine_id"`
	MedicineName string `json:"medicine_name"`
	Quantity     int    `json:"quantity"`
	Dosage       string `json:"dosage,omitempty"`
}

type Order struct {
	ID         int64       `json:"id"`
	CustomerID int64       `json:"customer_id"`
	Status     string      `json:"status"`
	Lines      []OrderLine `json:"lines"`
	CreatedAt  time.Time   `json:"created_at"`
}

type HistoryRow struct {
	ID           int64     `json:"id"`
	CustomerID   int64     `json:"customer_id"`
	MedicineID   int64     `json:"medicine_id"`
	MedicineName string    `json:"medicine_name"`
	Quantity     int       `json:"quantity"`
	Dosage       string    `json:"dosage,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type AuditRow struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	AgentName string    `json:"agent_name"`
	Input     string    `json:"input"`
	Reasoning string    `json:"reasoning"`
	Decision  string    `json:"decision"`
	Output    string    `json:"output"`
	CreatedAt time.Time `json:"created_at"`
}

type RefillAlertRow struct {
	ID            int64     `json:"id"`
	CustomerID    int64     `json:"customer_id"`
	MedicineName  string    `json:"medicine_name"`
	DaysRemaining int       `json:"days_remaining"`
	Urgency       string    `json:"urgency"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type StockStatus string

const (
	StockCritical StockStatus = "CRITICAL"
	StockLow      StockStatus = "LOW"
)

type LowStockEntry struct {
	Medicine Medicine    `json:"medicine"`
	Status   StockStatus `json:"status"`
}
