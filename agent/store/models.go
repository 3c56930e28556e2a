package store

import (
	"time"

	"github.com/uptrace/bun"
	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
)

const refillStatusPending = "pending"

type customerModel struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	Phone     string    `bun:"phone"`
	Email     string    `bun:"email"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (m customerModel) contract() contractx.Customer {
	return contractx.Customer{ID: m.ID, Name: m.Name, Phone: m.Phone, Email: m.Email}
}

type medicineModel struct {
	bun.BaseModel `bun:"table:medicines,alias:m"`

	ID                   int64  `bun:"id,pk,autoincrement"`
	Name                 string `bun:"name,notnull,unique"`
	GenericName          string `bun:"generic_name"`
	UnitType             string `bun:"unit_type"`
	StockQuantity        int    `bun:"stock_quantity,notnull"`
	PrescriptionRequired bool   `bun:"prescription_required,notnull"`
	ReorderLevel         int    `bun:"reorder_level,notnull"`
}

func (m medicineModel) contract() contractx.Medicine {
	return contractx.Medicine{
		ID:                   m.ID,
		Name:                 m.Name,
		GenericName:          m.GenericName,
		UnitType:             m.UnitType,
		StockQuantity:        m.StockQuantity,
		PrescriptionRequired: m.PrescriptionRequired,
		ReorderLevel:         m.ReorderLevel,
	}
}

type prescriptionModel struct {
	bun.BaseModel `bun:"table:prescriptions,alias:p"`

	ID         int64     `bun:"id,pk,autoincrement"`
	CustomerID int64     `bun:"customer_id,notnull"`
	MedicineID int64     `bun:"medicine_id,notnull"`
	ValidUntil time.Time `bun:"valid_until,notnull"`
}

func (m prescriptionModel) contract() contractx.Prescription {
	return contractx.Prescription{
		ID:         m.ID,
		CustomerID: m.CustomerID,
		MedicineID: m.MedicineID,
		ValidUntil: m.ValidUntil,
	}
}

type orderModel struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID         int64     `bun:"id,pk,autoincrement"`
	CustomerID int64     `bun:"customer_id,notnull"`
	Status     string    `bun:"status,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

type orderItemModel struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID         int64  `bun:"id,pk,autoincrement"`
	OrderID    int64  `bun:"order_id,notnull"`
	MedicineID int64  `bun:"medicine_id,notnull"`
	Quantity   int    `bun:"quantity,notnull"`
	Dosage     string `bun:"dosage"`
}

type historyModel struct {
	bun.BaseModel `bun:"table:customer_history,alias:h"`

	ID           int64     `bun:"id,pk,autoincrement"`
	CustomerID   int64     `bun:"customer_id,notnull"`
	MedicineID   int64     `bun:"medicine_id,notnull"`
	MedicineName string    `bun:"medicine_name,notnull"`
	Quantity     int       `bun:"quantity,notnull"`
	Dosage       string    `bun:"dosage"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

func (m historyModel) contract() contractx.HistoryRow {
	return contractx.HistoryRow{
		ID:           m.ID,
		CustomerID:   m.CustomerID,
		MedicineID:   m.MedicineID,
		MedicineName: m.MedicineName,
		Quantity:     m.Quantity,
		Dosage:       m.Dosage,
		CreatedAt:    m.CreatedAt,
	}
}

type decisionTraceModel struct {
	bun.BaseModel `bun:"table:decision_traces,alias:dt"`

	ID        int64     `bun:"id,pk,autoincrement"`
	RunID     string    `bun:"run_id,notnull"`
	AgentName string    `bun:"agent_name,notnull"`
	Input     string    `bun:"input,type:text"`
	Reasoning string    `bun:"reasoning,type:text"`
	Decision  string    `bun:"decision,notnull"`
	Output    string    `bun:"output,type:text"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (m decisionTraceModel) contract() contractx.AuditRow {
	return contractx.AuditRow{
		ID:        m.ID,
		RunID:     m.RunID,
		AgentName: m.AgentName,
		Input:     m.Input,
		Reasoning: m.Reasoning,
		Decision:  m.Decision,
		Output:    m.Output,
		CreatedAt: m.CreatedAt,
	}
}

type refillAlertModel struct {
	bun.BaseModel `bun:"table:refill_alerts,alias:ra"`

	ID            int64     `bun:"id,pk,autoincrement"`
	CustomerID    int64     `bun:"customer_id,notnull"`
	MedicineName  string    `bun:"medicine_name,notnull"`
	DaysRemaining int       `bun:"days_remaining,notnull"`
	Urgency       string    `bun:"urgency,notnull"`
	Status        string    `bun:"status,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

func (m refillAlertModel) contract() contractx.RefillAlertRow {
	return contractx.RefillAlertRow{
		ID:            m.ID,
		CustomerID:    m.CustomerID,
		MedicineName:  m.MedicineName,
		DaysRemaining: m.DaysRemaining,
		Urgency:       m.Urgency,
		Status:        m.Status,
		CreatedAt:     m.CreatedAt,
	}
}

// tables in creation order.
var tables = []any{
	(*customerModel)(nil),
	(*medicineModel)(nil),
	(*prescriptionModel)(nil),
	(*orderModel)(nil),
	(*orderItemModel)(nil),
	(*historyModel)(nil),
	(*decisionTraceModel)(nil),
	(*refillAlertModel)(nil),
}
