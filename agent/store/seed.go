package store

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
)

// SeedData is the fixture set loaded by Seed.
type SeedData struct {
	Customers     []contractx.Customer
	Medicines     []contractx.Medicine
	Prescriptions []SeedPrescription
}

// SeedPrescription references customer and medicine by name so fixtures do
// not depend on generated ids.
type SeedPrescription struct {
	CustomerName string
	MedicineName string
	ValidFor     time.Duration
}

func DefaultSeedData() SeedData {
	return SeedData{
		Customers: []contractx.Customer{
			{Name: "John Doe", Phone: "9999999999", Email: "john@example.com"},
			{Name: "Demo User", Phone: "0000000000", Email: "demo@example.com"},
		},
		Medicines: []contractx.Medicine{
			{Name: "Paracetamol 500mg", GenericName: "Paracetamol", UnitType: "tablet", StockQuantity: 100, ReorderLevel: 50},
			{Name: "Ibuprofen 200mg", GenericName: "Ibuprofen", UnitType: "tablet", StockQuantity: 80, ReorderLevel: 20},
			{Name: "Amoxicillin 500mg", GenericName: "Amoxicillin", UnitType: "capsule", StockQuantity: 50, PrescriptionRequired: true, ReorderLevel: 20},
			{Name: "Amlodipine 5mg", GenericName: "Amlodipine", UnitType: "tablet", StockQuantity: 120, PrescriptionRequired: true, ReorderLevel: 30},
			{Name: "Metformin 500mg", GenericName: "Metformin", UnitType: "tablet", StockQuantity: 60, PrescriptionRequired: true, ReorderLevel: 20},
			{Name: "Lisinopril 10mg", GenericName: "Lisinopril", UnitType: "tablet", StockQuantity: 40, PrescriptionRequired: true, ReorderLevel: 10},
			{Name: "Omeprazole 20mg", GenericName: "Omeprazole", UnitType: "capsule", StockQuantity: 30, PrescriptionRequired: true, ReorderLevel: 10},
			{Name: "Vitamin C 500mg", GenericName: "Ascorbic acid", UnitType: "tablet", StockQuantity: 150, ReorderLevel: 30},
			{Name: "Aspirin 81mg", GenericName: "Acetylsalicylic acid", UnitType: "tablet", StockQuantity: 4, ReorderLevel: 20},
			{Name: "Cetirizine 10mg", GenericName: "Cetirizine", UnitType: "tablet", StockQuantity: 9, ReorderLevel: 10},
			{Name: "Ciprofloxacin 500mg", GenericName: "Ciprofloxacin", UnitType: "tablet", StockQuantity: 25, PrescriptionRequired: true, ReorderLevel: 10},
		},
		Prescriptions: []SeedPrescription{
			{CustomerName: "John Doe", MedicineName: "Amoxicillin 500mg", ValidFor: 30 * 24 * time.Hour},
			{CustomerName: "John Doe", MedicineName: "Metformin 500mg", ValidFor: 180 * 24 * time.Hour},
			{CustomerName: "Demo User", MedicineName: "Lisinopril 10mg", ValidFor: -24 * time.Hour},
		},
	}
}

// Seed inserts data into empty tables only; it is safe to run repeatedly.
func (s *Store) Seed(ctx context.Context, data SeedData, now time.Time) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		customerIDs, err := seedCustomers(ctx, tx, data.Customers, now)
		if err != nil {
			return err
		}
		medicineIDs, err := seedMedicines(ctx, tx, data.Medicines)
		if err != nil {
			return err
		}
		if customerIDs == nil || medicineIDs == nil {
			return nil
		}

		rows := make([]prescriptionModel, 0, len(data.Prescriptions))
		for _, p := range data.Prescriptions {
			cid, ok := customerIDs[p.CustomerName]
			if !ok {
				return fmt.Errorf("%w: seed prescription references unknown customer %q", contractx.ErrValidation, p.CustomerName)
			}
			mid, ok := medicineIDs[p.MedicineName]
			if !ok {
				return fmt.Errorf("%w: seed prescription references unknown medicine %q", contractx.ErrValidation, p.MedicineName)
			}
			rows = append(rows, prescriptionModel{
				CustomerID: cid,
				MedicineID: mid,
				ValidUntil: now.Add(p.ValidFor).UTC(),
			})
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("seed prescriptions: %w", err)
		}
		return nil
	})
}

// seedCustomers returns nil ids when the table was already populated.
func seedCustomers(ctx context.Context, tx bun.Tx, customers []contractx.Customer, now time.Time) (map[string]int64, error) {
	count, err := tx.NewSelect().Model((*customerModel)(nil)).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}
	if count > 0 || len(customers) == 0 {
		return nil, nil
	}

	rows := make([]customerModel, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, customerModel{Name: c.Name, Phone: c.Phone, Email: c.Email, CreatedAt: now.UTC()})
	}
	if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return nil, fmt.Errorf("seed customers: %w", err)
	}

	ids := make(map[string]int64, len(rows))
	for _, r := range rows {
		ids[r.Name] = r.ID
	}
	return ids, nil
}

func seedMedicines(ctx context.Context, tx bun.Tx, medicines []contractx.Medicine) (map[string]int64, error) {
	count, err := tx.NewSelect().Model((*medicineModel)(nil)).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count medicines: %w", err)
	}
	if count > 0 || len(medicines) == 0 {
		return nil, nil
	}

	rows := make([]medicineModel, 0, len(medicines))
	for _, m := range medicines {
		rows = append(rows, medicineModel{
			Name:                 m.Name,
			GenericName:          m.GenericName,
			UnitType:             m.UnitType,
			StockQuantity:        m.StockQuantity,
			PrescriptionRequired: m.PrescriptionRequired,
			ReorderLevel:         m.ReorderLevel,
		})
	}
	if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return nil, fmt.Errorf("seed medicines: %w", err)
	}

	ids := make(map[string]int64, len(rows))
	for _, r := range rows {
		ids[r.Name] = r.ID
	}
	return ids, nil
}
