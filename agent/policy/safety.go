package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	statex "github.com/tanpawarit/agentic-pharmacy/agent/state"
)

// Decision is the tagged outcome of the safety gate.
type Decision int

const (
	Rejected Decision = iota
	Approved
)

func (d Decision) String() string {
	if d == Approved {
		return "APPROVED"
	}
	return "REJECTED"
}

const (
	ReasonApproved    = "All safety and compliance checks passed"
	ReasonRejected    = "Request blocked by safety rules"
	ReasonNoMedicines = "no medicines requested"

	ErrorTypeValidation = "VALIDATION"
	ErrorTypeSafety     = "SAFETY"
)

type Verdict struct {
	Decision   Decision
	Reason     string
	Violations []string
	// Checks is the per-item reasoning, including skipped checks.
	Checks    []string
	ErrorType string
}

func (v Verdict) Approved() bool {
	return v.Decision == Approved
}

func (v Verdict) Safety() statex.Safety {
	violations := make([]string, len(v.Violations))
	copy(violations, v.Violations)
	return statex.Safety{
		Approved:   v.Approved(),
		Reason:     v.Reason,
		Violations: violations,
		ErrorType:  v.ErrorType,
	}
}

// EvaluateSafety runs every check for every item and accumulates violations.
// It never writes; an error means the inventory itself could not be read.
func EvaluateSafety(
	ctx context.Context,
	inventory contractx.Inventory,
	customerID int64,
	items []statex.RequestedItem,
	now time.Time,
	cfg Config,
) (Verdict, error) {
	cfg = cfg.Normalize()

	if len(items) == 0 {
		return Verdict{
			Decision:   Rejected,
			Reason:     ReasonNoMedicines,
			Violations: []string{ReasonNoMedicines},
			Checks:     []string{"extraction_present: failed"},
			ErrorType:  ErrorTypeValidation,
		}, nil
	}

	var (
		violations   []string
		checks       []string
		prescription bool
	)

	for _, item := range items {
		name := strings.TrimSpace(item.Name)

		med, err := inventory.FindMedicine(ctx, name)
		if errors.Is(err, contractx.ErrMedicineNotFound) {
			violations = append(violations, fmt.Sprintf("medicine not found: %s", name))
			checks = append(checks, fmt.Sprintf("%s: inventory_lookup failed, remaining checks skipped", name))
			continue
		}
		if err != nil {
			return Verdict{}, fmt.Errorf("safety lookup %q: %w", name, err)
		}
		checks = append(checks, fmt.Sprintf("%s: resolved to %s (id=%d)", name, med.Name, med.ID))

		if item.Quantity > cfg.MaxQtyPerOrder {
			violations = append(violations, fmt.Sprintf(
				"%s: quantity %d exceeds allowed limit of %d", med.Name, item.Quantity, cfg.MaxQtyPerOrder))
		} else {
			checks = append(checks, fmt.Sprintf("%s: quantity %d within limit", med.Name, item.Quantity))
		}

		if med.StockQuantity < item.Quantity {
			violations = append(violations, fmt.Sprintf(
				"insufficient stock for %s: requested %d, available %d", med.Name, item.Quantity, med.StockQuantity))
		} else {
			checks = append(checks, fmt.Sprintf("%s: stock %d covers %d", med.Name, med.StockQuantity, item.Quantity))
		}

		if !med.PrescriptionRequired {
			checks = append(checks, fmt.Sprintf("%s: OTC, prescription check skipped", med.Name))
			continue
		}

		ok, err := inventory.HasValidPrescription(ctx, customerID, med.ID, now)
		if err != nil {
			return Verdict{}, fmt.Errorf("safety prescription lookup %q: %w", med.Name, err)
		}
		if !ok {
			prescription = true
			violations = append(violations, fmt.Sprintf("%s requires a valid prescription", med.Name))
			continue
		}
		checks = append(checks, fmt.Sprintf("%s: active prescription found", med.Name))
	}

	if len(violations) == 0 {
		return Verdict{
			Decision:   Approved,
			Reason:     ReasonApproved,
			Violations: []string{},
			Checks:     checks,
		}, nil
	}

	errorType := ErrorTypeValidation
	if prescription {
		errorType = ErrorTypeSafety
	}
	return Verdict{
		Decision:   Rejected,
		Reason:     ReasonRejected,
		Violations: violations,
		Checks:     checks,
		ErrorType:  errorType,
	}, nil
}
