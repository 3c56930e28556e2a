package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	"github.com/tanpawarit/agentic-pharmacy/agent/policy"
	statex "github.com/tanpawarit/agentic-pharmacy/agent/state"
)

// Execute commits the approved order in one transaction. Per-request failures
// (missing medicine, stock exhausted since the gate ran, lock timeout) roll
// back and are reported on the record; any other store error aborts the run.
func Execute(
	ctx context.Context,
	in *GraphState,
	store contractx.Store,
) (*GraphState, error) {
	if err := requireRecord(in); err != nil {
		return nil, err
	}
	if in.Gate() != policy.Approved {
		return nil, fmt.Errorf("%w: execution reached without approval", contractx.ErrTraceInvariant)
	}

	items := in.Record.Extraction().Medicines
	var order *contractx.Order
	err := store.RunInTx(ctx, func(ctx context.Context, tx contractx.OrderTx) error {
		lines := make([]contractx.OrderLine, 0, len(items))
		history := make([]contractx.HistoryRow, 0, len(items))

		for _, item := range items {
			med, err := tx.LockMedicine(ctx, item.Name)
			if err != nil {
				return err
			}
			if med.StockQuantity < item.Quantity {
				return fmt.Errorf("%w: %s requested %d, available %d",
					contractx.ErrInsufficientStock, med.Name, item.Quantity, med.StockQuantity)
			}
			if err := tx.DecrementStock(ctx, med.ID, item.Quantity); err != nil {
				return err
			}

			lines = append(lines, contractx.OrderLine{
				MedicineID:   med.ID,
				MedicineName: med.Name,
				Quantity:     item.Quantity,
				Dosage:       item.Dosage,
			})
			history = append(history, contractx.HistoryRow{
				CustomerID:   in.CustomerID,
				MedicineID:   med.ID,
				MedicineName: med.Name,
				Quantity:     item.Quantity,
				Dosage:       item.Dosage,
				CreatedAt:    in.Now,
			})
		}

		created, err := tx.CreateOrder(ctx, in.CustomerID, lines, in.Now)
		if err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, history); err != nil {
			return err
		}
		order = created
		return nil
	})

	var (
		execution statex.Execution
		decision  string
		output    any
	)
	switch {
	case err == nil:
		orderID := order.ID
		execution = statex.Execution{
			OrderID: &orderID,
			Actions: []string{
				statex.ActionInventoryUpdated,
				statex.ActionOrderCreated,
				statex.ActionHistoryRecorded,
			},
		}
		decision = statex.ActionOrderCreated
		output = map[string]any{"order_id": orderID, "lines": order.Lines}
	case contractx.IsExecutionFailure(err):
		execution = statex.Execution{
			Actions:       []string{statex.ActionExecutionFailed},
			FailureReason: err.Error(),
		}
		decision = statex.ActionExecutionFailed
		output = map[string]any{"order_id": nil, "failure_reason": err.Error()}
		log.Warn().
			Err(err).
			Str("run_id", in.RunID).
			Str("agent", string(contractx.AgentAction)).
			Msg("execution rolled back")
	default:
		return nil, fmt.Errorf("execution: %w", err)
	}

	if err := in.Record.SetExecution(execution); err != nil {
		return nil, err
	}
	if err := in.Record.AppendTrace(statex.TraceEntry{
		Agent:     string(contractx.AgentAction),
		Input:     items,
		Reasoning: "safety approved; stock re-checked under row lock",
		Decision:  decision,
		Output:    output,
	}); err != nil {
		return nil, err
	}
	return in, nil
}
