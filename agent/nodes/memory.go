package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	"github.com/tanpawarit/agentic-pharmacy/agent/policy"
	statex "github.com/tanpawarit/agentic-pharmacy/agent/state"
)

const (
	DecisionHistoryLoaded = "history_loaded"
	DecisionNoHistory     = "no_history"
)

// Memory attaches the customer's most recent orders to meta.customer_history.
func Memory(
	ctx context.Context,
	in *GraphState,
	history contractx.HistoryReader,
	cfg policy.Config,
) (*GraphState, error) {
	if err := requireRecord(in); err != nil {
		return nil, err
	}
	cfg = cfg.Normalize()

	rows, err := history.RecentHistory(ctx, in.CustomerID, cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}

	items := make([]statex.HistoryItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, statex.HistoryItem{
			Medicine: row.MedicineName,
			Quantity: row.Quantity,
			Date:     row.CreatedAt,
		})
	}
	if err := in.Record.SetCustomerHistory(items); err != nil {
		return nil, err
	}

	decision := DecisionHistoryLoaded
	if len(items) == 0 {
		decision = DecisionNoHistory
	}
	if err := in.Record.AppendTrace(statex.TraceEntry{
		Agent:     string(contractx.AgentMemory),
		Input:     map[string]any{"customer_id": in.CustomerID, "limit": cfg.HistoryLimit},
		Reasoning: fmt.Sprintf("loaded %d recent order(s)", len(items)),
		Decision:  decision,
		Output:    items,
	}); err != nil {
		return nil, err
	}

	log.Debug().
		Str("run_id", in.RunID).
		Str("agent", string(contractx.AgentMemory)).
		Int("history", len(items)).
		Msg("memory loaded")
	return in, nil
}
