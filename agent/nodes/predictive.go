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
	DecisionRefillAlerts  = "refill_alerts_generated"
	DecisionNoRefillAlert = "no_refill_needed"
)

// Predictive estimates remaining supply per medicine from purchase history.
// It runs on every path and only writes meta.refill_alerts.
func Predictive(
	ctx context.Context,
	in *GraphState,
	history contractx.HistoryReader,
	cfg policy.Config,
) (*GraphState, error) {
	if err := requireRecord(in); err != nil {
		return nil, err
	}
	cfg = cfg.Normalize()

	rows, err := history.RecentHistory(ctx, in.CustomerID, cfg.ScanLimit)
	if err != nil {
		return nil, fmt.Errorf("predictive: %w", err)
	}

	alerts := policy.RefillAlerts(rows, in.Now, cfg)
	if err := in.Record.SetRefillAlerts(alerts); err != nil {
		return nil, err
	}

	decision := DecisionNoRefillAlert
	if len(alerts) > 0 {
		decision = DecisionRefillAlerts
	}
	if err := in.Record.AppendTrace(statex.TraceEntry{
		Agent: string(contractx.AgentPredictive),
		Input: map[string]any{"customer_id": in.CustomerID, "history_rows": len(rows)},
		Reasoning: fmt.Sprintf("%d day(s) per unit, alert at <= %d day(s) remaining",
			cfg.DaysPerUnit, cfg.RefillThresholdDays),
		Decision: decision,
		Output:   alerts,
	}); err != nil {
		return nil, err
	}

	log.Debug().
		Str("run_id", in.RunID).
		Str("agent", string(contractx.AgentPredictive)).
		Int("alerts", len(alerts)).
		Msg("refill prediction done")
	return in, nil
}
