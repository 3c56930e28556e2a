package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	"github.com/tanpawarit/agentic-pharmacy/agent/policy"
	statex "github.com/tanpawarit/agentic-pharmacy/agent/state"
)

// Safety runs the gate and stores its verdict for the execution branch.
func Safety(
	ctx context.Context,
	in *GraphState,
	inventory contractx.Inventory,
	cfg policy.Config,
) (*GraphState, error) {
	if err := requireRecord(in); err != nil {
		return nil, err
	}

	items := in.Record.Extraction().Medicines
	verdict, err := policy.EvaluateSafety(ctx, inventory, in.CustomerID, items, in.Now, cfg)
	if err != nil {
		return nil, fmt.Errorf("safety: %w", err)
	}

	safety := verdict.Safety()
	if err := in.Record.SetSafety(safety); err != nil {
		return nil, err
	}
	if err := in.Record.AppendTrace(statex.TraceEntry{
		Agent:     string(contractx.AgentSafety),
		Input:     items,
		Reasoning: verdict.Checks,
		Decision:  verdict.Decision.String(),
		Output:    safety,
	}); err != nil {
		return nil, err
	}
	in.Verdict = verdict

	log.Debug().
		Str("run_id", in.RunID).
		Str("agent", string(contractx.AgentSafety)).
		Str("decision", verdict.Decision.String()).
		Strs("violations", verdict.Violations).
		Msg("safety evaluated")
	return in, nil
}
