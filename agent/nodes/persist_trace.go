package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	statex "github.com/tanpawarit/agentic-pharmacy/agent/state"
)

var (
	traceWithoutExecution = []contractx.AgentName{
		contractx.AgentMemory,
		contractx.AgentConversation,
		contractx.AgentSafety,
		contractx.AgentPredictive,
	}
	traceWithExecution = []contractx.AgentName{
		contractx.AgentMemory,
		contractx.AgentConversation,
		contractx.AgentSafety,
		contractx.AgentAction,
		contractx.AgentPredictive,
	}
)

// ValidateTrace checks the trace shape against whether execution ran.
func ValidateTrace(record *statex.Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", contractx.ErrTraceInvariant)
	}

	want := traceWithoutExecution
	if record.Executed() {
		want = traceWithExecution
	}
	if record.Safety().Approved != record.Executed() {
		return fmt.Errorf("%w: approved=%t executed=%t",
			contractx.ErrTraceInvariant, record.Safety().Approved, record.Executed())
	}

	trace := record.Trace()
	if len(trace) != len(want) {
		return fmt.Errorf("%w: trace length %d, want %d", contractx.ErrTraceInvariant, len(trace), len(want))
	}
	for i, entry := range trace {
		if entry.Agent != string(want[i]) {
			return fmt.Errorf("%w: trace[%d] agent=%s, want %s", contractx.ErrTraceInvariant, i, entry.Agent, want[i])
		}
	}
	return nil
}

// PersistTrace validates the trace and writes it as audit rows under the run id.
func PersistTrace(
	ctx context.Context,
	in *GraphState,
	audit contractx.AuditWriter,
) (GraphOutput, error) {
	if err := requireRecord(in); err != nil {
		return GraphOutput{}, err
	}
	if err := ValidateTrace(in.Record); err != nil {
		return GraphOutput{}, err
	}

	if err := audit.AppendAuditRows(ctx, in.RunID, in.Record.Trace(), in.Now); err != nil {
		return GraphOutput{}, fmt.Errorf("persist trace: %w", err)
	}
	return GraphOutput{Record: in.Record}, nil
}
