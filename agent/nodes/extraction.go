package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	statex "github.com/tanpawarit/agentic-pharmacy/agent/state"
)

// Extraction never fails on extractor output; degraded results are recorded as-is.
func Extraction(
	ctx context.Context,
	in *GraphState,
	extractor contractx.Extractor,
) (*GraphState, error) {
	if err := requireRecord(in); err != nil {
		return nil, err
	}

	message := in.Record.Conversation().Message
	out := extractor.Extract(ctx, message)
	if err := in.Record.SetExtraction(out); err != nil {
		return nil, err
	}

	// read back so defaults applied by the record are traced
	stored := in.Record.Extraction()
	if err := in.Record.AppendTrace(statex.TraceEntry{
		Agent: string(contractx.AgentConversation),
		Input: message,
		Reasoning: map[string]any{
			"source":     stored.Source,
			"confidence": stored.Confidence,
			"summary":    fmt.Sprintf("extracted %d medicine(s)", len(stored.Medicines)),
		},
		Decision: string(stored.Intent),
		Output:   stored,
	}); err != nil {
		return nil, err
	}

	log.Debug().
		Str("run_id", in.RunID).
		Str("agent", string(contractx.AgentConversation)).
		Str("intent", string(stored.Intent)).
		Str("source", stored.Source).
		Int("medicines", len(stored.Medicines)).
		Msg("message extracted")
	return in, nil
}
