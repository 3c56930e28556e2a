package orchestratornode

import (
	"fmt"
	"time"

	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	"github.com/tanpawarit/agentic-pharmacy/agent/policy"
	statex "github.com/tanpawarit/agentic-pharmacy/agent/state"
)

type GraphInput struct {
	CustomerID int64
	Message    string
}

type GraphOutput struct {
	Record *statex.Record
}

type GraphState struct {
	RunID      string
	Now        time.Time
	CustomerID int64
	Message    string

	Record *statex.Record

	// Verdict is set by the safety node and drives the execution branch.
	Verdict policy.Verdict
}

// Gate returns the tagged safety decision. Anything but an explicit approval is a rejection.
func (s *GraphState) Gate() policy.Decision {
	if s == nil {
		return policy.Rejected
	}
	return s.Verdict.Decision
}

func ValidateRequest(in GraphInput, nowFn func() time.Time, runIDFn func() string) (*GraphState, error) {
	if in.CustomerID <= 0 {
		return nil, fmt.Errorf("%w: %d", contractx.ErrInvalidCustomer, in.CustomerID)
	}

	return &GraphState{
		RunID:      runIDFn(),
		Now:        nowFn().UTC(),
		CustomerID: in.CustomerID,
		Message:    in.Message,
	}, nil
}

func requireRecord(in *GraphState) error {
	if in == nil || in.Record == nil {
		return fmt.Errorf("%w: graph record is nil", contractx.ErrValidation)
	}
	return nil
}
