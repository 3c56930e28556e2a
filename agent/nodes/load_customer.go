package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	statex "github.com/tanpawarit/agentic-pharmacy/agent/state"
)

// LoadCustomer resolves the customer and builds the initial record.
// An unknown customer aborts the run before any trace exists.
func LoadCustomer(
	ctx context.Context,
	in *GraphState,
	store contractx.Store,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	customer, err := store.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}

	in.Record = statex.NewRecord(
		in.RunID,
		statex.Customer{ID: customer.ID, Name: customer.Name},
		in.Message,
		in.Now,
	)
	return in, nil
}
