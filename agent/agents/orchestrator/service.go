package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/agentic-pharmacy/agent/agents/extractor"
	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	nodex "github.com/tanpawarit/agentic-pharmacy/agent/nodes"
	"github.com/tanpawarit/agentic-pharmacy/agent/policy"
	statex "github.com/tanpawarit/agentic-pharmacy/agent/state"
)

var (
	ErrInvalidCustomer  = contractx.ErrInvalidCustomer
	ErrCustomerNotFound = contractx.ErrCustomerNotFound
)

type Config struct {
	Policy policy.Config
}

type Orchestrator struct {
	store     contractx.Store
	extractor contractx.Extractor
	policy    policy.Config

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now      func() time.Time
	newRunID func() string
}

func New(
	store contractx.Store,
	ext contractx.Extractor,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if ext == nil {
		ext = extractor.NewRules(extractor.DefaultDictionary())
	}

	o := &Orchestrator{
		store:     store,
		extractor: ext,
		policy:    cfg.Policy.Normalize(),
		now:       time.Now,
		newRunID:  uuid.NewString,
	}

	graphRunner, err := o.compileRunPipelineGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// RunPipeline processes one message end to end. The returned record is always
// complete on success; an error means a precondition or the store failed and
// nothing was audited.
func (o *Orchestrator) RunPipeline(ctx context.Context, customerID int64, message string) (*statex.Record, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		CustomerID: customerID,
		Message:    message,
	})
	if err != nil {
		log.Error().Err(err).Int64("customer_id", customerID).Msg("pipeline failed")
		return nil, err
	}

	record := out.Record
	log.Info().
		Str("run_id", record.RunID()).
		Int64("customer_id", customerID).
		Str("outcome", string(record.Outcome())).
		Int("trace", len(record.Trace())).
		Msg("pipeline finished")
	return record, nil
}
