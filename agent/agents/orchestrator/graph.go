package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	nodex "github.com/tanpawarit/agentic-pharmacy/agent/nodes"
	"github.com/tanpawarit/agentic-pharmacy/agent/policy"
)

const (
	nodeValidateRequest = "validate_request"
	nodeLoadCustomer    = "load_customer"
	nodeMemory          = "memory"
	nodeExtraction      = "extraction"
	nodeSafety          = "safety"
	nodeExecution       = "execution"
	nodePredictive      = "predictive"
	nodePersistTrace    = "persist_trace"
)

func (o *Orchestrator) compileRunPipelineGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode(nodeValidateRequest,
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now, o.newRunID)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode(nodeLoadCustomer,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadCustomer(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_customer: %w", err)
	}

	if err := graph.AddLambdaNode(nodeMemory,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Memory(ctx, in, o.store, o.policy)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node memory: %w", err)
	}

	if err := graph.AddLambdaNode(nodeExtraction,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Extraction(ctx, in, o.extractor)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node extraction: %w", err)
	}

	if err := graph.AddLambdaNode(nodeSafety,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Safety(ctx, in, o.store, o.policy)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node safety: %w", err)
	}

	if err := graph.AddLambdaNode(nodeExecution,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Execute(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node execution: %w", err)
	}

	if err := graph.AddLambdaNode(nodePredictive,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Predictive(ctx, in, o.store, o.policy)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node predictive: %w", err)
	}

	if err := graph.AddLambdaNode(nodePersistTrace,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.PersistTrace(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node persist_trace: %w", err)
	}

	gate := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
			}
			if in.Gate() == policy.Approved {
				return nodeExecution, nil
			}
			return nodePredictive, nil
		},
		map[string]bool{
			nodeExecution:  true,
			nodePredictive: true,
		},
	)
	if err := graph.AddBranch(nodeSafety, gate); err != nil {
		return nil, fmt.Errorf("add safety branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, nodeValidateRequest},
		{nodeValidateRequest, nodeLoadCustomer},
		{nodeLoadCustomer, nodeMemory},
		{nodeMemory, nodeExtraction},
		{nodeExtraction, nodeSafety},
		{nodeExecution, nodePredictive},
		{nodePredictive, nodePersistTrace},
		{nodePersistTrace, compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.run_pipeline"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
