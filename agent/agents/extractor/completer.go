package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go"
	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
)

var (
	_ contractx.Completer = (*EinoCompleter)(nil)
	_ contractx.Completer = (*OpenAICompleter)(nil)
)

// EinoCompleter runs a system+user exchange through an eino chat model graph.
type EinoCompleter struct {
	runner compose.Runnable[[]*schema.Message, *schema.Message]
}

func NewEinoCompleter(ctx context.Context, chatModel einomodel.BaseChatModel) (*EinoCompleter, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	runner, err := compileCompletionGraph(ctx, chatModel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	return &EinoCompleter{runner: runner}, nil
}

func (c *EinoCompleter) Complete(ctx context.Context, systemPrompt string, userMessage string) (string, error) {
	msg, err := c.runner.Invoke(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userMessage),
	})
	if err != nil {
		return "", fmt.Errorf("%w: extraction invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return "", fmt.Errorf("%w: empty completion", contractx.ErrModelInvoke)
	}
	return msg.Content, nil
}

func compileCompletionGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
) (compose.Runnable[[]*schema.Message, *schema.Message], error) {
	graph := compose.NewGraph[[]*schema.Message, *schema.Message]()
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add completion model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "model"); err != nil {
		return nil, fmt.Errorf("add completion edge start->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add completion edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("extractor.completion_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile completion graph: %w", err)
	}
	return runner, nil
}

// OpenAIOptions are the request parameters of OpenAICompleter.
type OpenAIOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// OpenAICompleter talks to any OpenAI-compatible chat completions endpoint.
type OpenAICompleter struct {
	client *openaisdk.Client
	opts   OpenAIOptions
}

func NewOpenAICompleter(client *openaisdk.Client, opts OpenAIOptions) (*OpenAICompleter, error) {
	if client == nil {
		return nil, errors.New("openai client is required")
	}
	opts.Model = strings.TrimSpace(opts.Model)
	if opts.Model == "" {
		return nil, fmt.Errorf("%w: model is required", contractx.ErrValidation)
	}
	return &OpenAICompleter{client: client, opts: opts}, nil
}

func (c *OpenAICompleter) Complete(ctx context.Context, systemPrompt string, userMessage string) (string, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.opts.Model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(systemPrompt),
			openaisdk.UserMessage(userMessage),
		},
		Temperature: openaisdk.Float(float64(c.opts.Temperature)),
	}
	if c.opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(c.opts.MaxTokens))
	}
	if c.opts.JSONMode {
		params.ResponseFormat = openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openaisdk.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %v", contractx.ErrModelInvoke, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat completion returned no choices", contractx.ErrModelInvoke)
	}
	return resp.Choices[0].Message.Content, nil
}
