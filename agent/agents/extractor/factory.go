package extractor

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	llmx "github.com/tanpawarit/agentic-pharmacy/agent/llm"
	promptx "github.com/tanpawarit/agentic-pharmacy/agent/prompt"
	openrouterx "github.com/tanpawarit/agentic-pharmacy/pkg/openrouter"
)

// New builds the extractor selected by cfg. The rules extractor is always
// constructed because the model strategy falls back to it.
func New(ctx context.Context, cfg llmx.Config) (contractx.Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dict := DefaultDictionary()
	if path := strings.TrimSpace(cfg.DictionaryPath); path != "" {
		loaded, err := LoadDictionaryFile(path)
		if err != nil {
			return nil, err
		}
		dict = loaded
	}
	rules := NewRules(dict)

	if strings.TrimSpace(cfg.Strategy) != llmx.StrategyModel {
		return rules, nil
	}

	completer, err := newCompleter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()
	return NewModel(completer, rules, prompts.Extraction)
}

func newCompleter(ctx context.Context, cfg llmx.Config) (contractx.Completer, error) {
	orCfg := cfg.OpenRouter()

	switch strings.TrimSpace(cfg.Backend) {
	case llmx.BackendOpenAI:
		client, err := openrouterx.NewClient(orCfg)
		if err != nil {
			return nil, fmt.Errorf("%w: create extraction client: %v", contractx.ErrValidation, err)
		}
		return NewOpenAICompleter(client, OpenAIOptions{
			Model:       orCfg.Model,
			Temperature: orCfg.Temperature,
			MaxTokens:   orCfg.MaxCompletionToken,
			JSONMode:    orCfg.JSONMode,
		})
	default:
		chatModel, err := orCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create extraction model: %v", contractx.ErrModelInvoke, err)
		}
		return NewEinoCompleter(ctx, chatModel)
	}
}
