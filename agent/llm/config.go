package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	openrouterx "github.com/tanpawarit/agentic-pharmacy/pkg/openrouter"
)

const (
	StrategyRules = "rules"
	StrategyModel = "model"

	BackendEino   = "eino"
	BackendOpenAI = "openai"
)

type Config struct {
	Strategy       string `envconfig:"STRATEGY" split_words:"true" default:"rules"`
	Backend        string `envconfig:"BACKEND" split_words:"true" default:"eino"`
	DictionaryPath string `envconfig:"DICTIONARY_PATH" split_words:"true"`

	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"512"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	MaxRetries         int           `envconfig:"MAX_RETRIES" split_words:"true" default:"2"`
	JSONMode           bool          `envconfig:"JSON_MODE" split_words:"true" default:"true"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
}

func (c Config) Validate() error {
	switch strings.TrimSpace(c.Strategy) {
	case "", StrategyRules:
		return nil
	case StrategyModel:
	default:
		return fmt.Errorf("%w: unsupported extraction strategy=%q", contractx.ErrValidation, c.Strategy)
	}

	switch strings.TrimSpace(c.Backend) {
	case "", BackendEino, BackendOpenAI:
	default:
		return fmt.Errorf("%w: unsupported extraction backend=%q", contractx.ErrValidation, c.Backend)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required for model extraction", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: llm model is required for model extraction", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouter() openrouterx.Config {
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              strings.TrimSpace(c.Model),
		MaxCompletionToken: c.MaxCompletionToken,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		MaxRetries:         c.MaxRetries,
		JSONMode:           c.JSONMode,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
