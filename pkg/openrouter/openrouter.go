package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Config describes one OpenRouter model used for structured extraction.
type Config struct {
	BaseURL            string
	APIKey             string
	Model              string
	MaxCompletionToken int
	Temperature        float32
	Timeout            time.Duration
	MaxRetries         int
	// JSONMode asks the provider for a json_object response format.
	JSONMode bool
	SiteURL  string
	SiteName string
}

func (c Config) baseURL() string {
	if trimmed := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/"); trimmed != "" {
		return trimmed
	}
	return defaultBaseURL
}

// headers returns the OpenRouter attribution headers.
func (c Config) headers() map[string]string {
	h := map[string]string{}
	if v := strings.TrimSpace(c.SiteURL); v != "" {
		h["HTTP-Referer"] = v
	}
	if v := strings.TrimSpace(c.SiteName); v != "" {
		h["X-Title"] = v
	}
	return h
}

func (c Config) validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("openrouter: api key is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("openrouter: model is required")
	}
	return nil
}

// New builds an eino chat model pointed at OpenRouter.
func (c Config) New(ctx context.Context) (model.ToolCallingChatModel, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	temperature := c.Temperature
	conf := &openaimodel.ChatModelConfig{
		BaseURL:     c.baseURL(),
		APIKey:      strings.TrimSpace(c.APIKey),
		Model:       strings.TrimSpace(c.Model),
		Temperature: &temperature,
		HTTPClient: &http.Client{
			Timeout:   c.Timeout,
			Transport: headerTransport{headers: c.headers(), next: http.DefaultTransport},
		},
	}
	if c.MaxCompletionToken > 0 {
		maxTokens := c.MaxCompletionToken
		conf.MaxTokens = &maxTokens
	}
	if c.JSONMode {
		conf.ResponseFormat = &openaimodel.ChatCompletionResponseFormat{
			Type: openaimodel.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	m, err := openaimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("openrouter: create chat model: %w", err)
	}
	return m, nil
}

// NewClient creates an OpenAI SDK client configured for OpenRouter. Extra
// request options are applied last.
func NewClient(cfg Config, extra ...option.RequestOption) (*openaisdk.Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithBaseURL(cfg.baseURL()),
		option.WithMaxRetries(max(cfg.MaxRetries, 0)),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	for k, v := range cfg.headers() {
		opts = append(opts, option.WithHeader(k, v))
	}
	opts = append(opts, extra...)

	client := openaisdk.NewClient(opts...)
	return &client, nil
}

type headerTransport struct {
	headers map[string]string
	next    http.RoundTripper
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 {
		return t.next.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.next.RoundTrip(req)
}
