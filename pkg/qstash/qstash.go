package qstash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	upstash "github.com/upstash/qstash-go"
)

var ErrPublish = errors.New("qstash publish failed")

type Config struct {
	URL         string        `split_words:"true" default:"https://qstash.upstash.io"`
	Token       string        `split_words:"true"`
	Destination string        `split_words:"true"`
	Retries     int           `split_words:"true" default:"3"`
	Timeout     time.Duration `split_words:"true" default:"10s"`
}

// Enabled reports whether publishing is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Token) != "" && strings.TrimSpace(c.Destination) != ""
}

// Client wraps the QStash SDK client with the configured retry policy.
type Client struct {
	sdk     *upstash.Client
	retries int
}

type Option func(*options)

type options struct {
	httpClient *http.Client
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

type PublishResponse struct {
	MessageID string `json:"messageId"`
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("qstash url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("qstash token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	o := &options{httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(o)
	}

	sdk := upstash.NewClientWith(upstash.Options{
		Url:    strings.TrimRight(baseURL, "/"),
		Token:  token,
		Client: o.httpClient,
	})
	return &Client{sdk: sdk, retries: cfg.Retries}, nil
}

func MustNew(cfg Config, opts ...Option) *Client {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return client
}

// PublishJSON enqueues payload for delivery to destination. payload must
// encode as a JSON object.
func (c *Client) PublishJSON(ctx context.Context, destination string, payload any) (*PublishResponse, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, fmt.Errorf("%w: destination is required", ErrPublish)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublish, err)
	}

	body, err := toObject(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode payload: %v", ErrPublish, err)
	}

	publishOpts := upstash.PublishJSONOptions{
		Url:  destination,
		Body: body,
	}
	if c.retries >= 0 {
		retries := c.retries
		publishOpts.Retries = &retries
	}

	res, err := c.sdk.PublishJSON(publishOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublish, err)
	}
	return &PublishResponse{MessageID: res.MessageId}, nil
}

func toObject(payload any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
