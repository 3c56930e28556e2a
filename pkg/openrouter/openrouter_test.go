package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestChatModelSendsAttributionAndJSONMode(t *testing.T) {
	t.Parallel()

	var (
		gotReferer string
		gotTitle   string
		gotAuth    string
		gotBody    struct {
			Model          string `json:"model"`
			MaxTokens      int    `json:"max_tokens"`
			ResponseFormat *struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m",` +
			`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{}"}}]}`))
	}))
	defer server.Close()

	cfg := Config{
		BaseURL:            server.URL,
		APIKey:             "key",
		Model:              "openai/gpt-4o-mini",
		MaxCompletionToken: 256,
		JSONMode:           true,
		SiteURL:            "https://pharmacy.example.com",
		SiteName:           "Pharmacy",
	}
	chatModel, err := cfg.New(context.Background())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	msg, err := chatModel.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if msg.Content != "{}" {
		t.Fatalf("unexpected content: %q", msg.Content)
	}
	if gotReferer != "https://pharmacy.example.com" || gotTitle != "Pharmacy" {
		t.Fatalf("unexpected attribution headers: referer=%q title=%q", gotReferer, gotTitle)
	}
	if gotAuth != "Bearer key" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotBody.Model != "openai/gpt-4o-mini" || gotBody.MaxTokens != 256 {
		t.Fatalf("unexpected request: %#v", gotBody)
	}
	if gotBody.ResponseFormat == nil || gotBody.ResponseFormat.Type != "json_object" {
		t.Fatalf("expected json_object response format, got %#v", gotBody.ResponseFormat)
	}
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{Model: "m"}); err == nil {
		t.Fatal("expected error for empty api key")
	}
	if _, err := (Config{APIKey: "k"}).New(context.Background()); err == nil {
		t.Fatal("expected error for empty model")
	}
	if got := (Config{}).baseURL(); got != defaultBaseURL {
		t.Fatalf("baseURL() = %q, want %q", got, defaultBaseURL)
	}
}
