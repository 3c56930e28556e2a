package extractor

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	statex "github.com/tanpawarit/agentic-pharmacy/agent/state"
)

type fakeCompleter struct {
	response string
	err      error
	calls    int
	system   string
}

func (f *fakeCompleter) Complete(_ context.Context, systemPrompt string, _ string) (string, error) {
	f.calls++
	f.system = systemPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeChatModel struct {
	responses []*schema.Message
	err       error
	idx       int
	inputs    [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func newTestModel(t *testing.T, completer contractx.Completer) *Model {
	t.Helper()

	m, err := NewModel(completer, NewRules(DefaultDictionary()), "extraction prompt")
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	return m
}

func TestModelExtractSuccess(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{
		response: "```json\n{\"intent\":\"order\",\"medicines\":[{\"name\":\"Paracetamol 500mg\",\"quantity\":2,\"dosage\":\"500mg\"}],\"confidence\":0.95}\n```",
	}
	m := newTestModel(t, completer)

	out := m.Extract(context.Background(), "two paracetamol please")
	if out.Intent != statex.IntentOrder {
		t.Fatalf("unexpected intent: %s", out.Intent)
	}
	if out.Source != SourceModel {
		t.Fatalf("unexpected source: %s", out.Source)
	}
	if out.Confidence != 0.95 {
		t.Fatalf("unexpected confidence: %v", out.Confidence)
	}
	if len(out.Medicines) != 1 || out.Medicines[0].Quantity != 2 || out.Medicines[0].Dosage != "500mg" {
		t.Fatalf("unexpected medicines: %#v", out.Medicines)
	}
	if out.Medicines[0].OTCHint != nil {
		t.Fatal("model output must not carry an OTC hint")
	}
	if completer.system != "extraction prompt" {
		t.Fatalf("unexpected system prompt: %q", completer.system)
	}
}

func TestModelExtractDefaultsConfidence(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, &fakeCompleter{
		response: `{"intent":"query","medicines":[]}`,
	})

	out := m.Extract(context.Background(), "do you sell vitamins?")
	if out.Intent != statex.IntentQuery {
		t.Fatalf("unexpected intent: %s", out.Intent)
	}
	if out.Confidence != defaultModelConfidence {
		t.Fatalf("unexpected confidence: %v", out.Confidence)
	}
}

func TestModelExtractUnparseableResponse(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"prose":         "Sure! You want paracetamol.",
		"empty":         "   ",
		"bad intent":    `{"intent":"purchase","medicines":[]}`,
		"zero quantity": `{"intent":"order","medicines":[{"name":"Aspirin 81mg","quantity":0}]}`,
		"blank name":    `{"intent":"order","medicines":[{"name":" ","quantity":1}]}`,
	}

	for name, raw := range cases {
		raw := raw
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m := newTestModel(t, &fakeCompleter{response: raw})
			out := m.Extract(context.Background(), "I need paracetamol")

			if out.Intent != statex.IntentUnknown {
				t.Fatalf("unexpected intent: %s", out.Intent)
			}
			if out.Medicines == nil || len(out.Medicines) != 0 {
				t.Fatalf("expected empty medicines, got %#v", out.Medicines)
			}
			if out.Source != SourceModelUnparsed {
				t.Fatalf("unexpected source: %s", out.Source)
			}
		})
	}
}

func TestModelExtractOrderWithoutMedicinesIsUnknown(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, &fakeCompleter{response: `{"intent":"order","medicines":[]}`})

	out := m.Extract(context.Background(), "I want to order")
	if out.Intent != statex.IntentUnknown {
		t.Fatalf("unexpected intent: %s", out.Intent)
	}
}

func TestModelExtractBackendErrorFallsBackToRules(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{err: errors.New("connection refused")}
	m := newTestModel(t, completer)

	out := m.Extract(context.Background(), "I need paracetamol")
	if completer.calls != 1 {
		t.Fatalf("expected one completer call, got %d", completer.calls)
	}
	if out.Source != SourceRulesFallback {
		t.Fatalf("unexpected source: %s", out.Source)
	}
	if out.Intent != statex.IntentOrder || len(out.Medicines) != 1 {
		t.Fatalf("expected rules extraction, got %#v", out)
	}
}

func TestNewModelValidation(t *testing.T) {
	t.Parallel()

	rules := NewRules(DefaultDictionary())
	if _, err := NewModel(nil, rules, "prompt"); err == nil {
		t.Fatal("expected error for nil completer")
	}
	if _, err := NewModel(&fakeCompleter{}, nil, "prompt"); err == nil {
		t.Fatal("expected error for nil fallback")
	}
	if _, err := NewModel(&fakeCompleter{}, rules, " "); !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("expected ErrPromptMissing, got %v", err)
	}
}

func TestEinoCompleterInvokesChatModel(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{
			schema.AssistantMessage(`{"intent":"order","medicines":[{"name":"Aspirin 81mg","quantity":1}]}`, nil),
		},
	}

	completer, err := NewEinoCompleter(context.Background(), fake)
	if err != nil {
		t.Fatalf("NewEinoCompleter() error = %v", err)
	}

	m := newTestModel(t, completer)
	out := m.Extract(context.Background(), "aspirin")
	if out.Source != SourceModel || len(out.Medicines) != 1 {
		t.Fatalf("unexpected extraction: %#v", out)
	}

	if len(fake.inputs) != 1 || len(fake.inputs[0]) != 2 {
		t.Fatalf("expected one call with system+user messages, got %#v", fake.inputs)
	}
	if fake.inputs[0][0].Role != schema.System || fake.inputs[0][1].Role != schema.User {
		t.Fatalf("unexpected roles: %s, %s", fake.inputs[0][0].Role, fake.inputs[0][1].Role)
	}
}

func TestEinoCompleterWrapsModelError(t *testing.T) {
	t.Parallel()

	completer, err := NewEinoCompleter(context.Background(), &fakeChatModel{err: errors.New("boom")})
	if err != nil {
		t.Fatalf("NewEinoCompleter() error = %v", err)
	}

	_, err = completer.Complete(context.Background(), "sys", "user")
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}
