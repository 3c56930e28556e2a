package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	statex "github.com/tanpawarit/agentic-pharmacy/agent/state"
)

const defaultModelConfidence = 0.8

// Model delegates extraction to a language model and never lets a malformed
// response leave this type.
type Model struct {
	completer    contractx.Completer
	fallback     contractx.Extractor
	systemPrompt string
	parser       schema.MessageParser[modelOutput]
}

type modelOutput struct {
	Intent     string          `json:"intent"`
	Medicines  []modelMedicine `json:"medicines"`
	Confidence *float64        `json:"confidence,omitempty"`
}

type modelMedicine struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Dosage   *string `json:"dosage"`
}

func NewModel(completer contractx.Completer, fallback contractx.Extractor, systemPrompt string) (*Model, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if fallback == nil {
		return nil, errors.New("fallback extractor is required")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: extraction prompt", contractx.ErrPromptMissing)
	}

	return &Model{
		completer:    completer,
		fallback:     fallback,
		systemPrompt: systemPrompt,
		parser: schema.NewMessageJSONParser[modelOutput](&schema.MessageJSONParseConfig{
			ParseFrom: schema.MessageParseFromContent,
		}),
	}, nil
}

func (m *Model) Extract(ctx context.Context, message string) statex.Extraction {
	raw, err := m.completer.Complete(ctx, m.systemPrompt, message)
	if err != nil {
		log.Warn().Err(err).Msg("extraction backend unavailable, using rules")
		out := m.fallback.Extract(ctx, message)
		out.Source = SourceRulesFallback
		return out
	}

	out, err := m.parse(ctx, raw)
	if err != nil {
		log.Warn().Err(err).Str("raw", truncate(raw, 256)).Msg("unparseable extraction response")
		return statex.Extraction{
			Intent:     statex.IntentUnknown,
			Medicines:  []statex.RequestedItem{},
			Source:     SourceModelUnparsed,
			Confidence: 0,
		}
	}
	return out
}

func (m *Model) parse(ctx context.Context, raw string) (statex.Extraction, error) {
	content := stripCodeFence(raw)
	if content == "" {
		return statex.Extraction{}, fmt.Errorf("%w: empty response", contractx.ErrSchemaViolation)
	}

	parsed, err := m.parser.Parse(ctx, schema.AssistantMessage(content, nil))
	if err != nil {
		return statex.Extraction{}, fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
	}

	intent := statex.Intent(strings.ToLower(strings.TrimSpace(parsed.Intent)))
	if !intent.Valid() {
		return statex.Extraction{}, fmt.Errorf("%w: unsupported intent=%q", contractx.ErrSchemaViolation, parsed.Intent)
	}

	medicines := make([]statex.RequestedItem, 0, len(parsed.Medicines))
	for i, med := range parsed.Medicines {
		name := strings.TrimSpace(med.Name)
		if name == "" {
			return statex.Extraction{}, fmt.Errorf("%w: medicines[%d].name is empty", contractx.ErrSchemaViolation, i)
		}
		if med.Quantity <= 0 {
			return statex.Extraction{}, fmt.Errorf("%w: medicines[%d].quantity must be > 0", contractx.ErrSchemaViolation, i)
		}
		item := statex.RequestedItem{Name: name, Quantity: med.Quantity}
		if med.Dosage != nil {
			item.Dosage = strings.TrimSpace(*med.Dosage)
		}
		medicines = append(medicines, item)
	}

	if intent == statex.IntentOrder && len(medicines) == 0 {
		intent = statex.IntentUnknown
	}

	confidence := defaultModelConfidence
	if parsed.Confidence != nil && *parsed.Confidence >= 0 && *parsed.Confidence <= 1 {
		confidence = *parsed.Confidence
	}

	return statex.Extraction{
		Intent:     intent,
		Medicines:  medicines,
		Source:     SourceModel,
		Confidence: confidence,
	}, nil
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
