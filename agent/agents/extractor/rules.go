package extractor

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	statex "github.com/tanpawarit/agentic-pharmacy/agent/state"
)

const (
	SourceRules         = "rules"
	SourceRulesFallback = "rules_fallback"
	SourceModel         = "model"
	SourceModelUnparsed = "model_unparsed"
)

// Accepts "5 pills", "2 tablets", "3 units", "1 cap", "2 bottles", "4x".
var quantityPattern = regexp.MustCompile(`(?i)\b(\d+)\s*(?:pills?|tablets?|units?|caps?|bottles?|x)`)

// Rules is the deterministic keyword extractor.
type Rules struct {
	dict Dictionary
}

func NewRules(dict Dictionary) *Rules {
	return &Rules{dict: dict}
}

func (r *Rules) Extract(_ context.Context, message string) statex.Extraction {
	text := strings.ToLower(message)
	quantity := parseQuantity(text)

	medicines := make([]statex.RequestedItem, 0, 2)
	seen := make(map[string]struct{}, 2)
	for _, e := range r.dict.Entries {
		if !strings.Contains(text, e.Keyword) {
			continue
		}
		if _, dup := seen[e.Name]; dup {
			continue
		}
		seen[e.Name] = struct{}{}

		otc := e.OTC
		medicines = append(medicines, statex.RequestedItem{
			Name:     e.Name,
			Quantity: quantity,
			Dosage:   e.Dosage,
			OTCHint:  &otc,
		})
	}

	out := statex.Extraction{
		Intent:    statex.IntentUnknown,
		Medicines: medicines,
		Source:    SourceRules,
	}
	if len(medicines) > 0 {
		out.Intent = statex.IntentOrder
		out.Confidence = 1
	}
	return out
}

func parseQuantity(text string) int {
	m := quantityPattern.FindStringSubmatch(text)
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// overflow: saturate so the quantity ceiling rejects it
		return math.MaxInt32
	}
	if n <= 0 {
		return 1
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return n
}
