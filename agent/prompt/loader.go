package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/extraction.txt
	extractionRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Extraction string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Extraction: strings.TrimSpace(extractionRaw),
	}
}
