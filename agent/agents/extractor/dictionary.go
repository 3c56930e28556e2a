package extractor

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	"gopkg.in/yaml.v3"
)

//go:embed dictionary.yaml
var defaultDictionaryRaw []byte

type DictionaryEntry struct {
	Keyword string `yaml:"keyword"`
	Name    string `yaml:"name"`
	Dosage  string `yaml:"dosage"`
	OTC     bool   `yaml:"otc"`
}

// Dictionary maps message keywords to canonical inventory names.
// Entries are matched in file order.
type Dictionary struct {
	Version int               `yaml:"version"`
	Entries []DictionaryEntry `yaml:"entries"`
}

func ParseDictionary(raw []byte) (Dictionary, error) {
	var dict Dictionary
	if err := yaml.Unmarshal(raw, &dict); err != nil {
		return Dictionary{}, fmt.Errorf("%w: decode dictionary: %v", contractx.ErrValidation, err)
	}
	if err := dict.Validate(); err != nil {
		return Dictionary{}, err
	}
	for i := range dict.Entries {
		dict.Entries[i].Keyword = strings.ToLower(strings.TrimSpace(dict.Entries[i].Keyword))
		dict.Entries[i].Name = strings.TrimSpace(dict.Entries[i].Name)
		dict.Entries[i].Dosage = strings.TrimSpace(dict.Entries[i].Dosage)
	}
	return dict, nil
}

func LoadDictionaryFile(path string) (Dictionary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Dictionary{}, fmt.Errorf("read dictionary %s: %w", path, err)
	}
	return ParseDictionary(raw)
}

// DefaultDictionary returns the embedded dictionary.
func DefaultDictionary() Dictionary {
	dict, err := ParseDictionary(defaultDictionaryRaw)
	if err != nil {
		panic(err)
	}
	return dict
}

func (d Dictionary) Validate() error {
	if len(d.Entries) == 0 {
		return fmt.Errorf("%w: dictionary has no entries", contractx.ErrValidation)
	}
	seen := make(map[string]struct{}, len(d.Entries))
	for i, e := range d.Entries {
		kw := strings.ToLower(strings.TrimSpace(e.Keyword))
		if kw == "" {
			return fmt.Errorf("%w: dictionary entry %d has empty keyword", contractx.ErrValidation, i)
		}
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("%w: dictionary entry %q has empty name", contractx.ErrValidation, kw)
		}
		if _, dup := seen[kw]; dup {
			return fmt.Errorf("%w: duplicate dictionary keyword %q", contractx.ErrValidation, kw)
		}
		seen[kw] = struct{}{}
	}
	return nil
}
