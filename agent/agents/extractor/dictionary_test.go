package extractor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
)

func TestDefaultDictionaryLoads(t *testing.T) {
	t.Parallel()

	dict := DefaultDictionary()
	if len(dict.Entries) == 0 {
		t.Fatal("expected embedded dictionary entries")
	}
	for _, e := range dict.Entries {
		if e.Keyword == "" || e.Name == "" {
			t.Fatalf("invalid entry: %#v", e)
		}
	}
}

func TestParseDictionaryNormalizesKeywords(t *testing.T) {
	t.Parallel()

	dict, err := ParseDictionary([]byte(`
version: 2
entries:
  - {keyword: "  Panadol ", name: " Paracetamol 500mg ", dosage: 500mg, otc: true}
`))
	if err != nil {
		t.Fatalf("ParseDictionary() error = %v", err)
	}
	if dict.Version != 2 {
		t.Fatalf("unexpected version: %d", dict.Version)
	}
	if dict.Entries[0].Keyword != "panadol" || dict.Entries[0].Name != "Paracetamol 500mg" {
		t.Fatalf("unexpected entry: %#v", dict.Entries[0])
	}
}

func TestParseDictionaryRejectsInvalid(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":             "version: 1\nentries: []\n",
		"missing keyword":   "entries:\n  - {keyword: '', name: X}\n",
		"missing name":      "entries:\n  - {keyword: x, name: ''}\n",
		"duplicate keyword": "entries:\n  - {keyword: x, name: A}\n  - {keyword: X, name: B}\n",
		"malformed":         "entries: [",
	}

	for name, raw := range cases {
		raw := raw
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseDictionary([]byte(raw))
			if !errors.Is(err, contractx.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestLoadDictionaryFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dict.yaml")
	if err := os.WriteFile(path, []byte("entries:\n  - {keyword: panadol, name: Paracetamol 500mg, otc: true}\n"), 0o600); err != nil {
		t.Fatalf("write dictionary: %v", err)
	}

	dict, err := LoadDictionaryFile(path)
	if err != nil {
		t.Fatalf("LoadDictionaryFile() error = %v", err)
	}
	if len(dict.Entries) != 1 || !dict.Entries[0].OTC {
		t.Fatalf("unexpected dictionary: %#v", dict)
	}

	if _, err := LoadDictionaryFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
