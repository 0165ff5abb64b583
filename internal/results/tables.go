package results

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTablesYAML []byte

// MojibakeRepair maps one corrupted character sequence to its replacement.
type MojibakeRepair struct {
	Bad  string `yaml:"bad"`
	Good string `yaml:"good"`
}

// Tables holds the fallback phrase list and the mojibake repair list. Both
// are data, not code, so they can be extended without a rebuild via an
// override file.
type Tables struct {
	FallbackPhrases []string         `yaml:"fallback_phrases"`
	MojibakeRepairs []MojibakeRepair `yaml:"mojibake_repairs"`
}

// DefaultTables returns the embedded phrase and repair tables.
func DefaultTables() *Tables {
	tables, err := parseTables(defaultTablesYAML)
	if err != nil {
		// The embedded document is fixed at build time; a parse failure
		// is a programming error.
		panic(fmt.Sprintf("embedded tables.yaml is invalid: %v", err))
	}
	return tables
}

// LoadTables reads phrase and repair tables from a YAML file.
func LoadTables(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tables file: %w", err)
	}

	tables, err := parseTables(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tables file %s: %w", path, err)
	}

	return tables, nil
}

func parseTables(data []byte) (*Tables, error) {
	var tables Tables
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, err
	}
	if len(tables.FallbackPhrases) == 0 {
		return nil, fmt.Errorf("no fallback phrases defined")
	}
	return &tables, nil
}

// IsFallback reports whether a caption is a refusal rather than a real
// description. Empty captions count as fallbacks.
func (t *Tables) IsFallback(caption string) bool {
	if strings.TrimSpace(caption) == "" {
		return true
	}

	lower := strings.ToLower(caption)
	for _, phrase := range t.FallbackPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}

	return false
}

// RepairMojibake replaces known corrupted character sequences with their
// correct characters, in table order so repeated runs over the same input
// always produce the same output. Sequences not in the table are left as-is.
func (t *Tables) RepairMojibake(caption string) string {
	for _, repair := range t.MojibakeRepairs {
		caption = strings.ReplaceAll(caption, repair.Bad, repair.Good)
	}
	return caption
}
