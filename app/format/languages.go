package format

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"
)

//go:embed languages.yml
var defaultLanguages []byte

// LanguageTable maps language codes to display names.
type LanguageTable struct {
	names map[string]string
}

func NewLanguageTable(names map[string]string) *LanguageTable {
	copied := make(map[string]string, len(names))
	for code, name := range names {
		copied[code] = name
	}
	return &LanguageTable{names: copied}
}

// languageFile accepts three shapes: a list of codes named from CLDR, an
// explicit code→name map, and the data API's i18nLanguages list response.
type languageFile struct {
	Codes     []string          `yaml:"codes"`
	Languages map[string]string `yaml:"languages"`
	Items     []struct {
		ID      string `yaml:"id"`
		Snippet struct {
			Name string `yaml:"name"`
		} `yaml:"snippet"`
	} `yaml:"items"`
}

func DefaultLanguages() (*LanguageTable, error) {
	return parseLanguages(defaultLanguages)
}

// LoadLanguages reads a language file in YAML or JSON.
func LoadLanguages(path string) (*LanguageTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	table, err := parseLanguages(data)
	if err != nil {
		return nil, fmt.Errorf("invalid language file %s: %w", path, err)
	}
	return table, nil
}

func parseLanguages(data []byte) (*LanguageTable, error) {
	var file languageFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	names := make(map[string]string)
	namer := display.English.Tags()
	for _, code := range file.Codes {
		tag, err := language.Parse(code)
		if err != nil {
			slog.Warn("Skipping unparseable language code", "code", code, "error", err)
			continue
		}
		if name := namer.Name(tag); name != "" {
			names[code] = name
		}
	}
	for code, name := range file.Languages {
		names[code] = name
	}
	for _, item := range file.Items {
		if item.ID != "" && item.Snippet.Name != "" {
			names[item.ID] = item.Snippet.Name
		}
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("no languages defined")
	}

	slog.Debug("Language table loaded", "count", len(names))

	return &LanguageTable{names: names}, nil
}

// Name resolves a language code: exact match, then lowercased, then the part
// before the first hyphen. Unknown codes come back uppercased.
func (t *LanguageTable) Name(code string) string {
	if code == "" {
		return "Unknown"
	}

	if name, ok := t.names[code]; ok {
		return name
	}

	lower := strings.ToLower(code)
	if name, ok := t.names[lower]; ok {
		return name
	}

	base, _, _ := strings.Cut(lower, "-")
	if name, ok := t.names[base]; ok {
		return name
	}

	slog.Debug("Language code not found in table", "code", code)
	return strings.ToUpper(code)
}

func (t *LanguageTable) Len() int {
	return len(t.names)
}
