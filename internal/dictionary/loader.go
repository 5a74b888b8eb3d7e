package dictionary

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type document struct {
	Reports []TermDictionary `yaml:"reports"`
}

// Default returns the store built from the embedded dictionaries of the
// four calibrated demonstration reports.
func Default() *Store {
	s, err := Load(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("load default.yaml: %v", err))
	}
	return s
}

// Load parses a YAML dictionary document.
func Load(data []byte) (*Store, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse dictionary: %w", err)
	}
	return NewStore(doc.Reports...)
}

// LoadFile reads the dictionary document at path. An empty path yields the
// embedded default.
func LoadFile(path string) (*Store, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary %q: %w", path, err)
	}
	s, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("dictionary %q: %w", path, err)
	}
	return s, nil
}
