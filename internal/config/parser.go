package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadScenario reads and parses a scenario file. The format follows the
// file extension: .json, .yaml, or .yml.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	return ParseScenario(data, path)
}

// ParseScenario parses scenario data, using path's extension to pick
// the format.
func ParseScenario(data []byte, path string) (*Scenario, error) {
	var scenario Scenario

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &scenario); err != nil {
			return nil, fmt.Errorf("parsing JSON scenario: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &scenario); err != nil {
			return nil, fmt.Errorf("parsing YAML scenario: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported scenario format: %s (use .json, .yaml, or .yml)", filepath.Ext(path))
	}

	return &scenario, nil
}

// AsJSON renders scenario data as a JSON document for schema
// validation, converting from YAML when needed.
func AsJSON(data []byte, path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return data, nil
	case ".yaml", ".yml":
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing YAML scenario: %w", err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("converting YAML scenario: %w", err)
		}
		return converted, nil
	default:
		return nil, fmt.Errorf("unsupported scenario format: %s", filepath.Ext(path))
	}
}
