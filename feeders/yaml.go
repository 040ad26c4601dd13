package feeders

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/servicetest/config"
)

// YamlFeeder is a feeder that reads YAML files
type YamlFeeder struct {
	Path string
}

// NewYamlFeeder creates a new YamlFeeder that reads from the specified YAML file
func NewYamlFeeder(filePath string) YamlFeeder {
	return YamlFeeder{Path: filePath}
}

// Name implements Feeder.
func (y YamlFeeder) Name() string {
	return "yaml:" + y.Path
}

// Layer reads the YAML document and flattens nested mappings to dotted keys.
func (y YamlFeeder) Layer() (config.Layer, error) {
	data, err := os.ReadFile(y.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrYamlDecode, err)
	}

	out := config.Layer{}
	for k, v := range doc {
		flatten(k, v, out)
	}
	return out, nil
}
