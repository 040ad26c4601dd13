package feeders

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/GoCodeAlone/servicetest/config"
)

// JSONFeeder is a feeder that reads JSON files
type JSONFeeder struct {
	Path string
}

// NewJSONFeeder creates a new JSONFeeder that reads from the specified JSON file
func NewJSONFeeder(filePath string) JSONFeeder {
	return JSONFeeder{Path: filePath}
}

// Name implements Feeder.
func (j JSONFeeder) Name() string {
	return "json:" + j.Path
}

// Layer decodes a JSON object and flattens nested objects to dotted keys.
// Numbers keep their literal form ("8080", not "8080.0").
func (j JSONFeeder) Layer() (config.Layer, error) {
	f, err := os.Open(j.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSONDecode, err)
	}

	out := config.Layer{}
	for k, v := range doc {
		flatten(k, v, out)
	}
	return out, nil
}
