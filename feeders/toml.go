package feeders

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/GoCodeAlone/servicetest/config"
)

// TomlFeeder is a feeder that reads TOML files
type TomlFeeder struct {
	Path string
}

func NewTomlFeeder(filePath string) TomlFeeder {
	return TomlFeeder{Path: filePath}
}

// Name implements Feeder.
func (t TomlFeeder) Name() string {
	return "toml:" + t.Path
}

// Layer decodes the TOML file; tables become dotted key prefixes.
func (t TomlFeeder) Layer() (config.Layer, error) {
	var doc map[string]any
	if _, err := toml.DecodeFile(t.Path, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTomlDecode, err)
	}

	out := config.Layer{}
	for k, v := range doc {
		flatten(k, v, out)
	}
	return out, nil
}
