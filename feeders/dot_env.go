package feeders

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/GoCodeAlone/servicetest/config"
)

// DotEnvFeeder reads KEY=VALUE lines from a .env file, without touching the
// process environment. Names map to keys the same way as EnvFeeder.
type DotEnvFeeder struct {
	Path string
}

func NewDotEnvFeeder(filePath string) DotEnvFeeder {
	return DotEnvFeeder{Path: filePath}
}

// Name implements Feeder.
func (f DotEnvFeeder) Name() string {
	return "dotenv:" + f.Path
}

// Layer implements Feeder.
func (f DotEnvFeeder) Layer() (config.Layer, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	out := config.Layer{}
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w at line %d: %s", ErrDotEnvInvalidLineFormat, lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		out[envNameToKey(key)] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	return out, nil
}
