package feeders

import (
	"os"
	"strings"

	"github.com/GoCodeAlone/servicetest/config"
)

// EnvFeeder is a feeder that reads environment variables sharing a prefix.
//
// Variable names map to keys by lower-casing, turning "_" into "." and "__"
// into "-": ITEST_HTTPSERVER_SHUTDOWN__TIMEOUT becomes
// httpserver.shutdown-timeout.
type EnvFeeder struct {
	Prefix string
}

// NewEnvFeeder creates a new EnvFeeder that reads from environment variables
func NewEnvFeeder(prefix string) EnvFeeder {
	return EnvFeeder{Prefix: prefix}
}

// Name implements Feeder.
func (e EnvFeeder) Name() string {
	return "env:" + e.Prefix
}

// Layer implements Feeder.
func (e EnvFeeder) Layer() (config.Layer, error) {
	prefix := ""
	if e.Prefix != "" {
		prefix = strings.TrimSuffix(e.Prefix, "_") + "_"
	}

	out := config.Layer{}
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok || rest == "" {
			continue
		}
		out[envNameToKey(rest)] = value
	}
	return out, nil
}

func envNameToKey(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "__", "\x00")
	name = strings.ReplaceAll(name, "_", ".")
	return strings.ReplaceAll(name, "\x00", "-")
}
