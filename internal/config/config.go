// Package config loads the querykeyd YAML configuration.
package config

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ata-marzban/tsdb-query-keys/internal/aggregator"
)

// Config is the daemon configuration.
type Config struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// AggregatorAliases maps extra aggregator names to built-in ones,
	// e.g. {"mean": "avg"}. Names are lower-cased on load.
	AggregatorAliases map[string]string `yaml:"aggregator_aliases,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{Port: 8080, LogLevel: "info"}
}

// Load reads and parses the file at path over the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read from %s", path)
	}
	cfg, err := Parse(data)
	return cfg, errors.Wrapf(err, "failed to load %s", path)
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "failed to unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks port range and log level.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("port %d out of range", c.Port)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, errors.Wrapf(err, "invalid log_level %q", c.LogLevel)
	}
	return l, nil
}

// ApplyAliases registers every alias on reg, in sorted order so that a
// failure is reported deterministically.
func (c Config) ApplyAliases(reg *aggregator.Registry) error {
	aliases := make([]string, 0, len(c.AggregatorAliases))
	for a := range c.AggregatorAliases {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	for _, a := range aliases {
		target := strings.ToLower(c.AggregatorAliases[a])
		if err := reg.Alias(strings.ToLower(a), target); err != nil {
			return errors.Wrap(err, "aggregator_aliases")
		}
	}
	return nil
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	return data, errors.Wrap(err, "failed to marshal")
}
